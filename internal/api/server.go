package api

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/dgallion1/marginalia/internal/config"
	"github.com/dgallion1/marginalia/internal/library"
	"github.com/dgallion1/marginalia/internal/session"
	"github.com/dgallion1/marginalia/internal/stats"
	"github.com/dgallion1/marginalia/internal/theme"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Server serves the portfolio pages and the reading-session API.
type Server struct {
	router   chi.Router
	library  *library.Library
	sessions *session.Store
	stats    *stats.Recorder
	pages    *template.Template
	log      *zap.Logger
	cfg      config.Config
	theme    theme.Mode
}

// NewServer creates and configures the HTTP server.
func NewServer(lib *library.Library, sessions *session.Store, rec *stats.Recorder, log *zap.Logger, cfg config.Config) (*Server, error) {
	pages, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	fallback, err := theme.Parse(cfg.DefaultTheme)
	if err != nil {
		fallback = theme.Light
	}
	s := &Server{
		library:  lib,
		sessions: sessions,
		stats:    rec,
		pages:    pages,
		log:      log,
		cfg:      cfg,
		theme:    fallback,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log, s.stats))
	r.Use(ThemeResolver(s.theme))

	r.Get("/health", s.handleHealth)

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	// Pages.
	r.Get("/", s.handleHome)
	r.Get("/cv", s.handleCV)
	r.Get("/cv.docx", s.handleCVDocx)
	r.Get("/writings", s.handleWritings)
	r.Get("/writings/{slug}", s.handleEssayPage)
	r.Post("/theme", s.handleTheme)

	// JSON API.
	r.Route("/api", func(r chi.Router) {
		r.Get("/essays", s.handleListEssays)
		r.Get("/essays/{slug}", s.handleGetEssay)
		r.Post("/essays/{slug}/sessions", s.handleCreateSession)
		r.Get("/catalog", s.handleCatalog)
		r.Get("/cv", s.handleCVJSON)
		r.Get("/stats", s.handleStats)

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Use(s.limitBody)
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/scroll", s.handleScroll)
			r.Post("/intersections", s.handleIntersections)
			r.Post("/layout", s.handleLayout)
			r.Get("/footnotes/{footnoteID}", s.handleFootnoteOffset)
		})
	})

	s.router = r
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
