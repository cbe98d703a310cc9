package api

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/dgallion1/marginalia/internal/config"
	"github.com/dgallion1/marginalia/internal/content"
	"github.com/dgallion1/marginalia/internal/cvexport"
	"github.com/dgallion1/marginalia/internal/theme"
	"github.com/go-chi/chi/v5"
	sprig "github.com/go-task/slim-sprig/v3"
	"go.uber.org/zap"
)

type pageData struct {
	Site    config.Site
	Theme   theme.Mode
	Title   string
	Nav     string
	Path    string
	Profile content.Profile
	CV      content.CV
	Catalog content.Catalog
	Essay   *content.Essay
}

func parseTemplates() (*template.Template, error) {
	funcs := sprig.FuncMap()
	funcs["rawHTML"] = func(s string) template.HTML { return template.HTML(s) }
	funcs["annotationsFor"] = func(e *content.Essay, sectionID string) []content.Annotation {
		return e.AnnotationsFor(sectionID)
	}
	t, err := template.New("pages").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

func (s *Server) page(r *http.Request, nav, title string) pageData {
	site := s.library.Site()
	return pageData{
		Site:    s.cfg.Site,
		Theme:   themeFrom(r.Context()),
		Title:   title,
		Nav:     nav,
		Path:    r.URL.Path,
		Profile: site.Profile,
		CV:      site.CV,
	}
}

// render executes a page into a buffer first so template errors never
// produce half-written pages.
func (s *Server) render(w http.ResponseWriter, name string, data pageData, code int) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Error("render page", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	buf.WriteTo(w)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, "home", s.page(r, "home", ""), http.StatusOK)
}

func (s *Server) handleCV(w http.ResponseWriter, r *http.Request) {
	s.render(w, "cv", s.page(r, "cv", "CV"), http.StatusOK)
}

func (s *Server) handleWritings(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "writings", "Writings")
	data.Catalog = s.library.Catalog()
	s.render(w, "writings", data, http.StatusOK)
}

func (s *Server) handleEssayPage(w http.ResponseWriter, r *http.Request) {
	e, err := s.library.Essay(chi.URLParam(r, "slug"))
	if errors.Is(err, content.ErrNotFound) {
		s.render(w, "notfound", s.page(r, "writings", "Not found"), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data := s.page(r, "writings", e.Metadata.Title)
	data.Essay = e
	s.render(w, "essay", data, http.StatusOK)
}

// handleTheme stores the reader's color scheme. An explicit "mode" form
// value wins; otherwise the current scheme is flipped.
func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	next := theme.Toggle(themeFrom(r.Context()))
	if m, err := theme.Parse(r.FormValue("mode")); err == nil {
		next = m
	}
	http.SetCookie(w, theme.Cookie(next))
	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

// backTo returns the local page the request came from, or "/".
func backTo(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || !strings.HasPrefix(ref.Path, "/") {
		return "/"
	}
	if ref.Host != "" && ref.Host != r.Host {
		return "/"
	}
	return ref.RequestURI()
}

func (s *Server) handleCVDocx(w http.ResponseWriter, r *http.Request) {
	site := s.library.Site()
	var buf bytes.Buffer
	if err := cvexport.Write(&buf, site.CV, site.Profile); err != nil {
		s.log.Error("export cv", zap.Error(err))
		s.jsonError(w, "failed to export cv", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", `attachment; filename="cv.docx"`)
	buf.WriteTo(w)
}
