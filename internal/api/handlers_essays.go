package api

import (
	"net/http"

	"github.com/dgallion1/marginalia/internal/content"
	"github.com/go-chi/chi/v5"
)

// essaySummary is the list form of an essay, without section bodies.
type essaySummary struct {
	Slug     string           `json:"slug"`
	Href     string           `json:"href"`
	Metadata content.Metadata `json:"metadata"`
	Sections []string         `json:"sections"`
}

func (s *Server) handleListEssays(w http.ResponseWriter, r *http.Request) {
	essays := s.library.Essays()
	out := make([]essaySummary, 0, len(essays))
	for _, e := range essays {
		out = append(out, essaySummary{
			Slug:     e.Slug,
			Href:     "/writings/" + e.Slug,
			Metadata: e.Metadata,
			Sections: e.SectionIDs(),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"essays": out})
}

func (s *Server) handleGetEssay(w http.ResponseWriter, r *http.Request) {
	e, err := s.library.Essay(chi.URLParam(r, "slug"))
	if err != nil {
		s.lookupError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"categories": s.library.Catalog()})
}

func (s *Server) handleCVJSON(w http.ResponseWriter, r *http.Request) {
	site := s.library.Site()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"profile": site.Profile,
		"cv":      site.CV,
	})
}
