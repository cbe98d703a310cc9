package api

import (
	"errors"
	"net/http"

	"github.com/dgallion1/marginalia/internal/session"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	e, err := s.library.Essay(chi.URLParam(r, "slug"))
	if err != nil {
		s.lookupError(w, err)
		return
	}
	sess, err := s.sessions.Create(e)
	if err != nil {
		s.log.Error("create session", zap.String("slug", e.Slug), zap.Error(err))
		s.jsonError(w, "failed to create session: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+sess.ID())
	s.writeJSON(w, http.StatusCreated, sess.Snapshot())
}

// session resolves the {sessionID} path parameter, answering 404 itself.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.lookupError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(chi.URLParam(r, "sessionID")) {
		s.jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScroll(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var report session.ScrollReport
	if err := decodeJSON(r, &report); err != nil {
		s.jsonError(w, "invalid scroll report: "+err.Error(), http.StatusBadRequest)
		return
	}
	view, err := sess.Scroll(report)
	if err != nil {
		s.reportError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

type intersectionsRequest struct {
	Entries []session.IntersectionReport `json:"entries"`
}

func (s *Server) handleIntersections(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req intersectionsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.jsonError(w, "invalid intersection report: "+err.Error(), http.StatusBadRequest)
		return
	}
	view, err := sess.Intersect(req.Entries)
	if err != nil {
		s.reportError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var report session.LayoutReport
	if err := decodeJSON(r, &report); err != nil {
		s.jsonError(w, "invalid layout report: "+err.Error(), http.StatusBadRequest)
		return
	}
	view, err := sess.Layout(report)
	if err != nil {
		s.reportError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// reportError answers a rejected session report with 400, anything else
// with 500.
func (s *Server) reportError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrInvalidCause) || errors.Is(err, session.ErrInvalidReport) {
		s.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.jsonError(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) handleFootnoteOffset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "footnoteID")
	offset, ok := sess.FootnoteOffset(id)
	if !ok {
		s.jsonError(w, "footnote has no measured offset", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"footnote_id": id, "offset": offset})
}
