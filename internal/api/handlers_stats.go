package api

import (
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.jsonError(w, "request stats unavailable", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"requests":  s.stats.Snapshot(),
		"sessions":  s.sessions.Len(),
		"essays":    len(s.library.Essays()),
		"loaded_at": s.library.LoadedAt(),
	})
}
