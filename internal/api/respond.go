package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/marginalia/internal/content"
	"go.uber.org/zap"
)

// writeJSON encodes v before touching the response, so an encoding failure
// still reaches the client as a 500.
func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.log.Error("encode response", zap.Int("status", code), zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"failed to encode response"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(buf.Bytes())
}

func (s *Server) jsonError(w http.ResponseWriter, msg string, code int) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}

// lookupError maps a lookup failure to 404 or 500.
func (s *Server) lookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, content.ErrNotFound) {
		s.jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	s.jsonError(w, err.Error(), http.StatusInternalServerError)
}

// decodeJSON reads a single JSON value from the request body, rejecting
// unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
