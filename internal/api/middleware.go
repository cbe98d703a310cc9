package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dgallion1/marginalia/internal/stats"
	"github.com/dgallion1/marginalia/internal/theme"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestLogger logs each request and records its latency under the
// matched route pattern.
func RequestLogger(log *zap.Logger, rec *stats.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: 200}
			next.ServeHTTP(sw, r)
			elapsed := time.Since(start)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			if rec != nil {
				rec.Record(route, sw.status, elapsed)
			}
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", route),
				zap.Int("status", sw.status),
				zap.Int64("duration_ms", elapsed.Milliseconds()),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

type themeKey struct{}

// ThemeResolver puts the request's color scheme in its context and asks the
// browser for the color-scheme hint.
func ThemeResolver(fallback theme.Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			theme.AcceptHint(w)
			ctx := context.WithValue(r.Context(), themeKey{}, theme.Resolve(r, fallback))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func themeFrom(ctx context.Context) theme.Mode {
	if m, ok := ctx.Value(themeKey{}).(theme.Mode); ok {
		return m
	}
	return theme.Light
}
