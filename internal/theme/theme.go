// Package theme resolves the light or dark color scheme for a request.
package theme

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Mode is a color scheme.
type Mode string

const (
	Light Mode = "light"
	Dark  Mode = "dark"
)

// CookieName holds the reader's explicit choice.
const CookieName = "theme"

// HintHeader is the client hint carrying the browser's preferred scheme.
const HintHeader = "Sec-CH-Prefers-Color-Scheme"

// Parse accepts "light" or "dark", case-insensitively.
func Parse(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Light:
		return Light, nil
	case Dark:
		return Dark, nil
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

// Resolve picks the mode for r: an explicit cookie first, then the
// browser's color-scheme hint, then fallback.
func Resolve(r *http.Request, fallback Mode) Mode {
	if c, err := r.Cookie(CookieName); err == nil {
		if m, err := Parse(c.Value); err == nil {
			return m
		}
	}
	if m, err := Parse(strings.Trim(r.Header.Get(HintHeader), `"`)); err == nil {
		return m
	}
	if fallback == Dark {
		return Dark
	}
	return Light
}

// Toggle returns the opposite mode.
func Toggle(m Mode) Mode {
	if m == Dark {
		return Light
	}
	return Dark
}

// Cookie builds the cookie that persists m for a year.
func Cookie(m Mode) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    string(m),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// AcceptHint asks the browser to send the color-scheme hint on later
// requests.
func AcceptHint(w http.ResponseWriter) {
	w.Header().Add("Accept-CH", HintHeader)
	w.Header().Add("Vary", HintHeader)
}
