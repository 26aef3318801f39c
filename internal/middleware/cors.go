// Package middleware provides HTTP middleware for the NUX API.
package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/ashureev/nux-coach/internal/identity"
)

var (
	corsMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}, ", ")
	corsHeaders = strings.Join([]string{"Content-Type", "Accept", identity.SessionHeaderName}, ", ")
)

// CORS returns middleware that handles CORS headers. Only explicitly listed
// origins may send the anonymous identity cookie along.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := slices.Contains(allowedOrigins, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			explicit := origin != "" && slices.Contains(allowedOrigins, origin)

			if origin != "" && (explicit || wildcard) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				h.Set("Access-Control-Max-Age", "600")
				if explicit {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AllowedOrigins returns the CORS origins for a configured frontend URL.
func AllowedOrigins(frontendURL string) []string {
	if frontendURL == "" {
		return []string{"*"}
	}
	return []string{strings.TrimRight(frontendURL, "/")}
}
