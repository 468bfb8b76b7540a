// Package middleware provides HTTP middleware for the VIGIL API.
package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/ashureev/vigil/internal/identity"
)

var (
	allowHeaders  = strings.Join([]string{"Content-Type", "Last-Event-ID", identity.SessionHeaderName}, ", ")
	allowMethods  = "GET, POST, OPTIONS"
	exposeHeaders = identity.SessionHeaderName
)

// AllowedOrigins derives the CORS origin list from the configured frontend
// URL. Development mode, or no frontend at all, allows any origin.
func AllowedOrigins(frontendURL string, isDev bool) []string {
	if isDev || frontendURL == "" {
		return []string{"*"}
	}
	return []string{strings.TrimRight(frontendURL, "/")}
}

// CORS returns middleware that handles CORS headers. The session header is
// both accepted and exposed so browser clients can carry the conversation.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := slices.Contains(allowedOrigins, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			explicit := origin != "" && slices.Contains(allowedOrigins, origin)

			if origin != "" && (wildcard || explicit) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", allowMethods)
				h.Set("Access-Control-Allow-Headers", allowHeaders)
				h.Set("Access-Control-Expose-Headers", exposeHeaders)
				h.Add("Vary", "Origin")
				// Credentials only for explicit origins; echoing a wildcard
				// with credentials enables CSRF.
				if explicit {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
