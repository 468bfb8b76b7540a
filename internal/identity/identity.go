// Package identity assigns every request a chat session id.
package identity

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// SessionHeaderName carries the session id in both directions.
const SessionHeaderName = "X-Vigil-Session-ID"

type contextKey int

const sessionIDKey contextKey = iota

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// SessionIDFromContext extracts the session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// WithSessionID returns a context carrying sessionID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

func sanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if !sessionIDPattern.MatchString(id) {
		return ""
	}
	return id
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get("session_id")
	}
	return sanitizeSessionID(sid)
}

// Middleware resolves the session id from the header or the session_id query
// parameter, minting a new one when absent or malformed, and echoes it back
// in the response header so clients can keep the conversation going.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := sessionIDFromRequest(r)
		if sessionID == "" {
			sessionID = NewSessionID()
		}
		w.Header().Set(SessionHeaderName, sessionID)
		next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
	})
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
