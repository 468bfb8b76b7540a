package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ashureev/vigil/internal/identity"
)

func run(origins []string, method, origin string) *httptest.ResponseRecorder {
	h := CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(method, "/api/chat", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORSExplicitOrigin(t *testing.T) {
	t.Parallel()

	rec := run([]string{"https://vigil.example"}, http.MethodGet, "https://vigil.example")
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, request should pass through", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("explicit origin should allow credentials")
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), identity.SessionHeaderName) {
		t.Fatalf("session header not allowed: %q", rec.Header().Get("Access-Control-Allow-Headers"))
	}
}

func TestCORSWildcardNoCredentials(t *testing.T) {
	t.Parallel()

	rec := run([]string{"*"}, http.MethodGet, "https://elsewhere.example")
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://elsewhere.example" {
		t.Fatal("wildcard should echo the origin")
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatal("wildcard must not allow credentials")
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	t.Parallel()

	rec := run([]string{"https://vigil.example"}, http.MethodGet, "https://evil.example")
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unknown origin should get no CORS headers")
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	rec := run([]string{"*"}, http.MethodOptions, "https://vigil.example")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
}

func TestAllowedOrigins(t *testing.T) {
	t.Parallel()

	if got := AllowedOrigins("https://vigil.example/", false); len(got) != 1 || got[0] != "https://vigil.example" {
		t.Fatalf("AllowedOrigins = %v", got)
	}
	if got := AllowedOrigins("http://localhost:5173", true); got[0] != "*" {
		t.Fatalf("dev AllowedOrigins = %v", got)
	}
}
