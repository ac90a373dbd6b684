package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractClientIPDirectConnection(t *testing.T) {
	e := NewClientIPExtractor()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:54321"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")

	// Headers from an untrusted peer are ignored.
	if got := e.ExtractClientIP(r); got != "203.0.113.7" {
		t.Fatalf("got %q, want direct IP", got)
	}
}

func TestExtractClientIPBehindTrustedProxy(t *testing.T) {
	e := NewClientIPExtractor()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.5:443"
	r.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.5")

	if got := e.ExtractClientIP(r); got != "198.51.100.1" {
		t.Fatalf("got %q, want first forwarded IP", got)
	}
}

func TestExtractClientIPFallsBackToXRealIP(t *testing.T) {
	e := NewClientIPExtractor()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "127.0.0.1:8080"
	r.Header.Set("X-Real-IP", "198.51.100.2")

	if got := e.ExtractClientIP(r); got != "198.51.100.2" {
		t.Fatalf("got %q, want X-Real-IP value", got)
	}
}

func TestHeadersMiddlewareSetsDefaults(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig())
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("missing X-Frame-Options")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Fatal("missing Content-Security-Policy")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be set on plain HTTP")
	}
}
