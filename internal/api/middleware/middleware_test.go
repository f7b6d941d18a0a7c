package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/funster-a/hackathon-backend/internal/logger"
)

func ok(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func TestAuth(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		path   string
		header map[string]string
		want   int
	}{
		{name: "disabled", key: "", path: "/api/chat", want: http.StatusOK},
		{name: "missing", key: "secret", path: "/api/chat", want: http.StatusUnauthorized},
		{name: "wrong", key: "secret", path: "/api/chat", header: map[string]string{"X-API-Key": "nope"}, want: http.StatusUnauthorized},
		{name: "api key header", key: "secret", path: "/api/chat", header: map[string]string{"X-API-Key": "secret"}, want: http.StatusOK},
		{name: "bearer", key: "secret", path: "/api/chat", header: map[string]string{"Authorization": "Bearer secret"}, want: http.StatusOK},
		{name: "health open", key: "secret", path: "/health", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			Auth(tt.key)(http.HandlerFunc(ok)).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("request ID = %q, header %q, want abc-123", seen, rec.Header().Get(RequestIDHeader))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("generated request ID = %q, header %q", seen, rec.Header().Get(RequestIDHeader))
	}
}

func TestMethod(t *testing.T) {
	h := Method(http.MethodPost, ok)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("POST status = %d, want 200", rec.Code)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS(http.HandlerFunc(ok)).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/analyze", nil))
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight status = %d, headers %v", rec.Code, rec.Header())
	}
}
