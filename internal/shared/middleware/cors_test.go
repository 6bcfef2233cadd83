package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsOriginAllowed(t *testing.T) {
	tests := []struct {
		name         string
		origin       string
		allowedHosts []string
		want         bool
	}{
		{
			name:         "exact match with port",
			origin:       "http://app.example.nl:8080",
			allowedHosts: []string{"app.example.nl:8080"},
			want:         true,
		},
		{
			name:         "hostname match ignoring port",
			origin:       "http://app.example.nl:3000",
			allowedHosts: []string{"app.example.nl"},
			want:         true,
		},
		{
			name:         "no match",
			origin:       "http://evil.example",
			allowedHosts: []string{"app.example.nl"},
			want:         false,
		},
		{
			name:         "case insensitive",
			origin:       "http://App.Example.NL",
			allowedHosts: []string{"app.example.nl"},
			want:         true,
		},
		{
			name:         "invalid origin URL",
			origin:       "://invalid",
			allowedHosts: []string{"app.example.nl"},
			want:         false,
		},
		{
			name:         "subdomain mismatch",
			origin:       "http://sub.app.example.nl",
			allowedHosts: []string{"app.example.nl"},
			want:         false,
		},
		{
			name:         "localhost",
			origin:       "http://localhost:3000",
			allowedHosts: []string{"localhost"},
			want:         true,
		},
		{
			name:         "entry with whitespace",
			origin:       "http://app.example.nl",
			allowedHosts: []string{"  app.example.nl  "},
			want:         true,
		},
		{
			name:         "empty allow list rejects",
			origin:       "http://app.example.nl",
			allowedHosts: nil,
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isOriginAllowed(tt.origin, tt.allowedHosts); got != tt.want {
				t.Errorf("isOriginAllowed(%q, %v) = %v, want %v", tt.origin, tt.allowedHosts, got, tt.want)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"app.example.nl"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("allowed origin gets headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/bank/accounts", nil)
		req.Header.Set("Origin", "http://app.example.nl")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://app.example.nl" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
	})

	t.Run("disallowed origin gets none", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/bank/accounts", nil)
		req.Header.Set("Origin", "http://evil.example")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
		}
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/bank/accounts", nil)
		req.Header.Set("Origin", "http://app.example.nl")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("preflight status = %d, want %d", rec.Code, http.StatusNoContent)
		}
	})
}
