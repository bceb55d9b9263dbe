package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tianji-hq/oracle/pkg/config"
)

const appOrigin = "https://app.tianji.example"

func TestCORSMiddleware(t *testing.T) {
	restricted := NewCORSConfig(config.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{appOrigin},
		MaxAge:         600,
	})
	wildcard := DefaultCORSConfig()
	disabled := NewCORSConfig(config.CORSConfig{Enabled: false})
	withCredentials := NewCORSConfig(config.CORSConfig{Enabled: true, AllowedOrigins: []string{appOrigin}})
	withCredentials.AllowCredentials = true

	tests := []struct {
		name        string
		cfg         *CORSConfig
		method      string
		origin      string
		wantStatus  int
		wantHeaders map[string]string
	}{
		{
			name:       "allowed origin is echoed",
			cfg:        restricted,
			method:     http.MethodPost,
			origin:     appOrigin,
			wantStatus: http.StatusOK,
			wantHeaders: map[string]string{
				"Access-Control-Allow-Origin":   appOrigin,
				"Access-Control-Expose-Headers": "X-Request-ID, X-Trace-ID",
			},
		},
		{
			name:        "unknown origin gets nothing",
			cfg:         restricted,
			method:      http.MethodPost,
			origin:      "https://evil.example",
			wantStatus:  http.StatusOK,
			wantHeaders: map[string]string{"Access-Control-Allow-Origin": ""},
		},
		{
			name:        "wildcard without origin header",
			cfg:         wildcard,
			method:      http.MethodGet,
			wantStatus:  http.StatusOK,
			wantHeaders: map[string]string{"Access-Control-Allow-Origin": "*"},
		},
		{
			name:       "preflight short-circuits",
			cfg:        restricted,
			method:     http.MethodOptions,
			origin:     appOrigin,
			wantStatus: http.StatusNoContent,
			wantHeaders: map[string]string{
				"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
				"Access-Control-Allow-Headers": "Authorization, Content-Type, X-Request-ID",
				"Access-Control-Max-Age":       "600",
			},
		},
		{
			name:        "credentials flag",
			cfg:         withCredentials,
			method:      http.MethodPost,
			origin:      appOrigin,
			wantStatus:  http.StatusOK,
			wantHeaders: map[string]string{"Access-Control-Allow-Credentials": "true"},
		},
		{
			name:        "disabled passes options through",
			cfg:         disabled,
			method:      http.MethodOptions,
			origin:      appOrigin,
			wantStatus:  http.StatusOK,
			wantHeaders: map[string]string{"Access-Control-Allow-Origin": ""},
		},
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/interpret/bazi", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			CORSMiddleware(tt.cfg)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			for k, want := range tt.wantHeaders {
				if got := rec.Header().Get(k); got != want {
					t.Errorf("%s = %q, want %q", k, got, want)
				}
			}
		})
	}
}

func TestNewCORSConfig_KeepsDefaultsForEmptyLists(t *testing.T) {
	c := NewCORSConfig(config.CORSConfig{Enabled: true})
	if len(c.AllowedOrigins) != 1 || c.AllowedOrigins[0] != "*" {
		t.Errorf("origins = %v, want [*]", c.AllowedOrigins)
	}
	if c.MaxAge != 3600 {
		t.Errorf("max age = %d, want 3600", c.MaxAge)
	}
}
