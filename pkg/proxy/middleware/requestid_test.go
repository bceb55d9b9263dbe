package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tianji-hq/oracle/pkg/telemetry/logging"
)

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		wantSame bool
	}{
		{name: "generated when absent"},
		{name: "client id reused", incoming: "web-7f3a", wantSame: true},
		{name: "oversized client id replaced", incoming: strings.Repeat("a", maxRequestIDLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = logging.GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/interpret/bazi", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			echoed := rec.Header().Get(RequestIDHeader)
			if seen == "" || echoed != seen {
				t.Fatalf("context id %q, header id %q", seen, echoed)
			}
			if (seen == tt.incoming) != tt.wantSame {
				t.Errorf("id = %q, incoming %q, want reuse %v", seen, tt.incoming, tt.wantSame)
			}
		})
	}
}

func TestRequestIDMiddleware_Unique(t *testing.T) {
	h := RequestIDMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		id := rec.Header().Get(RequestIDHeader)
		if seen[id] {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	if id := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); id != "" {
		t.Errorf("GetRequestID = %q, want empty", id)
	}
}
