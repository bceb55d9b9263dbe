package wire

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAcceptKey(t *testing.T) {
	// Example from RFC 6455 section 1.3.
	got := AcceptKey("dGhlIHNhbXBsZSBub25jZQ==")
	if got != "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=" {
		t.Errorf("unexpected accept key %q", got)
	}
}

func upgradeRequest(target string, mutate func(*http.Request)) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.Header.Set("Upgrade", "websocket")
	r.Header.Set("Connection", "Upgrade")
	r.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	r.Header.Set("Sec-WebSocket-Version", "13")
	if mutate != nil {
		mutate(r)
	}
	return r
}

func TestNegotiator_Validate(t *testing.T) {
	n := NewNegotiator(NegotiatorConfig{
		Path:           "/ws/ai",
		MaxURLLength:   64,
		AllowedOrigins: []string{"https://app.example.com"},
	})

	tests := []struct {
		name       string
		req        *http.Request
		wantReason RejectReason
		wantStatus int
	}{
		{
			name: "valid without origin",
			req:  upgradeRequest("/ws/ai", nil),
		},
		{
			name: "valid with allowed origin and mixed case upgrade",
			req: upgradeRequest("/ws/ai", func(r *http.Request) {
				r.Header.Set("Origin", "https://App.Example.com")
				r.Header.Set("Upgrade", "WebSocket")
			}),
		},
		{
			name:       "url too long wins over everything else",
			req:        upgradeRequest("/elsewhere?q="+strings.Repeat("x", 100), nil),
			wantReason: RejectURLTooLong,
			wantStatus: http.StatusRequestURITooLong,
		},
		{
			name:       "wrong path",
			req:        upgradeRequest("/ws/other", nil),
			wantReason: RejectPath,
		},
		{
			name: "path checked before origin",
			req: upgradeRequest("/ws/other", func(r *http.Request) {
				r.Header.Set("Origin", "https://evil.example.com")
			}),
			wantReason: RejectPath,
		},
		{
			name: "origin not allowed",
			req: upgradeRequest("/ws/ai", func(r *http.Request) {
				r.Header.Set("Origin", "https://evil.example.com")
			}),
			wantReason: RejectOrigin,
			wantStatus: http.StatusForbidden,
		},
		{
			name: "origin checked before upgrade header",
			req: upgradeRequest("/ws/ai", func(r *http.Request) {
				r.Header.Set("Origin", "https://evil.example.com")
				r.Header.Del("Upgrade")
			}),
			wantReason: RejectOrigin,
			wantStatus: http.StatusForbidden,
		},
		{
			name: "missing upgrade header",
			req: upgradeRequest("/ws/ai", func(r *http.Request) {
				r.Header.Del("Upgrade")
			}),
			wantReason: RejectUpgrade,
		},
		{
			name: "missing key",
			req: upgradeRequest("/ws/ai", func(r *http.Request) {
				r.Header.Del("Sec-WebSocket-Key")
			}),
			wantReason: RejectUpgrade,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := n.Validate(tt.req)
			if tt.wantReason == 0 {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}

			var rerr *RejectError
			if !errors.As(err, &rerr) {
				t.Fatalf("expected *RejectError, got %v", err)
			}
			if rerr.Reason != tt.wantReason {
				t.Errorf("expected reason %s, got %s", tt.wantReason, rerr.Reason)
			}
			if rerr.StatusCode() != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rerr.StatusCode())
			}
		})
	}
}

func TestNegotiator_SetAllowedOrigins(t *testing.T) {
	n := NewNegotiator(NegotiatorConfig{Path: "/ws/ai"})
	req := upgradeRequest("/ws/ai", func(r *http.Request) {
		r.Header.Set("Origin", "https://new.example.com")
	})

	if err := n.Validate(req); err == nil {
		t.Fatal("empty allow-list must reject any Origin")
	}

	n.SetAllowedOrigins([]string{"https://new.example.com/"})
	if err := n.Validate(req); err != nil {
		t.Fatalf("expected origin to be allowed after update, got %v", err)
	}
}

func TestWriteReject(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReject(&buf, &RejectError{Reason: RejectURLTooLong}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "HTTP/1.1 414 ") {
		t.Errorf("unexpected response %q", buf.String())
	}

	buf.Reset()
	if err := WriteReject(&buf, &RejectError{Reason: RejectPath}); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("silent reject wrote %q", buf.String())
	}
}

func TestWriteAccept(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAccept(&buf, "dGhlIHNhbXBsZSBub25jZQ=="); err != nil {
		t.Fatal(err)
	}
	resp := buf.String()
	for _, want := range []string{
		"HTTP/1.1 101 Switching Protocols\r\n",
		"Upgrade: websocket\r\n",
		"Connection: Upgrade\r\n",
		"Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n",
	} {
		if !strings.Contains(resp, want) {
			t.Errorf("response missing %q", want)
		}
	}
	if !strings.HasSuffix(resp, "\r\n\r\n") {
		t.Error("response must end with a blank line")
	}
}
