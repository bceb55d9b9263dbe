package gateway_test

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tianji-hq/oracle/pkg/gateway"
	"tianji-hq/oracle/pkg/limits/admission"
	"tianji-hq/oracle/pkg/providerfactory"
	"tianji-hq/oracle/pkg/providers"
	"tianji-hq/oracle/pkg/security/auth"
	"tianji-hq/oracle/pkg/wire"
)

const (
	streamPath = "/ws/ai"
	origin     = "https://app.example.com"
	payload    = `{"pillars":{"year":{"stem":"庚","branch":"午"},"month":{"stem":"壬","branch":"午"},"day":{"stem":"甲","branch":"子"},"hour":{"stem":"丙","branch":"寅"}},"gender":"male"}`
)

type testServer struct {
	*httptest.Server
	handler *gateway.Handler
	guard   *admission.Guard
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	manager := providerfactory.NewManager()
	if err := manager.AddProvider(providers.ProviderConfig{
		Name:       "mock",
		Type:       providers.TypeMock,
		ChunkDelay: time.Millisecond,
	}); err != nil {
		t.Fatalf("add mock provider: %v", err)
	}
	manager.SetDefault("mock")

	guard := admission.NewGuard(true, 0)
	authorizer := auth.NewTokenValidator([]*auth.TokenInfo{
		{Token: "secret-token", User: auth.User{ID: "u-1", Name: "Test"}},
	})

	dispatcher := gateway.NewDispatcher(gateway.DispatcherOptions{
		Authorizer:    authorizer,
		Guard:         guard,
		Resolver:      manager,
		Generator:     providers.NewGenerator(manager, providers.GeneratorOptions{}),
		DeniedMessage: "already running",
	})
	handler := gateway.NewHandler(gateway.HandlerOptions{
		Negotiator: wire.NewNegotiator(wire.NegotiatorConfig{
			Path:           streamPath,
			MaxURLLength:   128,
			AllowedOrigins: []string{origin},
		}),
		Dispatcher: dispatcher,
		Session:    gateway.SessionOptions{MaxPayloadBytes: 4096},
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := handler.Registry().Drain(ctx); err != nil {
			t.Errorf("drain: %v", err)
		}
		srv.Close()
	})
	return &testServer{Server: srv, handler: handler, guard: guard}
}

func (ts *testServer) wsURL(path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func dial(t *testing.T, ts *testServer, header http.Header) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(ts.wsURL(streamPath), header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("status = %d, want 101", resp.StatusCode)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) gateway.Outbound {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	var msg gateway.Outbound
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	return msg
}

func TestHandler_EndToEnd(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts, http.Header{"Origin": []string{origin}})

	if msg := readEnvelope(t, conn); msg.Type != gateway.TypeConnected {
		t.Fatalf("first envelope = %+v, want connected", msg)
	}

	req := `{"type":"bazi_ai_request","token":"secret-token","provider":"mock","payload":` + payload + `}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(req)); err != nil {
		t.Fatalf("write request: %v", err)
	}

	if msg := readEnvelope(t, conn); msg.Type != gateway.TypeStart {
		t.Fatalf("envelope = %+v, want start", msg)
	}

	var (
		chunks  int
		content strings.Builder
	)
	for {
		msg := readEnvelope(t, conn)
		if msg.Type == gateway.TypeDone {
			break
		}
		if msg.Type != gateway.TypeChunk {
			t.Fatalf("envelope = %+v, want chunk or done", msg)
		}
		chunks++
		content.WriteString(msg.Content)
	}
	if chunks == 0 {
		t.Fatal("no chunks received before done")
	}
	if !strings.Contains(content.String(), "甲") {
		t.Errorf("streamed text does not mention the day master: %q", content.String())
	}

	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		t.Fatalf("expected close frame, got %v", err)
	}
	if closeErr.Code != websocket.CloseNormalClosure {
		t.Errorf("close code = %d, want 1000", closeErr.Code)
	}

	if ts.guard.Holding("u-1") {
		t.Error("admission slot held after completion")
	}
}

func TestHandler_ErrorBeforeClose(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts, nil)
	readEnvelope(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readEnvelope(t, conn)
	if msg.Type != gateway.TypeError || msg.Message != gateway.MessageMalformed {
		t.Fatalf("envelope = %+v, want malformed error", msg)
	}

	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseProtocolError) {
		t.Fatalf("expected close 1002, got %v", err)
	}
}

func TestHandler_OversizedFrame(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts, nil)
	readEnvelope(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("x", 8192))); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readEnvelope(t, conn)
	if msg.Message != gateway.MessagePayloadTooLarge {
		t.Fatalf("envelope = %+v, want payload too large", msg)
	}
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseMessageTooBig) {
		t.Fatalf("expected close 1009, got %v", err)
	}
}

// rawUpgrade sends a handshake by hand and returns whatever the server
// wrote before closing the connection.
func rawUpgrade(t *testing.T, ts *testServer, target string, extra string) string {
	t.Helper()
	conn, err := net.Dial("tcp", ts.Listener.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req := "GET " + target + " HTTP/1.1\r\n" +
		"Host: example\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Version: 13\r\n" +
		extra + "\r\n"
	if _, err := io.WriteString(conn, req); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	out, err := io.ReadAll(bufio.NewReader(conn))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(out)
}

func TestHandler_Rejections(t *testing.T) {
	ts := newTestServer(t)
	upgrade := "Upgrade: websocket\r\nSec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n"

	tests := []struct {
		name   string
		target string
		extra  string
		want   string
	}{
		{
			name:   "url too long",
			target: streamPath + "?pad=" + strings.Repeat("a", 200),
			extra:  upgrade,
			want:   "HTTP/1.1 414 ",
		},
		{
			name:   "wrong path",
			target: "/ws/other",
			extra:  upgrade,
			want:   "",
		},
		{
			name:   "origin not allowed",
			target: streamPath,
			extra:  upgrade + "Origin: https://evil.example.com\r\n",
			want:   "HTTP/1.1 403 Forbidden\r\n",
		},
		{
			name:   "missing key",
			target: streamPath,
			extra:  "Upgrade: websocket\r\n",
			want:   "",
		},
		{
			name:   "upgrade not websocket",
			target: streamPath,
			extra:  "Upgrade: h2c\r\nSec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rawUpgrade(t, ts, tt.target, tt.extra)
			if tt.want == "" {
				if got != "" {
					t.Errorf("expected silent close, got %q", got)
				}
				return
			}
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("response = %q, want prefix %q", got, tt.want)
			}
		})
	}
}

func TestHandler_AcceptHeader(t *testing.T) {
	ts := newTestServer(t)
	got := rawHandshakePrefix(t, ts)
	if !strings.HasPrefix(got, "HTTP/1.1 101 Switching Protocols\r\n") {
		t.Fatalf("unexpected response %q", got)
	}
	if !strings.Contains(got, "Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n") {
		t.Errorf("missing accept key in %q", got)
	}
}

// rawHandshakePrefix completes a handshake by hand and returns the response
// head.
func rawHandshakePrefix(t *testing.T, ts *testServer) string {
	t.Helper()
	conn, err := net.Dial("tcp", ts.Listener.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req := "GET " + streamPath + " HTTP/1.1\r\nHost: example\r\nUpgrade: websocket\r\nConnection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\nSec-WebSocket-Version: 13\r\n\r\n"
	if _, err := io.WriteString(conn, req); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}

	r := bufio.NewReader(conn)
	var head strings.Builder
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		head.WriteString(line)
		if line == "\r\n" {
			return head.String()
		}
	}
}

func TestRegistry_DrainClosesSessions(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts, nil)
	readEnvelope(t, conn)

	deadline := time.Now().Add(5 * time.Second)
	for ts.handler.Registry().Count() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("session never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ts.handler.Registry().Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("expected close 1001, got %v", err)
	}
	if n := ts.handler.Registry().Count(); n != 0 {
		t.Errorf("registry count = %d after drain", n)
	}
}
