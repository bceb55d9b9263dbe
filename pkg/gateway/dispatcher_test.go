package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"tianji-hq/oracle/pkg/limits/admission"
	"tianji-hq/oracle/pkg/providers"
	"tianji-hq/oracle/pkg/security/auth"
	"tianji-hq/oracle/pkg/wire"
)

const (
	testToken     = "tok-alice"
	testUserID    = "alice"
	testDenied    = "busy elsewhere"
	validPayload  = `{"pillars":{"year":{"stem":"甲","branch":"子"},"month":{"stem":"丙","branch":"寅"},"day":{"stem":"戊","branch":"辰"}}}`
	missingPillar = `{"gender":"female"}`
)

func aiRequest(token, provider, payload string) string {
	return fmt.Sprintf(`{"type":"bazi_ai_request","token":%q,"provider":%q,"payload":%s}`, token, provider, payload)
}

type fakeAuthorizer map[string]*auth.User

func (f fakeAuthorizer) AuthorizeToken(_ context.Context, token string) (*auth.User, error) {
	if u, ok := f[token]; ok {
		return u, nil
	}
	return nil, auth.ErrInvalidToken
}

type fakeResolver struct{}

func (fakeResolver) ResolveProvider(name string) (string, error) {
	switch name {
	case "", "mock":
		return "mock", nil
	case "deepseek":
		return "deepseek", nil
	default:
		return "", &providers.UnknownProviderError{Provider: name}
	}
}

type fakeGenerator func(ctx context.Context, req providers.GenerateRequest) (string, error)

func (f fakeGenerator) Generate(ctx context.Context, req providers.GenerateRequest) (string, error) {
	return f(ctx, req)
}

func streamWords(words ...string) fakeGenerator {
	return func(_ context.Context, req providers.GenerateRequest) (string, error) {
		var out string
		for _, w := range words {
			req.OnChunk(w)
			out += w
		}
		return out, nil
	}
}

type dispatchFixture struct {
	guard *admission.Guard
	gen   fakeGenerator
}

func newDispatchFixture() *dispatchFixture {
	return &dispatchFixture{
		guard: admission.NewGuard(true, 0),
		gen:   streamWords("Wood ", "feeds ", "Fire."),
	}
}

func (f *dispatchFixture) dispatcher() *Dispatcher {
	return NewDispatcher(DispatcherOptions{
		Authorizer:    fakeAuthorizer{testToken: {ID: testUserID, Email: "alice@example.com"}},
		Guard:         f.guard,
		Resolver:      fakeResolver{},
		Generator:     f.gen,
		DeniedMessage: testDenied,
	})
}

func TestDispatcher_StateTable(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, f *dispatchFixture) (cleanup func())
		message   string
		wantTypes []string
		wantError string
		wantClose wire.CloseCode // zero means the session stays open
	}{
		{
			name:      "not json",
			message:   `{"type":`,
			wantTypes: []string{TypeError},
			wantError: MessageMalformed,
			wantClose: wire.CloseProtocolError,
		},
		{
			name:      "unsupported type",
			message:   `{"type":"bazi_request","token":"tok-alice"}`,
			wantTypes: []string{TypeError},
			wantError: MessageUnsupportedType,
		},
		{
			name:      "authorization fails",
			message:   aiRequest("wrong", "mock", validPayload),
			wantTypes: []string{TypeError},
			wantError: MessageUnauthorized,
			wantClose: wire.CloseInternalError,
		},
		{
			name:      "numeric token",
			message:   `{"type":"bazi_ai_request","token":12345,"provider":"mock","payload":` + validPayload + `}`,
			wantTypes: []string{TypeError},
			wantError: MessageUnauthorized,
			wantClose: wire.CloseInternalError,
		},
		{
			name: "guard denies",
			setup: func(t *testing.T, f *dispatchFixture) func() {
				release, ok := f.guard.Acquire(testUserID)
				if !ok {
					t.Fatal("could not pre-acquire slot")
				}
				return release
			},
			message:   aiRequest(testToken, "mock", validPayload),
			wantTypes: []string{TypeError},
			wantError: testDenied,
		},
		{
			name:      "pillars missing",
			message:   aiRequest(testToken, "mock", missingPillar),
			wantTypes: []string{TypeError},
			wantError: MessageMissingPillars,
			wantClose: wire.CloseUnsupportedData,
		},
		{
			name:      "payload absent",
			message:   `{"type":"bazi_ai_request","token":"tok-alice"}`,
			wantTypes: []string{TypeError},
			wantError: MessageMissingPillars,
			wantClose: wire.CloseUnsupportedData,
		},
		{
			name:      "incomplete pillars",
			message:   aiRequest(testToken, "mock", `{"pillars":{"year":{"stem":"甲"}}}`),
			wantTypes: []string{TypeError},
			wantError: MessageMissingPillars,
			wantClose: wire.CloseUnsupportedData,
		},
		{
			name:      "unknown provider",
			message:   aiRequest(testToken, "nope", validPayload),
			wantTypes: []string{TypeError},
			wantError: MessageInvalidProvider,
		},
		{
			name:      "numeric provider",
			message:   `{"type":"bazi_ai_request","token":"tok-alice","provider":42,"payload":` + validPayload + `}`,
			wantTypes: []string{TypeError},
			wantError: MessageInvalidProvider,
		},
		{
			name: "generation fails",
			setup: func(t *testing.T, f *dispatchFixture) func() {
				f.gen = func(_ context.Context, req providers.GenerateRequest) (string, error) {
					req.OnChunk("partial ")
					return "partial ", &providers.StreamError{Provider: "deepseek", Message: "connection reset"}
				}
				return nil
			},
			message:   aiRequest(testToken, "deepseek", validPayload),
			wantTypes: []string{TypeStart, TypeChunk, TypeError},
			wantError: MessageGenerationFailed,
			wantClose: wire.CloseInternalError,
		},
		{
			name:      "completes",
			message:   aiRequest(testToken, "mock", validPayload),
			wantTypes: []string{TypeStart, TypeChunk, TypeChunk, TypeChunk, TypeDone},
			wantClose: wire.CloseNormal,
		},
		{
			name: "generation panics",
			setup: func(t *testing.T, f *dispatchFixture) func() {
				f.gen = func(context.Context, providers.GenerateRequest) (string, error) {
					panic("boom")
				}
				return nil
			},
			message:   aiRequest(testToken, "mock", validPayload),
			wantTypes: []string{TypeStart, TypeError},
			wantError: MessageGenerationFailed,
			wantClose: wire.CloseInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDispatchFixture()
			if tt.setup != nil {
				if cleanup := tt.setup(t, f); cleanup != nil {
					defer cleanup()
				}
			}

			s, c := startSession(t, f.dispatcher(), SessionOptions{}, nil)
			c.expectType(TypeConnected)
			c.sendText(tt.message)

			for _, want := range tt.wantTypes {
				msg := c.expectType(want)
				if want == TypeError && msg.Message != tt.wantError {
					t.Errorf("error message = %q, want %q", msg.Message, tt.wantError)
				}
			}

			if tt.wantClose != 0 {
				c.expectClose(tt.wantClose)
				c.expectEOF()
			} else {
				c.expectOpen()
			}

			s.tasks.Wait()
			if s.Busy() {
				t.Error("session still busy after handling")
			}
			if tt.name != "guard denies" && f.guard.Holding(testUserID) {
				t.Error("admission slot still held after handling")
			}
		})
	}
}

func TestDispatcher_BusySession(t *testing.T) {
	f := newDispatchFixture()
	unblock := make(chan struct{})
	started := make(chan struct{})
	f.gen = func(_ context.Context, req providers.GenerateRequest) (string, error) {
		close(started)
		<-unblock
		req.OnChunk("done")
		return "done", nil
	}

	s, c := startSession(t, f.dispatcher(), SessionOptions{}, nil)
	c.expectType(TypeConnected)

	c.sendText(aiRequest(testToken, "mock", validPayload))
	c.expectType(TypeStart)
	<-started

	if !s.Busy() {
		t.Fatal("session not busy during generation")
	}

	c.sendText(aiRequest(testToken, "mock", validPayload))
	msg := c.expectType(TypeError)
	if msg.Message != MessageBusy {
		t.Errorf("error message = %q, want %q", msg.Message, MessageBusy)
	}

	close(unblock)
	c.expectType(TypeChunk)
	c.expectType(TypeDone)
	c.expectClose(wire.CloseNormal)

	s.tasks.Wait()
	if s.Busy() || f.guard.Holding(testUserID) {
		t.Error("busy flag or admission slot leaked")
	}
}

func TestDispatcher_RetryAfterRecoverableError(t *testing.T) {
	f := newDispatchFixture()
	_, c := startSession(t, f.dispatcher(), SessionOptions{}, nil)
	c.expectType(TypeConnected)

	c.sendText(aiRequest(testToken, "nope", validPayload))
	c.expectType(TypeError)
	c.sendText(`{"type":"bazi_ai_request","token":"tok-alice","provider":42,"payload":` + validPayload + `}`)
	c.expectType(TypeError)

	c.sendText(aiRequest(testToken, "mock", validPayload))
	c.expectType(TypeStart)
	for i := 0; i < 3; i++ {
		c.expectType(TypeChunk)
	}
	c.expectType(TypeDone)
	c.expectClose(wire.CloseNormal)
}

func TestDispatcher_GenerationRequest(t *testing.T) {
	f := newDispatchFixture()
	got := make(chan providers.GenerateRequest, 1)
	f.gen = func(_ context.Context, req providers.GenerateRequest) (string, error) {
		got <- req
		return "", nil
	}

	_, c := startSession(t, f.dispatcher(), SessionOptions{}, nil)
	c.expectType(TypeConnected)
	c.sendText(aiRequest(testToken, "", validPayload))
	c.expectType(TypeStart)
	c.expectType(TypeDone)

	var req providers.GenerateRequest
	select {
	case req = <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("generator not called")
	}
	if req.Provider != "mock" {
		t.Errorf("provider = %q, want default %q", req.Provider, "mock")
	}
	if req.UserID != testUserID || req.Transport != TransportWebSocket {
		t.Errorf("caller = %q/%q", req.UserID, req.Transport)
	}
	if req.System == "" || req.User == "" || req.Fallback() == "" {
		t.Error("prompt fields not populated")
	}
}

func TestDispatcher_CancelOnDisconnect(t *testing.T) {
	tests := []struct {
		name       string
		cancel     bool
		wantCancel bool
	}{
		{name: "generation outlives the connection", cancel: false, wantCancel: false},
		{name: "generation cancelled with the connection", cancel: true, wantCancel: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDispatchFixture()
			started := make(chan struct{})
			result := make(chan error, 1)
			f.gen = func(ctx context.Context, req providers.GenerateRequest) (string, error) {
				close(started)
				select {
				case <-ctx.Done():
					result <- ctx.Err()
				case <-time.After(200 * time.Millisecond):
					result <- nil
				}
				return "", nil
			}
			d := f.dispatcher()
			d.SetCancelOnDisconnect(tt.cancel)

			s, c := startSession(t, d, SessionOptions{}, nil)
			c.expectType(TypeConnected)
			c.sendText(aiRequest(testToken, "mock", validPayload))
			c.expectType(TypeStart)
			<-started
			c.conn.Close()

			err := <-result
			if cancelled := errors.Is(err, context.Canceled); cancelled != tt.wantCancel {
				t.Errorf("cancelled = %v, want %v", cancelled, tt.wantCancel)
			}
			s.tasks.Wait()
			if f.guard.Holding(testUserID) {
				t.Error("admission slot leaked after disconnect")
			}
		})
	}
}
