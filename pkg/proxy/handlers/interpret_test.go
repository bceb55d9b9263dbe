package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tianji-hq/oracle/pkg/coalesce"
	"tianji-hq/oracle/pkg/limits/admission"
	"tianji-hq/oracle/pkg/providers"
	"tianji-hq/oracle/pkg/proxy/types"
	"tianji-hq/oracle/pkg/security/auth"
)

const (
	chart  = `{"pillars":{"year":{"stem":"甲","branch":"子"},"month":{"stem":"丙","branch":"寅"},"day":{"stem":"戊","branch":"辰"}},"gender":"female"}`
	denied = "Please wait for your current reading."
)

type fakeResolver struct{}

func (fakeResolver) ResolveProvider(name string) (string, error) {
	switch name {
	case "", "mock":
		return "mock", nil
	default:
		return "", &providers.UnknownProviderError{Provider: name}
	}
}

type fakeGenerator struct {
	calls atomic.Int32
	fn    func(ctx context.Context, req providers.GenerateRequest) (string, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, req providers.GenerateRequest) (string, error) {
	f.calls.Add(1)
	return f.fn(ctx, req)
}

type fixture struct {
	guard   *admission.Guard
	gen     *fakeGenerator
	handler http.Handler
}

func newFixture(fn func(context.Context, providers.GenerateRequest) (string, error)) *fixture {
	f := &fixture{
		guard: admission.NewGuard(true, 0),
		gen:   &fakeGenerator{fn: fn},
	}
	h := NewInterpretHandler(InterpretOptions{
		Guard:         f.guard,
		Resolver:      fakeResolver{},
		Generator:     f.gen,
		Cache:         coalesce.New[string](),
		DeniedMessage: denied,
	})
	validator := auth.NewTokenValidator([]*auth.TokenInfo{
		{Token: "tok-alice", User: auth.User{ID: "alice"}},
		{Token: "tok-bob", User: auth.User{ID: "bob"}},
	})
	f.handler = auth.NewMiddleware(validator, nil, nil).Handle(h)
	return f
}

func (f *fixture) post(token, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/api/interpret/bazi", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func echoUser(_ context.Context, req providers.GenerateRequest) (string, error) {
	return "reading for " + req.UserID + " via " + req.Provider, nil
}

func TestInterpretHandler_Responses(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		body       string
		hold       bool
		wantStatus int
		wantText   string
	}{
		{name: "success", token: "tok-alice", body: `{"payload":` + chart + `}`, wantStatus: 200, wantText: "reading for alice via mock"},
		{name: "bad token", token: "nope", body: `{"payload":` + chart + `}`, wantStatus: 401},
		{name: "no token", body: `{"payload":` + chart + `}`, wantStatus: 401},
		{name: "invalid json", token: "tok-alice", body: `{"payload":`, wantStatus: 400},
		{name: "missing payload", token: "tok-alice", body: `{}`, wantStatus: 400},
		{name: "incomplete pillars", token: "tok-alice", body: `{"payload":{"pillars":{"year":{"stem":"甲"}}}}`, wantStatus: 400},
		{name: "unknown provider", token: "tok-alice", body: `{"provider":"gemini","payload":` + chart + `}`, wantStatus: 400},
		{name: "guard denies", token: "tok-alice", body: `{"payload":` + chart + `}`, hold: true, wantStatus: 429, wantText: denied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(echoUser)
			if tt.hold {
				release, ok := f.guard.Acquire("alice")
				if !ok {
					t.Fatal("could not pre-acquire slot")
				}
				defer release()
			}

			w := f.post(tt.token, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus == http.StatusOK {
				var resp types.InterpretResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatal(err)
				}
				if resp.Content != tt.wantText {
					t.Errorf("content = %q, want %q", resp.Content, tt.wantText)
				}
			} else if tt.wantText != "" && !strings.Contains(w.Body.String(), tt.wantText) {
				t.Errorf("body %q does not contain %q", w.Body.String(), tt.wantText)
			}

			if !tt.hold && f.guard.Holding("alice") {
				t.Error("admission slot leaked")
			}
		})
	}
}

func TestInterpretHandler_GenerationRequest(t *testing.T) {
	got := make(chan providers.GenerateRequest, 1)
	f := newFixture(func(_ context.Context, req providers.GenerateRequest) (string, error) {
		got <- req
		return "ok", nil
	})
	if w := f.post("tok-bob", `{"provider":"mock","payload":`+chart+`}`); w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}

	req := <-got
	if req.OnChunk != nil {
		t.Error("HTTP generation must not stream")
	}
	if req.Transport != TransportHTTP || req.UserID != "bob" || req.Provider != "mock" {
		t.Errorf("request = %+v", req)
	}
	if req.System == "" || req.User == "" || req.Fallback() == "" {
		t.Error("prompt fields not populated")
	}
}

func TestInterpretHandler_CoalescesIdenticalRequests(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	f := newFixture(func(_ context.Context, req providers.GenerateRequest) (string, error) {
		started <- struct{}{}
		<-release
		return "shared reading", nil
	})

	// Field order and gender case differ but identify the same chart.
	bodies := []string{
		`{"payload":` + chart + `}`,
		`{"payload":{"gender":"FEMALE","pillars":{"day":{"stem":"戊","branch":"辰"},"month":{"stem":"丙","branch":"寅"},"year":{"stem":"甲","branch":"子"}}}}`,
	}

	var wg sync.WaitGroup
	codes := make([]int, len(bodies))
	contents := make([]string, len(bodies))
	wg.Add(1)
	go func() {
		defer wg.Done()
		w := f.post("tok-alice", bodies[0])
		codes[0], contents[0] = w.Code, w.Body.String()
	}()
	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		w := f.post("tok-alice", bodies[1])
		codes[1], contents[1] = w.Code, w.Body.String()
	}()

	// Give the second request time to join the call in flight.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range bodies {
		if codes[i] != http.StatusOK || !strings.Contains(contents[i], "shared reading") {
			t.Errorf("request %d: %d %s", i, codes[i], contents[i])
		}
	}
	if n := f.gen.calls.Load(); n != 1 {
		t.Errorf("generator called %d times, want 1", n)
	}

	// A later identical request starts a new call.
	if w := f.post("tok-alice", bodies[0]); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if n := f.gen.calls.Load(); n != 2 {
		t.Errorf("generator called %d times after settle, want 2", n)
	}
}

func TestInterpretHandler_DifferentUsersDoNotShare(t *testing.T) {
	f := newFixture(echoUser)
	a := f.post("tok-alice", `{"payload":`+chart+`}`)
	b := f.post("tok-bob", `{"payload":`+chart+`}`)

	if !strings.Contains(a.Body.String(), "alice") || !strings.Contains(b.Body.String(), "bob") {
		t.Errorf("responses crossed users: %s / %s", a.Body.String(), b.Body.String())
	}
}

func TestInterpretHandler_UpstreamFailure(t *testing.T) {
	f := newFixture(func(context.Context, providers.GenerateRequest) (string, error) {
		return "", &providers.ProviderError{Provider: "mock", StatusCode: 503, Message: "overloaded"}
	})
	w := f.post("tok-alice", `{"payload":`+chart+`}`)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	if f.guard.Holding("alice") {
		t.Error("admission slot leaked after failure")
	}
}
