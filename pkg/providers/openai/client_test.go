package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	testhelpers "tianji-hq/oracle/internal/providers"
	"tianji-hq/oracle/pkg/providers"
)

const completionsPath = "/chat/completions"

func newTestProvider(t *testing.T, baseURL string) *Provider {
	t.Helper()
	provider, err := NewProvider(testhelpers.TestConfigWithURL("deepseek", "openai", baseURL))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	provider.SetBackoff(func(int) time.Duration { return time.Millisecond })
	t.Cleanup(func() { provider.Close() })
	return provider
}

func TestNewProvider_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*providers.ProviderConfig)
		field  string
	}{
		{name: "missing name", mutate: func(c *providers.ProviderConfig) { c.Name = "" }, field: "name"},
		{name: "missing api key", mutate: func(c *providers.ProviderConfig) { c.APIKey = "" }, field: "api_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testhelpers.TestConfig("deepseek", "openai")
			tt.mutate(&cfg)

			_, err := NewProvider(cfg)
			var cfgErr *providers.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %T: %v", err, err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, cfgErr.Field)
			}
		})
	}
}

func TestNewProvider_DefaultBaseURL(t *testing.T) {
	cfg := testhelpers.TestConfig("deepseek", "")
	cfg.BaseURL = ""

	provider, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	if got := provider.GetConfig().BaseURL; got != DefaultBaseURL {
		t.Errorf("expected base URL %q, got %q", DefaultBaseURL, got)
	}
	if got := provider.GetType(); got != providers.TypeOpenAI {
		t.Errorf("expected type %q, got %q", providers.TypeOpenAI, got)
	}
}

func TestProvider_SendCompletion(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse(completionsPath, testhelpers.MockResponse{
		StatusCode: 200,
		Body:       testhelpers.OpenAIResponse("Your chart favours wood.", "deepseek-chat"),
	})

	provider := newTestProvider(t, mock.URL())
	req := testhelpers.TestStreamingRequest("You are an astrologer.", "Read my chart.")
	req.Stream = false

	resp, err := provider.SendCompletion(context.Background(), req)
	if err != nil {
		t.Fatalf("SendCompletion failed: %v", err)
	}
	if resp.Content != "Your chart favours wood." {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.FinishReason != providers.FinishReasonStop {
		t.Errorf("expected finish reason stop, got %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 30 {
		t.Errorf("expected 30 total tokens, got %d", resp.Usage.TotalTokens)
	}

	body, headers := mock.LastRequest()
	if got := headers.Get("Authorization"); got != "Bearer test-key" {
		t.Errorf("expected bearer auth header, got %q", got)
	}

	var sent OpenAIRequest
	if err := json.Unmarshal(body, &sent); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	if sent.Model != "test-model" {
		t.Errorf("expected configured model to be filled in, got %q", sent.Model)
	}
	if sent.Stream {
		t.Error("buffered request must not ask for a stream")
	}
	if len(sent.Messages) != 2 || sent.Messages[0].Role != providers.RoleSystem {
		t.Errorf("expected system then user messages, got %+v", sent.Messages)
	}
}

func TestProvider_SendCompletion_Errors(t *testing.T) {
	tests := []struct {
		name     string
		response testhelpers.MockResponse
		check    func(t *testing.T, err error)
		requests int
	}{
		{
			name:     "unauthorized",
			response: testhelpers.ErrorResponse(401, "bad key"),
			check: func(t *testing.T, err error) {
				var authErr *providers.AuthError
				if !errors.As(err, &authErr) {
					t.Fatalf("expected AuthError, got %T: %v", err, err)
				}
			},
			requests: 1,
		},
		{
			name:     "rate limited",
			response: testhelpers.ErrorResponse(429, "slow down"),
			check: func(t *testing.T, err error) {
				var rlErr *providers.RateLimitError
				if !errors.As(err, &rlErr) {
					t.Fatalf("expected RateLimitError, got %T: %v", err, err)
				}
			},
			requests: 1,
		},
		{
			name:     "server error is retried",
			response: testhelpers.ErrorResponse(503, "overloaded"),
			check: func(t *testing.T, err error) {
				var provErr *providers.ProviderError
				if !errors.As(err, &provErr) || provErr.StatusCode != 503 {
					t.Fatalf("expected ProviderError 503, got %T: %v", err, err)
				}
			},
			requests: 3,
		},
		{
			name:     "malformed body",
			response: testhelpers.MockResponse{StatusCode: 200, Body: "{not json"},
			check: func(t *testing.T, err error) {
				var parseErr *providers.ParseError
				if !errors.As(err, &parseErr) {
					t.Fatalf("expected ParseError, got %T: %v", err, err)
				}
			},
			requests: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testhelpers.NewMockServer()
			defer mock.Close()
			mock.SetResponse(completionsPath, tt.response)

			provider := newTestProvider(t, mock.URL())
			_, err := provider.SendCompletion(context.Background(), testhelpers.TestStreamingRequest("s", "u"))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			tt.check(t, err)

			if got := mock.GetRequestCount(); got != tt.requests {
				t.Errorf("expected %d requests, got %d", tt.requests, got)
			}
		})
	}
}

func TestProvider_SendCompletion_Timeout(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	mock.SetResponse(completionsPath, testhelpers.MockResponse{
		StatusCode: 200,
		Body:       testhelpers.OpenAIResponse("late", "deepseek-chat"),
		Delay:      time.Second,
	})

	cfg := testhelpers.TestConfigWithURL("deepseek", "openai", mock.URL())
	cfg.Timeout = 50 * time.Millisecond
	provider, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer provider.Close()

	_, err = provider.SendCompletion(context.Background(), testhelpers.TestStreamingRequest("s", "u"))
	var timeoutErr *providers.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
}

func TestProvider_ValidationError(t *testing.T) {
	provider := newTestProvider(t, "http://localhost:1")

	tests := []struct {
		name    string
		req     *providers.CompletionRequest
		wantErr string
	}{
		{name: "nil request", req: nil, wantErr: "request cannot be nil"},
		{name: "no messages", req: &providers.CompletionRequest{}, wantErr: "at least one message is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := provider.StreamCompletion(context.Background(), tt.req)
			var valErr *providers.ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected ValidationError, got %T: %v", err, err)
			}
			if !strings.Contains(valErr.Message, tt.wantErr) {
				t.Errorf("expected message to contain %q, got %q", tt.wantErr, valErr.Message)
			}
		})
	}
}
