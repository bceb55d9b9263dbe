package providers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&ProviderError{Provider: "openai", StatusCode: 500, Message: "internal"}, `provider "openai" error (status 500): internal`},
		{&ProviderError{Provider: "openai", Message: "down"}, `provider "openai" error: down`},
		{&AuthError{Provider: "anthropic", Message: "bad key"}, `provider "anthropic" authentication failed: bad key`},
		{&RateLimitError{Provider: "openai", RetryAfter: 10 * time.Second, Message: "slow down"}, "retry after 10s"},
		{&TimeoutError{Provider: "openai", Timeout: 30 * time.Second}, "timeout after 30s"},
		{&StreamError{Provider: "openai", Message: "read failed"}, `provider "openai" stream error: read failed`},
		{&ConfigError{Provider: "openai", Field: "api_key", Message: "required"}, `field "api_key": required`},
		{&UnknownProviderError{Provider: "gemini"}, `unknown provider "gemini"`},
	}

	for _, tt := range tests {
		if !strings.Contains(tt.err.Error(), tt.want) {
			t.Errorf("%T: expected %q in %q", tt.err, tt.want, tt.err.Error())
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := context.DeadlineExceeded

	wrapped := []error{
		&ProviderError{Provider: "p", Cause: cause},
		&TimeoutError{Provider: "p", Cause: cause},
		&ParseError{Provider: "p", Cause: cause},
		&StreamError{Provider: "p", Cause: cause},
	}
	for _, err := range wrapped {
		if !errors.Is(err, cause) {
			t.Errorf("%T does not unwrap to its cause", err)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: &AuthError{Provider: "openai"}, want: "auth"},
		{err: &RateLimitError{Provider: "openai"}, want: "rate_limit"},
		{err: &TimeoutError{Provider: "openai"}, want: "timeout"},
		{err: context.DeadlineExceeded, want: "timeout"},
		{err: &ParseError{Provider: "openai"}, want: "parse"},
		{err: &StreamError{Provider: "deepseek"}, want: "stream"},
		{err: &ProviderError{Provider: "deepseek", StatusCode: 502}, want: "upstream"},
		{err: context.Canceled, want: "canceled"},
		{err: errors.New("boom"), want: "other"},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
