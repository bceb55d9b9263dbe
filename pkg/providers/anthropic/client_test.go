package anthropic

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

const messagesPath = "/v1/messages"

func newTestProvider(t *testing.T, baseURL string) *Provider {
	t.Helper()
	provider, err := NewProvider(testhelpers.TestConfigWithURL("anthropic", "anthropic", baseURL))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	provider.SetBackoff(func(int) time.Duration { return time.Millisecond })
	t.Cleanup(func() { provider.Close() })
	return provider
}

func TestAnthropicProvider_SendCompletion(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse(messagesPath, testhelpers.MockResponse{
		StatusCode: 200,
		Body:       testhelpers.AnthropicResponse("Fire strengthens earth.", "claude-3-5-haiku-latest"),
	})

	provider := newTestProvider(t, mock.URL())
	resp, err := provider.SendCompletion(context.Background(), testhelpers.TestStreamingRequest("You are an astrologer.", "Read my chart."))
	if err != nil {
		t.Fatalf("SendCompletion failed: %v", err)
	}

	if resp.Content != "Fire strengthens earth." {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.FinishReason != providers.FinishReasonStop {
		t.Errorf("expected finish reason stop, got %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 30 {
		t.Errorf("expected total tokens 30, got %d", resp.Usage.TotalTokens)
	}

	body, headers := mock.LastRequest()
	if got := headers.Get("x-api-key"); got != "test-key" {
		t.Errorf("expected x-api-key header, got %q", got)
	}
	if got := headers.Get("anthropic-version"); got != DefaultAnthropicVersion {
		t.Errorf("expected anthropic-version %q, got %q", DefaultAnthropicVersion, got)
	}

	var sent AnthropicRequest
	if err := json.Unmarshal(body, &sent); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	if sent.System != "You are an astrologer." {
		t.Errorf("expected system prompt in system field, got %q", sent.System)
	}
	if len(sent.Messages) != 1 || sent.Messages[0].Role != providers.RoleUser {
		t.Errorf("expected a single user message, got %+v", sent.Messages)
	}
	if sent.MaxTokens != 256 || sent.Model != "test-model" {
		t.Errorf("expected configured model and max tokens, got %q/%d", sent.Model, sent.MaxTokens)
	}
	if sent.Stream {
		t.Error("buffered request must not ask for a stream")
	}
}

func TestAnthropicProvider_ValidationError(t *testing.T) {
	provider := newTestProvider(t, "http://localhost:1")

	tests := []struct {
		name    string
		req     *providers.CompletionRequest
		wantErr string
	}{
		{
			name:    "nil request",
			req:     nil,
			wantErr: "request cannot be nil",
		},
		{
			name:    "empty messages",
			req:     &providers.CompletionRequest{},
			wantErr: "at least one message is required",
		},
		{
			name: "system only",
			req: &providers.CompletionRequest{Messages: []providers.Message{
				{Role: providers.RoleSystem, Content: "sys"},
			}},
			wantErr: "non-system message",
		},
		{
			name: "assistant first",
			req: &providers.CompletionRequest{Messages: []providers.Message{
				{Role: providers.RoleAssistant, Content: "Hello"},
			}},
			wantErr: "first message must be from user",
		},
		{
			name: "not alternating",
			req: &providers.CompletionRequest{Messages: []providers.Message{
				{Role: providers.RoleUser, Content: "Hello"},
				{Role: providers.RoleUser, Content: "Hello again"},
			}},
			wantErr: "must alternate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := provider.SendCompletion(context.Background(), tt.req)
			var validationErr *providers.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %T: %v", err, err)
			}
			if !strings.Contains(validationErr.Message, tt.wantErr) {
				t.Errorf("expected error message to contain %q, got %q", tt.wantErr, validationErr.Message)
			}
		})
	}
}

func TestAnthropicProvider_StreamCompletion(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	mock.SetResponse(messagesPath, testhelpers.MockResponse{
		StreamEvents: testhelpers.AnthropicStream("Wood ", "feeds ", "fire."),
	})

	provider := newTestProvider(t, mock.URL())
	chunks, err := provider.StreamCompletion(context.Background(), testhelpers.TestStreamingRequest("s", "u"))
	if err != nil {
		t.Fatalf("StreamCompletion failed: %v", err)
	}

	collected, err := testhelpers.CollectStreamChunks(t, chunks)
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	if got := testhelpers.ConcatenateChunks(collected); got != "Wood feeds fire." {
		t.Errorf("unexpected content %q", got)
	}

	last := collected[len(collected)-1]
	if last.FinishReason != providers.FinishReasonStop {
		t.Errorf("expected stop finish reason on the message delta, got %q", last.FinishReason)
	}
	if last.Usage == nil || last.Usage.TotalTokens != 30 {
		t.Errorf("expected usage combining message_start and message_delta, got %+v", last.Usage)
	}
}

func TestAnthropicProvider_StreamErrorEvent(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	events := testhelpers.AnthropicStream("partial")
	events = append(events[:4], testhelpers.AnthropicStreamEvent("error", map[string]interface{}{
		"type":  "error",
		"error": map[string]interface{}{"type": "overloaded_error", "message": "Overloaded"},
	}))
	mock.SetResponse(messagesPath, testhelpers.MockResponse{StreamEvents: events})

	provider := newTestProvider(t, mock.URL())
	chunks, err := provider.StreamCompletion(context.Background(), testhelpers.TestStreamingRequest("s", "u"))
	if err != nil {
		t.Fatalf("StreamCompletion failed: %v", err)
	}

	collected, err := testhelpers.CollectStreamChunks(t, chunks)
	var streamErr *providers.StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("expected StreamError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "overloaded_error") {
		t.Errorf("expected upstream error type in message, got %q", err.Error())
	}
	if got := testhelpers.ConcatenateChunks(collected); got != "partial" {
		t.Errorf("expected text before the error to arrive, got %q", got)
	}
}

func TestAnthropicProvider_StreamHTTPError(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	mock.SetResponse(messagesPath, testhelpers.ErrorResponse(529, "overloaded"))

	provider := newTestProvider(t, mock.URL())
	_, err := provider.StreamCompletion(context.Background(), testhelpers.TestStreamingRequest("s", "u"))

	var provErr *providers.ProviderError
	if !errors.As(err, &provErr) || provErr.StatusCode != 529 {
		t.Fatalf("expected ProviderError 529, got %T: %v", err, err)
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("streams must not be retried, got %d requests", got)
	}
}

func TestTransformStreamEvent(t *testing.T) {
	var state streamState

	tests := []struct {
		name      string
		event     AnthropicStreamEvent
		wantDelta string
		wantChunk bool
		wantDone  bool
		wantErr   bool
	}{
		{name: "ping", event: AnthropicStreamEvent{Type: "ping"}},
		{name: "empty delta", event: AnthropicStreamEvent{Type: "content_block_delta", Delta: &StreamDelta{Type: "text_delta"}}},
		{
			name:      "text delta",
			event:     AnthropicStreamEvent{Type: "content_block_delta", Delta: &StreamDelta{Type: "text_delta", Text: "hi"}},
			wantDelta: "hi",
			wantChunk: true,
		},
		{
			name:      "message delta",
			event:     AnthropicStreamEvent{Type: "message_delta", Delta: &StreamDelta{StopReason: "max_tokens"}},
			wantChunk: true,
		},
		{name: "unknown event", event: AnthropicStreamEvent{Type: "future_event"}},
		{name: "stop", event: AnthropicStreamEvent{Type: "message_stop"}, wantDone: true},
		{name: "error", event: AnthropicStreamEvent{Type: "error"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk, done, err := transformStreamEvent(&tt.event, &state)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if done != tt.wantDone {
				t.Errorf("expected done=%v, got %v", tt.wantDone, done)
			}
			if (chunk != nil) != tt.wantChunk {
				t.Fatalf("expected chunk=%v, got %+v", tt.wantChunk, chunk)
			}
			if chunk != nil && chunk.Delta != tt.wantDelta {
				t.Errorf("expected delta %q, got %q", tt.wantDelta, chunk.Delta)
			}
		})
	}
}
