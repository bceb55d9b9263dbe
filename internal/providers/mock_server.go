// Package providers contains test doubles for upstream text-generation APIs.
// MockServer speaks enough of the OpenAI-compatible and Anthropic wire
// formats to exercise the adapters, including Server-Sent Events streams.
package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServer is a mock HTTP server for testing provider adapters.
// It simulates provider API responses including errors and streaming.
type MockServer struct {
	server *httptest.Server

	mu           sync.Mutex
	responses    map[string]MockResponse
	requestCount int
	lastBody     []byte
	lastHeaders  http.Header
}

// MockResponse defines a mock response configuration.
type MockResponse struct {
	StatusCode int
	Body       interface{}
	Delay      time.Duration
	Headers    map[string]string

	// StreamEvents are raw SSE event blocks written verbatim, each followed
	// by a blank line. Use OpenAIStream or AnthropicStream to build them.
	StreamEvents []string

	// ChunkDelay is the pause between stream events.
	ChunkDelay time.Duration

	// Hang keeps a stream open after the last event until the client goes away.
	Hang bool
}

// NewMockServer creates and starts a new mock server.
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses: make(map[string]MockResponse),
	}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))
	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.CloseClientConnections()
	ms.server.Close()
}

// SetResponse sets a mock response for a specific endpoint.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[path] = response
}

// GetRequestCount returns the number of requests received.
func (ms *MockServer) GetRequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.requestCount
}

// LastRequest returns the body and headers of the most recent request.
func (ms *MockServer) LastRequest() ([]byte, http.Header) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.lastBody, ms.lastHeaders
}

func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ms.mu.Lock()
	ms.requestCount++
	ms.lastBody = body
	ms.lastHeaders = r.Header.Clone()
	response, ok := ms.responses[r.URL.Path]
	ms.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}

	if len(response.StreamEvents) > 0 || response.Hang {
		ms.handleStream(w, r, response)
		return
	}

	if response.StatusCode == 0 {
		response.StatusCode = http.StatusOK
	}
	w.WriteHeader(response.StatusCode)

	switch v := response.Body.(type) {
	case nil:
	case string:
		_, _ = w.Write([]byte(v))
	case []byte:
		_, _ = w.Write(v)
	default:
		_ = json.NewEncoder(w).Encode(v)
	}
}

// handleStream writes Server-Sent Events, flushing after each one.
func (ms *MockServer) handleStream(w http.ResponseWriter, r *http.Request, response MockResponse) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for i, event := range response.StreamEvents {
		if i > 0 && response.ChunkDelay > 0 {
			select {
			case <-time.After(response.ChunkDelay):
			case <-r.Context().Done():
				return
			}
		}
		fmt.Fprintf(w, "%s\n\n", event)
		flusher.Flush()
	}

	if response.Hang {
		<-r.Context().Done()
	}
}

// OpenAIResponse creates a buffered OpenAI-compatible chat completion body.
func OpenAIResponse(content, model string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]interface{}{
			{
				"index": 0,
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]interface{}{
			"prompt_tokens":     10,
			"completion_tokens": 20,
			"total_tokens":      30,
		},
	}
}

// OpenAIStreamChunk creates one OpenAI-compatible "data:" event carrying delta.
func OpenAIStreamChunk(delta string, finishReason string) string {
	choice := map[string]interface{}{
		"index": 0,
		"delta": map[string]interface{}{"content": delta},
	}
	if finishReason != "" {
		choice["finish_reason"] = finishReason
	} else {
		choice["finish_reason"] = nil
	}
	chunk := map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   "deepseek-chat",
		"choices": []map[string]interface{}{choice},
	}

	b, _ := json.Marshal(chunk)
	return "data: " + string(b)
}

// OpenAIStream builds a complete OpenAI-compatible stream: one event per
// delta, a final stop event, and the [DONE] sentinel.
func OpenAIStream(deltas ...string) []string {
	events := make([]string, 0, len(deltas)+2)
	for _, d := range deltas {
		events = append(events, OpenAIStreamChunk(d, ""))
	}
	events = append(events, OpenAIStreamChunk("", "stop"))
	return append(events, "data: [DONE]")
}

// AnthropicResponse creates a buffered Anthropic messages body.
func AnthropicResponse(content, model string) map[string]interface{} {
	return map[string]interface{}{
		"id":   "msg_123",
		"type": "message",
		"role": "assistant",
		"content": []map[string]interface{}{
			{"type": "text", "text": content},
		},
		"model":       model,
		"stop_reason": "end_turn",
		"usage": map[string]interface{}{
			"input_tokens":  10,
			"output_tokens": 20,
		},
	}
}

// AnthropicStreamEvent creates one named Anthropic SSE event.
func AnthropicStreamEvent(eventType string, data interface{}) string {
	b, _ := json.Marshal(data)
	return fmt.Sprintf("event: %s\ndata: %s", eventType, b)
}

// AnthropicStream builds a complete Anthropic stream around deltas, from
// message_start to message_stop.
func AnthropicStream(deltas ...string) []string {
	events := []string{
		AnthropicStreamEvent("message_start", map[string]interface{}{
			"type": "message_start",
			"message": map[string]interface{}{
				"id":    "msg_123",
				"model": "claude-3-5-haiku-latest",
				"usage": map[string]interface{}{"input_tokens": 10, "output_tokens": 0},
			},
		}),
		AnthropicStreamEvent("content_block_start", map[string]interface{}{
			"type":          "content_block_start",
			"index":         0,
			"content_block": map[string]interface{}{"type": "text", "text": ""},
		}),
		"event: ping\ndata: {\"type\": \"ping\"}",
	}
	for _, d := range deltas {
		events = append(events, AnthropicStreamEvent("content_block_delta", map[string]interface{}{
			"type":  "content_block_delta",
			"index": 0,
			"delta": map[string]interface{}{"type": "text_delta", "text": d},
		}))
	}
	return append(events,
		AnthropicStreamEvent("content_block_stop", map[string]interface{}{"type": "content_block_stop", "index": 0}),
		AnthropicStreamEvent("message_delta", map[string]interface{}{
			"type":  "message_delta",
			"delta": map[string]interface{}{"stop_reason": "end_turn"},
			"usage": map[string]interface{}{"output_tokens": 20},
		}),
		AnthropicStreamEvent("message_stop", map[string]interface{}{"type": "message_stop"}),
	)
}

// ErrorResponse creates an error response in the shape both APIs use.
func ErrorResponse(statusCode int, message string) MockResponse {
	return MockResponse{
		StatusCode: statusCode,
		Body: map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
				"type":    "invalid_request_error",
			},
		},
	}
}
