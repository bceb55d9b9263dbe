package providers

import "time"

// Message is a single chat message. Adapters map it to the provider's own
// message shape.
type Message struct {
	// Role identifies the message sender (system, user, assistant)
	Role string `json:"role"`

	// Content is the message text content
	Content string `json:"content"`
}

// TokenUsage tracks token consumption for a request.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is a provider-agnostic completion request.
type CompletionRequest struct {
	// Model is the model identifier. Empty means the provider's configured model.
	Model string `json:"model"`

	// Messages is the conversation, system prompt first.
	Messages []Message `json:"messages"`

	// Temperature controls randomness.
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Stream indicates whether to stream the response.
	Stream bool `json:"stream,omitempty"`

	// Fallback is the deterministic text offline providers return. It is
	// never sent upstream.
	Fallback string `json:"-"`
}

// CompletionResponse is a provider-agnostic completion response.
type CompletionResponse struct {
	ID           string     `json:"id"`
	Model        string     `json:"model"`
	Content      string     `json:"content"`
	FinishReason string     `json:"finish_reason"`
	Usage        TokenUsage `json:"usage"`
}

// StreamChunk is one incremental piece of a streamed response.
type StreamChunk struct {
	// Delta is the incremental content in this chunk
	Delta string `json:"delta"`

	// FinishReason is set in the final chunk to indicate why generation stopped
	FinishReason string `json:"finish_reason,omitempty"`

	// Usage is included in the final chunk (if supported by provider)
	Usage *TokenUsage `json:"usage,omitempty"`

	// Error is set on the last chunk if the stream failed
	Error error `json:"-"`
}

// ProviderHealth tracks request outcomes for a provider.
type ProviderHealth struct {
	// IsHealthy is false after three consecutive failed requests
	IsHealthy bool

	// LastError is the most recent error encountered (nil if healthy)
	LastError error

	// ConsecutiveFailures counts sequential failed requests
	ConsecutiveFailures int

	// LastSuccessfulRequest is the timestamp of the last successful request
	LastSuccessfulRequest time.Time

	TotalRequests  int64
	FailedRequests int64
}

// ProviderConfig contains the settings an adapter needs. It is built from
// config.ProviderConfig by the provider factory.
type ProviderConfig struct {
	// Name is the provider identifier (e.g., "openai", "anthropic")
	Name string

	// Type is the adapter type (openai, anthropic, mock)
	Type string

	// BaseURL is the API endpoint base URL
	BaseURL string

	// APIKey is the authentication key
	APIKey string

	// Model is used when a request does not name one
	Model string

	// MaxTokens is used when a request does not set it
	MaxTokens int

	// Temperature is used when a request does not set it
	Temperature float64

	// Timeout bounds buffered requests. Streamed requests are not subject to it.
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for buffered requests
	MaxRetries int

	// ChunkDelay is the pause between streamed words (mock only)
	ChunkDelay time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Finish reason constants
const (
	FinishReasonStop   = "stop"
	FinishReasonLength = "length"
)

// Provider type constants
const (
	TypeOpenAI    = "openai"
	TypeAnthropic = "anthropic"
	TypeMock      = "mock"
)
