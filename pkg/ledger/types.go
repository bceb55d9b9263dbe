package ledger

import (
	"context"
	"time"
)

// Generation outcomes.
const (
	StatusSuccess  = "success"
	StatusFallback = "fallback"
	StatusError    = "error"
)

// Record is one finished generation.
type Record struct {
	// ID uniquely identifies the record (UUID).
	ID string `json:"id"`

	// RequestID is the HTTP request ID, empty for stream generations.
	RequestID string `json:"request_id,omitempty"`

	// SessionID is the stream session ID, empty for HTTP generations.
	SessionID string `json:"session_id,omitempty"`

	UserID       string `json:"user_id"`
	Provider     string `json:"provider"`
	ProviderType string `json:"provider_type"`

	// Transport is "websocket" or "http".
	Transport string `json:"transport"`

	// Mode is "stream" or "buffered".
	Mode string `json:"mode"`

	// Status is one of StatusSuccess, StatusFallback or StatusError.
	Status    string `json:"status"`
	ErrorType string `json:"error_type,omitempty"`
	Error     string `json:"error,omitempty"`

	Chunks int `json:"chunks"`
	Bytes  int `json:"bytes"`

	// OutputHash is the hex SHA-256 of the delivered text.
	OutputHash string `json:"output_hash,omitempty"`

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`

	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// Query selects records. Zero fields do not filter.
type Query struct {
	UserID    string
	Provider  string
	Transport string
	Status    string

	// StartTime and EndTime bound StartedAt, inclusive.
	StartTime *time.Time
	EndTime   *time.Time

	// Limit defaults to 100. Results are newest first.
	Limit  int
	Offset int
}

// Store persists records.
type Store interface {
	// Store writes one record.
	Store(ctx context.Context, record *Record) error

	// Query returns matching records, newest first.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of matching records.
	Count(ctx context.Context, query *Query) (int64, error)

	// DeleteBefore removes records started before cutoff and returns how
	// many were removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}
