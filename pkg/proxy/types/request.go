package types

import "encoding/json"

// InterpretRequest is the body of POST /api/interpret/bazi.
type InterpretRequest struct {
	// Provider selects a registered provider. Empty means the default.
	Provider string `json:"provider,omitempty"`

	// Payload is the chart to interpret. It is decoded by the interpret
	// package so that HTTP and WebSocket share one validation path.
	Payload json.RawMessage `json:"payload"`
}
