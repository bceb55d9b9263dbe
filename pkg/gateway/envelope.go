package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message types on the wire.
const (
	TypeAIRequest = "bazi_ai_request"

	TypeConnected = "connected"
	TypeStart     = "start"
	TypeChunk     = "chunk"
	TypeDone      = "done"
	TypeError     = "error"
)

// ErrMalformedMessage is returned by ParseInbound for text that is not a
// JSON object of a known shape.
var ErrMalformedMessage = errors.New("malformed message")

// Inbound is a client message. The set of implementations is closed:
// AIRequest and Unrecognized.
type Inbound interface {
	inbound()
}

// AIRequest asks for one streamed interpretation.
//
// A token or provider of the wrong JSON type does not make the message
// malformed. It is carried as BadToken or BadProvider and fails the
// authorization or provider step like an unknown value would.
type AIRequest struct {
	Token    string
	Payload  json.RawMessage
	Provider string

	BadToken    bool
	BadProvider bool
}

func (AIRequest) inbound() {}

// Unrecognized is any well-formed message with an unknown type.
type Unrecognized struct {
	Type string
}

func (Unrecognized) inbound() {}

// ParseInbound decodes a text frame into its message variant.
func ParseInbound(data []byte) (Inbound, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch head.Type {
	case TypeAIRequest:
		var raw struct {
			Token    json.RawMessage `json:"token"`
			Payload  json.RawMessage `json:"payload"`
			Provider json.RawMessage `json:"provider"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		req := AIRequest{Payload: raw.Payload}
		var ok bool
		if req.Token, ok = stringField(raw.Token); !ok {
			req.BadToken = true
		}
		if req.Provider, ok = stringField(raw.Provider); !ok {
			req.BadProvider = true
		}
		return req, nil
	default:
		return Unrecognized{Type: head.Type}, nil
	}
}

// stringField decodes an optional string member. Absent and null read as
// "". Any other non-string value reports false.
func stringField(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", true
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	switch v := v.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	default:
		return "", false
	}
}

// Outbound is a server message.
type Outbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}

// Connected is sent once the session is open.
func Connected() Outbound { return Outbound{Type: TypeConnected} }

// Start is sent before the first chunk of a generation.
func Start() Outbound { return Outbound{Type: TypeStart} }

// Chunk carries one text delta.
func Chunk(content string) Outbound { return Outbound{Type: TypeChunk, Content: content} }

// Done is sent after the last chunk.
func Done() Outbound { return Outbound{Type: TypeDone} }

// Error reports a failure to the client.
func Error(message string) Outbound { return Outbound{Type: TypeError, Message: message} }
