package anthropic

import (
	"fmt"
	"strings"

	"tianji-hq/oracle/pkg/providers"
)

// Anthropic API request/response types

// AnthropicRequest represents an Anthropic messages request.
type AnthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []AnthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

// AnthropicMessage represents a message in Anthropic format.
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContentBlock represents a content block in a response.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// AnthropicResponse represents an Anthropic messages response.
type AnthropicResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      AnthropicUsage `json:"usage"`
}

// AnthropicUsage represents token usage in Anthropic format.
type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// AnthropicStreamEvent represents one event in Anthropic's SSE stream.
// The delta object differs by event type: content_block_delta carries text,
// message_delta carries the stop reason. Both shapes decode into StreamDelta.
type AnthropicStreamEvent struct {
	Type string `json:"type"`

	// message_start
	Message *AnthropicResponse `json:"message,omitempty"`

	// content_block_start, content_block_delta, content_block_stop
	Index        int           `json:"index,omitempty"`
	ContentBlock *ContentBlock `json:"content_block,omitempty"`

	// content_block_delta, message_delta
	Delta *StreamDelta `json:"delta,omitempty"`

	// message_delta
	Usage *AnthropicUsage `json:"usage,omitempty"`

	// error
	Error *StreamErrorBody `json:"error,omitempty"`
}

// StreamDelta is the union of content block and message deltas.
type StreamDelta struct {
	Type       string `json:"type,omitempty"`
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

// StreamErrorBody is the payload of an in-stream error event.
type StreamErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// transformRequest converts a provider-agnostic request, moving system
// messages into the dedicated system field and filling unset fields from
// the provider configuration.
func transformRequest(req *providers.CompletionRequest, cfg providers.ProviderConfig) (*AnthropicRequest, error) {
	out := &AnthropicRequest{
		Model:       req.Model,
		Messages:    make([]AnthropicMessage, 0, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      req.Stream,
	}
	if out.Model == "" {
		out.Model = cfg.Model
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = cfg.MaxTokens
	}
	// max_tokens is mandatory upstream
	if out.MaxTokens == 0 {
		out.MaxTokens = 4096
	}
	if out.Temperature == 0 {
		out.Temperature = cfg.Temperature
	}

	var system []string
	for _, msg := range req.Messages {
		if msg.Role == providers.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		out.Messages = append(out.Messages, AnthropicMessage{Role: msg.Role, Content: msg.Content})
	}
	out.System = strings.Join(system, "\n\n")

	if err := validateMessageSequence(out.Messages); err != nil {
		return nil, err
	}
	return out, nil
}

// validateMessageSequence checks that messages start with the user and
// alternate between user and assistant.
func validateMessageSequence(messages []AnthropicMessage) error {
	if len(messages) == 0 {
		return &providers.ValidationError{
			Field:   "messages",
			Message: "at least one non-system message is required",
		}
	}
	if messages[0].Role != providers.RoleUser {
		return &providers.ValidationError{
			Field:   "messages",
			Message: "first message must be from user",
		}
	}
	for i := 1; i < len(messages); i++ {
		if messages[i-1].Role == messages[i].Role {
			return &providers.ValidationError{
				Field:   "messages",
				Message: fmt.Sprintf("messages must alternate between user and assistant, found consecutive %s messages at index %d", messages[i].Role, i),
			}
		}
	}
	return nil
}

// transformResponse converts a buffered response by joining its text blocks.
func transformResponse(resp *AnthropicResponse) (*providers.CompletionResponse, error) {
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("no content blocks in response")
	}

	return &providers.CompletionResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      sb.String(),
		FinishReason: normalizeStopReason(resp.StopReason),
		Usage: providers.TokenUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

// streamState carries values announced early in a stream that later
// chunks report.
type streamState struct {
	inputTokens int
}

// transformStreamEvent converts one stream event. It returns a nil chunk for
// events that carry nothing for the caller and done=true at message_stop.
func transformStreamEvent(event *AnthropicStreamEvent, state *streamState) (chunk *providers.StreamChunk, done bool, err error) {
	switch event.Type {
	case "message_start":
		if event.Message != nil {
			state.inputTokens = event.Message.Usage.InputTokens
		}
		return nil, false, nil

	case "content_block_delta":
		if event.Delta == nil || event.Delta.Text == "" {
			return nil, false, nil
		}
		return &providers.StreamChunk{Delta: event.Delta.Text}, false, nil

	case "message_delta":
		chunk := &providers.StreamChunk{}
		if event.Delta != nil {
			chunk.FinishReason = normalizeStopReason(event.Delta.StopReason)
		}
		if event.Usage != nil {
			chunk.Usage = &providers.TokenUsage{
				PromptTokens:     state.inputTokens,
				CompletionTokens: event.Usage.OutputTokens,
				TotalTokens:      state.inputTokens + event.Usage.OutputTokens,
			}
		}
		return chunk, false, nil

	case "message_stop":
		return nil, true, nil

	case "error":
		msg := "stream error event"
		if event.Error != nil {
			msg = fmt.Sprintf("%s: %s", event.Error.Type, event.Error.Message)
		}
		return nil, false, fmt.Errorf("%s", msg)

	case "content_block_start", "content_block_stop", "ping":
		return nil, false, nil

	default:
		// New event types may be added upstream; ignore them.
		return nil, false, nil
	}
}

// normalizeStopReason maps Anthropic stop reasons to provider-agnostic values.
func normalizeStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return providers.FinishReasonStop
	case "max_tokens":
		return providers.FinishReasonLength
	default:
		return reason
	}
}
