package mock

import (
	"context"
	"time"
	"unicode"

	"tianji-hq/oracle/pkg/providers"
)

// DefaultChunkDelay is used when the configuration leaves the delay unset.
const DefaultChunkDelay = 30 * time.Millisecond

// Provider is the offline provider.
type Provider struct {
	name  string
	delay time.Duration
}

// NewProvider creates a mock provider.
func NewProvider(config providers.ProviderConfig) *Provider {
	name := config.Name
	if name == "" {
		name = providers.TypeMock
	}
	delay := config.ChunkDelay
	if delay < 0 {
		delay = 0
	} else if delay == 0 {
		delay = DefaultChunkDelay
	}
	return &Provider{name: name, delay: delay}
}

// SendCompletion returns the fallback text.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	return &providers.CompletionResponse{
		ID:           "mock",
		Model:        providers.TypeMock,
		Content:      req.Fallback,
		FinishReason: providers.FinishReasonStop,
	}, nil
}

// StreamCompletion streams the fallback text one word at a time. Each chunk
// carries a word and the whitespace that follows it, so the concatenated
// chunks reproduce the text exactly.
func (p *Provider) StreamCompletion(ctx context.Context, req *providers.CompletionRequest) (<-chan *providers.StreamChunk, error) {
	words := SplitWords(req.Fallback)
	chunks := make(chan *providers.StreamChunk)

	go func() {
		defer close(chunks)

		for i, w := range words {
			if i > 0 && p.delay > 0 {
				select {
				case <-time.After(p.delay):
				case <-ctx.Done():
					return
				}
			}
			select {
			case chunks <- &providers.StreamChunk{Delta: w}:
			case <-ctx.Done():
				return
			}
		}

		select {
		case chunks <- &providers.StreamChunk{FinishReason: providers.FinishReasonStop}:
		case <-ctx.Done():
		}
	}()

	return chunks, nil
}

// SplitWords splits s after each run of whitespace. Leading whitespace is
// kept on the first word.
func SplitWords(s string) []string {
	var (
		out     []string
		start   int
		inSpace bool
	)
	for i, r := range s {
		space := unicode.IsSpace(r)
		if !space && inSpace && i > start {
			// Leading whitespace stays attached to the first word.
			if len(out) > 0 || hasWord(s[start:i]) {
				out = append(out, s[start:i])
				start = i
			}
		}
		inSpace = space
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func hasWord(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

// GetName returns the provider's configured name.
func (p *Provider) GetName() string { return p.name }

// GetType returns "mock".
func (p *Provider) GetType() string { return providers.TypeMock }

// IsHealthy always reports true.
func (p *Provider) IsHealthy() bool { return true }

// GetHealth returns a healthy status.
func (p *Provider) GetHealth() providers.ProviderHealth {
	return providers.ProviderHealth{IsHealthy: true}
}

// Close is a no-op.
func (p *Provider) Close() error { return nil }
