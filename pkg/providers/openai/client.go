package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"tianji-hq/oracle/pkg/providers"
)

// DefaultBaseURL is the DeepSeek endpoint, which is OpenAI-compatible.
const DefaultBaseURL = "https://api.deepseek.com/v1"

// Provider is the OpenAI-compatible provider adapter.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider creates a new OpenAI-compatible provider instance.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: providers.TypeOpenAI,
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required",
		}
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Type == "" {
		config.Type = providers.TypeOpenAI
	}

	p := &Provider{HTTPProvider: providers.NewHTTPProvider(config)}

	slog.Info("OpenAI-compatible provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
		"model", config.Model,
	)
	return p, nil
}

func (p *Provider) endpoint() string {
	return p.GetConfig().BaseURL + "/chat/completions"
}

func (p *Provider) headers(stream bool) map[string]string {
	h := map[string]string{
		"Authorization": "Bearer " + p.GetConfig().APIKey,
		"Content-Type":  "application/json",
	}
	if stream {
		h["Accept"] = "text/event-stream"
	}
	return h
}

// SendCompletion sends a buffered completion request.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	body := transformRequest(req, p.GetConfig())
	body.Stream = false

	var raw OpenAIResponse
	if err := p.DoJSONRequest(ctx, http.MethodPost, p.endpoint(), body, &raw, p.headers(false)); err != nil {
		return nil, err
	}

	resp, err := transformResponse(&raw)
	if err != nil {
		return nil, &providers.ParseError{Provider: p.GetName(), Cause: err}
	}

	slog.Debug("completion request succeeded",
		"provider", p.GetName(),
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
	)
	return resp, nil
}

// StreamCompletion sends a streaming completion request.
func (p *Provider) StreamCompletion(ctx context.Context, req *providers.CompletionRequest) (<-chan *providers.StreamChunk, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	body := transformRequest(req, p.GetConfig())
	body.Stream = true
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := p.DoStreamRequest(ctx, p.endpoint(), payload, p.headers(true))
	if err != nil {
		return nil, err
	}

	stream := newStreamReader(p.GetName(), resp.Body)
	chunks := make(chan *providers.StreamChunk, 100)

	go func() {
		defer close(chunks)
		defer stream.Close()

		for {
			chunk, err := stream.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				select {
				case chunks <- &providers.StreamChunk{Error: err}:
				case <-ctx.Done():
				}
				return
			}

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return chunks, nil
}

func validateRequest(req *providers.CompletionRequest) error {
	if req == nil {
		return &providers.ValidationError{Field: "request", Message: "request cannot be nil"}
	}
	if len(req.Messages) == 0 {
		return &providers.ValidationError{Field: "messages", Message: "at least one message is required"}
	}
	return nil
}
