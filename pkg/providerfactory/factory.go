package providerfactory

import (
	"fmt"
	"log/slog"

	"tianji-hq/oracle/pkg/config"
	"tianji-hq/oracle/pkg/providers"
	"tianji-hq/oracle/pkg/providers/anthropic"
	"tianji-hq/oracle/pkg/providers/mock"
	"tianji-hq/oracle/pkg/providers/openai"
)

// NewProvider creates a provider instance for the adapter named by
// config.Type. When Type is empty it is inferred from the provider name.
//
// Supported provider types:
//   - "openai": OpenAI-compatible chat completions (DeepSeek by default)
//   - "anthropic": Anthropic Messages API
//   - "mock": offline provider that streams the fallback text
//
// Example:
//
//	provider, err := NewProvider(providers.ProviderConfig{
//	    Name:   "deepseek",
//	    Type:   "openai",
//	    APIKey: "sk-...",
//	})
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
func NewProvider(config providers.ProviderConfig) (providers.Provider, error) {
	if config.Type == "" {
		config.Type = inferProviderType(config.Name)
	}

	slog.Debug("creating provider",
		"name", config.Name,
		"type", config.Type,
		"base_url", config.BaseURL,
	)

	var (
		provider providers.Provider
		err      error
	)
	switch config.Type {
	case providers.TypeOpenAI:
		provider, err = openai.NewProvider(config)
	case providers.TypeAnthropic:
		provider, err = anthropic.NewProvider(config)
	case providers.TypeMock:
		provider = mock.NewProvider(config)
	default:
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "type",
			Message:  fmt.Sprintf("unsupported provider type: %q (supported: openai, anthropic, mock)", config.Type),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", config.Name, err)
	}

	return provider, nil
}

// FromConfig converts a configuration entry into adapter settings. The
// stream section supplies the mock provider's word delay.
func FromConfig(name string, pc config.ProviderConfig, stream config.StreamConfig) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:        name,
		Type:        pc.Type,
		BaseURL:     pc.BaseURL,
		APIKey:      pc.APIKey,
		Model:       pc.Model,
		MaxTokens:   pc.MaxTokens,
		Temperature: pc.Temperature,
		Timeout:     pc.Timeout,
		MaxRetries:  pc.MaxRetries,
		ChunkDelay:  stream.MockChunkDelay,
	}
}

// inferProviderType infers the provider type from the provider name.
func inferProviderType(name string) string {
	switch name {
	case "anthropic", "claude":
		return providers.TypeAnthropic
	case "mock", "offline":
		return providers.TypeMock
	default:
		// deepseek, openai and most self-hosted servers speak the OpenAI protocol
		return providers.TypeOpenAI
	}
}
