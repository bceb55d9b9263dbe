package providers

import (
	"testing"
	"time"

	"tianji-hq/oracle/pkg/providers"
)

// TestConfig returns a provider configuration pointing at localhost.
func TestConfig(name, providerType string) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                name,
		Type:                providerType,
		BaseURL:             "http://localhost:8080",
		APIKey:              "test-key",
		Model:               "test-model",
		MaxTokens:           256,
		Timeout:             5 * time.Second,
		MaxRetries:          0,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	}
}

// TestConfigWithURL returns a test config with a specific base URL.
func TestConfigWithURL(name, providerType, baseURL string) providers.ProviderConfig {
	config := TestConfig(name, providerType)
	config.BaseURL = baseURL
	return config
}

// TestStreamingRequest creates a streaming request with a system and a user prompt.
func TestStreamingRequest(system, user string) *providers.CompletionRequest {
	return &providers.CompletionRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: system},
			{Role: providers.RoleUser, Content: user},
		},
		Stream: true,
	}
}

// CollectStreamChunks drains a stream channel, stopping at the first error chunk.
func CollectStreamChunks(t *testing.T, chunks <-chan *providers.StreamChunk) ([]*providers.StreamChunk, error) {
	t.Helper()

	var collected []*providers.StreamChunk
	timeout := time.After(5 * time.Second)
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return collected, nil
			}
			if chunk.Error != nil {
				return collected, chunk.Error
			}
			collected = append(collected, chunk)
		case <-timeout:
			t.Fatal("stream did not finish within 5s")
			return collected, nil
		}
	}
}

// ConcatenateChunks concatenates the delta content from all chunks.
func ConcatenateChunks(chunks []*providers.StreamChunk) string {
	var result string
	for _, chunk := range chunks {
		result += chunk.Delta
	}
	return result
}
