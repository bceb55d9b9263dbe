// Package openai implements the adapter for OpenAI-compatible chat
// completion APIs. The default base URL points at DeepSeek, which speaks the
// same protocol.
//
// # Basic Usage
//
//	provider, err := openai.NewProvider(providers.ProviderConfig{
//	    Name:    "openai",
//	    Type:    "openai",
//	    BaseURL: "https://api.deepseek.com/v1",
//	    APIKey:  os.Getenv("ORACLE_PROVIDERS_OPENAI_API_KEY"),
//	    Model:   "deepseek-chat",
//	})
//
// # Streaming
//
// Streamed responses are Server-Sent Events whose data lines carry
// choices[].delta.content. The stream ends at a "data: [DONE]" line or when
// the connection closes.
//
//	data: {"choices":[{"delta":{"content":"Hel"}}]}
//	data: {"choices":[{"delta":{"content":"lo"}}]}
//	data: [DONE]
package openai
