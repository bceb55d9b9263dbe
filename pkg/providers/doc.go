// Package providers talks to the language-model backends that write chart
// interpretations.
//
// # Layers
//
//  1. Provider - the per-backend contract (SendCompletion, StreamCompletion)
//  2. HTTPProvider - shared HTTP client logic: retries with backoff,
//     status-to-error mapping and health tracking
//  3. Backends - openai (any OpenAI-compatible API, DeepSeek included),
//     anthropic, and mock
//  4. Generator - the provider-agnostic entry point used by both transports
//
// Construction by configuration lives in providerfactory.
//
// # Generating
//
// A request without OnChunk is buffered. It makes one bounded call and never
// fails: any provider error is logged and the Fallback text is returned.
//
//	text, _ := generator.Generate(ctx, providers.GenerateRequest{
//		System:   prompt.System,
//		User:     prompt.User,
//		Fallback: prompt.Fallback,
//		Provider: "deepseek",
//	})
//
// Setting OnChunk selects the streaming path. Deltas are delivered in order
// and a provider failure is returned to the caller, which ends the stream:
//
//	_, err := generator.Generate(ctx, providers.GenerateRequest{
//		System:   prompt.System,
//		User:     prompt.User,
//		Provider: "deepseek",
//		OnChunk:  func(delta string) { session.Send(gateway.Chunk(delta)) },
//	})
//
// The mock provider serves the fallback text itself, split into chunks, so
// a deployment without credentials still streams.
//
// # Observers
//
// Every finished generation is reported once to each Observer with a Result
// describing provider, mode, chunk count, duration, usage and error. The
// metrics collector and the ledger recorder are observers.
//
// # Errors
//
//   - ProviderError: non-2xx response without a more specific type
//   - AuthError: HTTP 401/403
//   - RateLimitError: HTTP 429, with RetryAfter
//   - TimeoutError: request or stream deadline exceeded
//   - ParseError: undecodable response or SSE event
//   - StreamError: the stream broke after it started
//   - UnknownProviderError: no provider is registered under the name
//
// Classify maps an error to the short label used in metrics and the ledger.
//
// # Thread Safety
//
// Providers and the Generator are safe for concurrent use.
package providers
