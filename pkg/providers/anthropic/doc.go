// Package anthropic implements the Anthropic provider adapter.
//
// The adapter speaks the Messages API. System messages are lifted into the
// request's system field, and the remaining messages must start with the
// user and alternate.
//
// # Streaming
//
// Streamed responses are Server-Sent Events. Text arrives in
// content_block_delta events, message_delta carries the stop reason and
// output token count, and message_stop ends the stream. An in-stream error
// event is surfaced as a providers.StreamError on the final chunk.
//
//	provider, err := anthropic.NewProvider(providers.ProviderConfig{
//	    Name:   "anthropic",
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	    Model:  "claude-3-5-haiku-latest",
//	})
//	if err != nil {
//	    return err
//	}
//	chunks, err := provider.StreamCompletion(ctx, req)
//	for chunk := range chunks {
//	    if chunk.Error != nil {
//	        return chunk.Error
//	    }
//	    fmt.Print(chunk.Delta)
//	}
//
// Buffered requests are retried on network errors and 5xx responses.
// Streamed requests are attempted once and are not bounded by the
// configured timeout.
package anthropic
