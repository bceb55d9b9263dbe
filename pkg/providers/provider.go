package providers

import "context"

// Provider is the interface every text-generation adapter implements.
//
// All methods accept a context.Context for cancellation. Implementations must
// return promptly once the context is cancelled.
type Provider interface {
	// SendCompletion performs a buffered request bounded by the provider's
	// configured timeout. It makes one attempt unless MaxRetries is set.
	SendCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// StreamCompletion opens a streamed request and yields incremental
	// chunks until the provider signals completion. No timeout is applied
	// beyond ctx.
	//
	// The caller must read from the channel until it closes. If the stream
	// fails, the final chunk carries the error.
	//
	//  chunks, err := provider.StreamCompletion(ctx, req)
	//  if err != nil {
	//      return err
	//  }
	//  for chunk := range chunks {
	//      if chunk.Error != nil {
	//          return chunk.Error
	//      }
	//      fmt.Print(chunk.Delta)
	//  }
	StreamCompletion(ctx context.Context, req *CompletionRequest) (<-chan *StreamChunk, error)

	// GetName returns the provider's configured name.
	GetName() string

	// GetType returns the adapter type ("openai", "anthropic", "mock").
	GetType() string

	// IsHealthy reports whether recent requests succeeded.
	IsHealthy() bool

	// GetHealth returns request outcome counters.
	GetHealth() ProviderHealth

	// Close releases idle connections.
	Close() error
}
