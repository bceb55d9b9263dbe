package providers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Generation modes reported to observers.
const (
	ModeBuffered = "buffered"
	ModeStream   = "stream"
)

// Lookup finds a registered provider by name.
type Lookup interface {
	GetProvider(name string) (Provider, error)
}

// SpanStarter starts tracing spans. *tracing.Tracer satisfies it.
type SpanStarter interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
}

// GenerateRequest is one interpretation to produce.
type GenerateRequest struct {
	// System and User are the prompts sent upstream.
	System string
	User   string

	// Fallback produces the deterministic offline text. It is evaluated at
	// most once, and only when needed.
	Fallback func() string

	// Provider is the resolved provider name.
	Provider string

	// OnChunk, when set, selects the streaming path and receives every
	// text delta in order.
	OnChunk func(content string)

	// UserID and Transport describe the caller for observers.
	UserID    string
	Transport string
}

// Result describes a finished generation.
type Result struct {
	Provider string
	Type     string
	Mode     string
	Content  string
	Duration time.Duration
	Chunks   int
	FellBack bool
	Usage    *TokenUsage
	Err      error
}

// Observer is called once per generation after it finishes.
type Observer func(ctx context.Context, req *GenerateRequest, res *Result)

// GeneratorOptions configures a Generator.
type GeneratorOptions struct {
	// StreamTimeout bounds the streaming path. Zero leaves it unbounded.
	StreamTimeout time.Duration

	// Tracer records one span per generation. Defaults to a no-op tracer.
	Tracer SpanStarter

	// Observers are notified after every generation.
	Observers []Observer

	Logger *slog.Logger
}

// Generator is the provider-agnostic generation entry point shared by the
// WebSocket stream and the HTTP endpoint.
//
// Buffered generations (no OnChunk) never fail: any provider error is
// logged and replaced by the fallback text. Streamed generations propagate
// provider errors so the caller can terminate the stream.
type Generator struct {
	lookup        Lookup
	streamTimeout time.Duration
	tracer        SpanStarter
	logger        *slog.Logger

	mu        sync.RWMutex
	observers []Observer
}

// NewGenerator creates a generator over the providers known to lookup.
func NewGenerator(lookup Lookup, opts GeneratorOptions) *Generator {
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("oracle")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Generator{
		lookup:        lookup,
		streamTimeout: opts.StreamTimeout,
		tracer:        opts.Tracer,
		logger:        opts.Logger.With("component", "generator"),
		observers:     append([]Observer(nil), opts.Observers...),
	}
}

// Observe registers an additional observer.
func (g *Generator) Observe(o Observer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, o)
}

// Generate produces the interpretation text for req.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	provider, err := g.lookup.GetProvider(req.Provider)
	if err != nil {
		return "", err
	}

	fallback := func() string { return "" }
	if req.Fallback != nil {
		fallback = sync.OnceValue(req.Fallback)
	}

	mode := ModeBuffered
	if req.OnChunk != nil {
		mode = ModeStream
	}

	ctx, span := g.tracer.Start(ctx, "providers.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", provider.GetName()),
			attribute.String("llm.provider.type", provider.GetType()),
			attribute.String("oracle.generation.mode", mode),
			attribute.String("oracle.transport", req.Transport),
		),
	)
	defer span.End()

	creq := &CompletionRequest{Messages: buildMessages(req.System, req.User)}
	if provider.GetType() == TypeMock {
		creq.Fallback = fallback()
	}

	res := &Result{
		Provider: provider.GetName(),
		Type:     provider.GetType(),
		Mode:     mode,
	}
	start := time.Now()

	if mode == ModeStream {
		res.Content, res.Chunks, res.Usage, res.Err = g.stream(ctx, provider, creq, req.OnChunk)
	} else {
		res.Content, res.Usage, res.FellBack = g.buffered(ctx, provider, creq, fallback)
	}
	res.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("oracle.generation.bytes", len(res.Content)),
		attribute.Int("oracle.generation.chunks", res.Chunks),
		attribute.Bool("oracle.generation.fallback", res.FellBack),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	g.notify(ctx, &req, res)
	return res.Content, res.Err
}

// buffered performs a single bounded request and falls back on any failure.
func (g *Generator) buffered(ctx context.Context, p Provider, creq *CompletionRequest, fallback func() string) (string, *TokenUsage, bool) {
	resp, err := p.SendCompletion(ctx, creq)
	if err == nil && strings.TrimSpace(resp.Content) != "" {
		return resp.Content, &resp.Usage, false
	}

	if err == nil {
		err = errors.New("empty completion")
	}
	g.logger.Warn("buffered generation failed, using fallback text",
		"provider", p.GetName(),
		"error", err,
	)
	return fallback(), nil, true
}

// stream drains the provider's chunk channel into onChunk.
func (g *Generator) stream(ctx context.Context, p Provider, creq *CompletionRequest, onChunk func(string)) (string, int, *TokenUsage, error) {
	if g.streamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.streamTimeout)
		defer cancel()
	}

	creq.Stream = true
	chunks, err := p.StreamCompletion(ctx, creq)
	if err != nil {
		return "", 0, nil, err
	}

	var (
		sb    strings.Builder
		n     int
		usage *TokenUsage
	)
	for chunk := range chunks {
		if chunk.Error != nil {
			return sb.String(), n, usage, chunk.Error
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		if chunk.Delta == "" {
			continue
		}
		n++
		sb.WriteString(chunk.Delta)
		onChunk(chunk.Delta)
	}

	// A provider closes its channel without an error chunk when ctx ends.
	if err := ctx.Err(); err != nil {
		return sb.String(), n, usage, &StreamError{
			Provider: p.GetName(),
			Message:  "stream interrupted",
			Cause:    err,
		}
	}

	return sb.String(), n, usage, nil
}

func (g *Generator) notify(ctx context.Context, req *GenerateRequest, res *Result) {
	g.mu.RLock()
	observers := g.observers
	g.mu.RUnlock()

	for _, o := range observers {
		o(ctx, req, res)
	}
}

func buildMessages(system, user string) []Message {
	msgs := make([]Message, 0, 2)
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	return append(msgs, Message{Role: RoleUser, Content: user})
}
