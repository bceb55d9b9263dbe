package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"tianji-hq/oracle/pkg/interpret"
	"tianji-hq/oracle/pkg/providers"
	"tianji-hq/oracle/pkg/security/auth"
	"tianji-hq/oracle/pkg/telemetry/logging"
	"tianji-hq/oracle/pkg/wire"
)

// TransportWebSocket identifies this transport to generation observers.
const TransportWebSocket = "websocket"

// Client-facing error messages.
const (
	MessageMalformed        = "Invalid message format."
	MessageUnsupportedType  = "Unsupported message type."
	MessageBusy             = "A request is already in progress on this connection."
	MessageUnauthorized     = "Authentication failed."
	MessageMissingPillars   = "Missing or invalid payload.pillars."
	MessageInvalidProvider  = "Unknown or disabled provider."
	MessageGenerationFailed = "Interpretation failed. Please try again."
)

// Admitter hands out per-user generation slots. *admission.Guard
// satisfies it.
type Admitter interface {
	Acquire(userID string) (release func(), ok bool)
}

// Resolver maps a requested provider name to a registered provider.
// *providerfactory.Manager satisfies it.
type Resolver interface {
	ResolveProvider(name string) (string, error)
}

// Generator produces interpretation text. *providers.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, req providers.GenerateRequest) (string, error)
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Authorizer auth.Authorizer
	Guard      Admitter
	Resolver   Resolver
	Generator  Generator

	// DeniedMessage is sent when the guard denies a request.
	DeniedMessage string

	// CancelOnDisconnect cancels the upstream generation when the session
	// ends. When false a generation runs to completion and its output is
	// dropped.
	CancelOnDisconnect bool

	Metrics Metrics
	Logger  *slog.Logger
}

// Dispatcher turns bazi_ai_request messages into streamed generations.
//
// Parsing, the type check and the busy check run on the session's reader
// goroutine, so they follow frame order. Everything after the busy flag is
// set runs on a goroutine of its own, and a deferred cleanup releases the
// admission slot and the busy flag however that goroutine ends.
type Dispatcher struct {
	authorizer auth.Authorizer
	guard      Admitter
	resolver   Resolver
	generator  Generator
	metrics    Metrics
	logger     *slog.Logger

	deniedMessage      atomic.Pointer[string]
	cancelOnDisconnect atomic.Bool
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	d := &Dispatcher{
		authorizer: opts.Authorizer,
		guard:      opts.Guard,
		resolver:   opts.Resolver,
		generator:  opts.Generator,
		metrics:    opts.Metrics,
		logger:     opts.Logger.With("component", "dispatcher"),
	}
	d.SetDeniedMessage(opts.DeniedMessage)
	d.cancelOnDisconnect.Store(opts.CancelOnDisconnect)
	return d
}

// SetDeniedMessage replaces the admission denial message.
func (d *Dispatcher) SetDeniedMessage(msg string) {
	d.deniedMessage.Store(&msg)
}

// SetCancelOnDisconnect changes disconnect handling for new generations.
func (d *Dispatcher) SetCancelOnDisconnect(cancel bool) {
	d.cancelOnDisconnect.Store(cancel)
}

// Dispatch implements MessageHandler.
func (d *Dispatcher) Dispatch(s *Session, text []byte) {
	msg, err := ParseInbound(text)
	if err != nil {
		s.Logger().Debug("malformed message", "error", err)
		d.reject(s, ReasonMalformed, MessageMalformed)
		s.Close(wire.CloseProtocolError, "malformed message")
		return
	}

	var req AIRequest
	switch m := msg.(type) {
	case AIRequest:
		req = m
	case Unrecognized:
		s.Logger().Debug("unsupported message type", "type", m.Type)
		d.reject(s, ReasonUnsupportedType, MessageUnsupportedType)
		return
	}

	if !s.TryBusy() {
		d.reject(s, ReasonBusy, MessageBusy)
		return
	}

	s.Go(func() { d.serve(s, req) })
}

// serve runs one request on a busy session.
func (d *Dispatcher) serve(s *Session, req AIRequest) {
	var (
		release func()
		// retryable is sent after the busy flag clears, so the client may
		// resend as soon as it reads the error.
		retryable *rejection
	)
	defer func() {
		if release != nil {
			release()
		}
		s.ClearBusy()
		if retryable != nil {
			d.reject(s, retryable.reason, retryable.message)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			s.Logger().Error("panic in request dispatch", "panic", fmt.Sprint(r))
			d.reject(s, ReasonGenerationFailed, MessageGenerationFailed)
			s.Close(wire.CloseInternalError, "internal error")
		}
	}()

	ctx := s.Context()
	if !d.cancelOnDisconnect.Load() {
		ctx = context.WithoutCancel(ctx)
	}

	var (
		user *auth.User
		err  error
	)
	if req.BadToken {
		err = auth.ErrInvalidToken
	} else {
		user, err = d.authorizer.AuthorizeToken(ctx, req.Token)
	}
	if err != nil {
		s.Logger().Info("authorization failed", "error", err)
		d.reject(s, ReasonUnauthorized, MessageUnauthorized)
		s.Close(wire.CloseInternalError, "authorization failed")
		return
	}
	ctx = logging.WithUser(ctx, user.ID)
	logger := s.Logger().With("user", user.ID)

	rel, ok := d.guard.Acquire(user.ID)
	if !ok {
		logger.Info("admission denied")
		retryable = &rejection{ReasonAdmission, *d.deniedMessage.Load()}
		return
	}
	release = rel

	prompt, err := buildPrompt(req)
	if err != nil {
		logger.Info("invalid payload", "error", err)
		d.reject(s, ReasonInvalidPayload, MessageMissingPillars)
		s.Close(wire.CloseUnsupportedData, "missing payload")
		return
	}

	var provider string
	if req.BadProvider {
		err = &providers.UnknownProviderError{Provider: "(non-string)"}
	} else {
		provider, err = d.resolver.ResolveProvider(req.Provider)
	}
	if err != nil {
		logger.Info("invalid provider", "provider", req.Provider, "error", err)
		retryable = &rejection{ReasonInvalidProvider, MessageInvalidProvider}
		return
	}
	ctx = logging.WithProvider(ctx, provider)

	s.Send(Start())
	_, err = d.generator.Generate(ctx, providers.GenerateRequest{
		System:    prompt.System,
		User:      prompt.User,
		Fallback:  func() string { return prompt.Fallback },
		Provider:  provider,
		OnChunk:   func(content string) { s.Send(Chunk(content)) },
		UserID:    user.ID,
		Transport: TransportWebSocket,
	})
	if err != nil {
		logger.Warn("generation failed", "provider", provider, "error", err)
		d.reject(s, ReasonGenerationFailed, MessageGenerationFailed)
		s.Close(wire.CloseInternalError, "generation failed")
		return
	}

	s.Send(Done())
	s.Close(wire.CloseNormal, "")
}

type rejection struct {
	reason  string
	message string
}

func (d *Dispatcher) reject(s *Session, reason, message string) {
	d.metrics.RequestRejected(reason)
	s.Send(Error(message))
}

// buildPrompt decodes the payload. Any payload problem, including
// incomplete pillars, is reported as interpret.ErrMissingPillars.
func buildPrompt(req AIRequest) (interpret.Prompt, error) {
	payload, err := interpret.Decode(req.Payload)
	if err != nil {
		return interpret.Prompt{}, err
	}
	prompt, err := interpret.BuildPrompt(payload)
	if err != nil {
		var invalid *interpret.InvalidPayloadError
		if errors.As(err, &invalid) {
			return interpret.Prompt{}, fmt.Errorf("%w: %v", interpret.ErrMissingPillars, err)
		}
		return interpret.Prompt{}, err
	}
	return prompt, nil
}
