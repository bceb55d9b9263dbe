package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"tianji-hq/oracle/pkg/coalesce"
	"tianji-hq/oracle/pkg/interpret"
	"tianji-hq/oracle/pkg/providers"
	"tianji-hq/oracle/pkg/proxy"
	"tianji-hq/oracle/pkg/proxy/types"
	"tianji-hq/oracle/pkg/security/auth"
	"tianji-hq/oracle/pkg/telemetry/logging"
)

// TransportHTTP identifies this transport to generation observers.
const TransportHTTP = "http"

// errDenied is the shared result of a call the admission guard refused.
var errDenied = errors.New("admission denied")

// InterpretOptions configures an InterpretHandler.
type InterpretOptions struct {
	Guard     Admitter
	Resolver  Resolver
	Generator Generator

	// Cache merges identical concurrent requests. A nil cache gets a
	// private one.
	Cache *coalesce.Cache[string]

	// DeniedMessage is the 429 body message.
	DeniedMessage string

	Logger *slog.Logger
}

// InterpretHandler serves POST /api/interpret/bazi.
//
// The caller must already be authenticated by auth.Middleware. Identical
// requests from one user (same normalized chart, question and provider)
// that arrive while one is in flight share its result. The shared call
// holds the user's admission slot, so a user streaming over WebSocket gets
// 429 here until that stream ends.
type InterpretHandler struct {
	guard     Admitter
	resolver  Resolver
	generator Generator
	cache     *coalesce.Cache[string]
	logger    *slog.Logger

	deniedMessage atomic.Pointer[string]
}

// NewInterpretHandler creates the handler.
func NewInterpretHandler(opts InterpretOptions) *InterpretHandler {
	if opts.Cache == nil {
		opts.Cache = coalesce.New[string]()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	h := &InterpretHandler{
		guard:     opts.Guard,
		resolver:  opts.Resolver,
		generator: opts.Generator,
		cache:     opts.Cache,
		logger:    opts.Logger.With("component", "interpret"),
	}
	h.SetDeniedMessage(opts.DeniedMessage)
	return h
}

// SetDeniedMessage replaces the 429 message.
func (h *InterpretHandler) SetDeniedMessage(msg string) {
	h.deniedMessage.Store(&msg)
}

// ServeHTTP implements http.Handler.
func (h *InterpretHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := auth.UserFromContext(ctx)
	if !ok {
		_ = proxy.WriteError(w, auth.ErrMissingToken)
		return
	}
	ctx = logging.WithUser(ctx, user.ID)

	req, err := proxy.ParseInterpretRequest(r)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	payload, err := interpret.Decode(req.Payload)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	prompt, err := interpret.BuildPrompt(payload)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	provider, err := h.resolver.ResolveProvider(req.Provider)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	ctx = logging.WithProvider(ctx, provider)

	fields := payload.KeyFields()
	fields["user_id"] = user.ID
	fields["provider"] = provider
	key, err := coalesce.Key(fields)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	// The shared call must not die with whichever request started it.
	callCtx := context.WithoutCancel(ctx)
	content, shared, err := h.cache.Do(ctx, key, func() (string, error) {
		release, ok := h.guard.Acquire(user.ID)
		if !ok {
			return "", errDenied
		}
		defer release()

		return h.generator.Generate(callCtx, providers.GenerateRequest{
			System:    prompt.System,
			User:      prompt.User,
			Fallback:  func() string { return prompt.Fallback },
			Provider:  provider,
			UserID:    user.ID,
			Transport: TransportHTTP,
		})
	})

	switch {
	case errors.Is(err, errDenied):
		h.logger.InfoContext(ctx, "admission denied", "shared", shared)
		_ = proxy.WriteErrorResponse(w, types.NewRateLimitError(*h.deniedMessage.Load()))
	case err != nil:
		h.fail(ctx, w, err)
	default:
		h.logger.DebugContext(ctx, "interpretation served", "shared", shared, "bytes", len(content))
		_ = proxy.WriteJSONResponse(w, http.StatusOK, types.InterpretResponse{Content: content})
	}
}

func (h *InterpretHandler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	resp := proxy.HandleError(err)
	level := slog.LevelInfo
	if resp.Error.HTTPStatusCode() >= 500 {
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, "interpretation request failed",
		"status", resp.Error.HTTPStatusCode(),
		"error", err,
	)
	_ = proxy.WriteErrorResponse(w, resp)
}
