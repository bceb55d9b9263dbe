package gateway

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tianji-hq/oracle/pkg/wire"
)

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	Negotiator *wire.Negotiator
	Registry   *Registry
	Dispatcher MessageHandler
	Session    SessionOptions
	Logger     *slog.Logger
}

// Handler upgrades HTTP requests to sessions.
//
// A rejected upgrade never gets a normal HTTP response: the connection is
// hijacked and either a bare status line is written (414, 403) or it is
// closed without a word.
type Handler struct {
	negotiator *wire.Negotiator
	registry   *Registry
	dispatcher MessageHandler
	session    SessionOptions
	logger     *slog.Logger
}

// NewHandler creates an upgrade handler.
func NewHandler(opts HandlerOptions) *Handler {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Session.Logger == nil {
		opts.Session.Logger = opts.Logger
	}
	return &Handler{
		negotiator: opts.Negotiator,
		registry:   opts.Registry,
		dispatcher: opts.Dispatcher,
		session:    opts.Session,
		logger:     opts.Logger.With("component", "gateway"),
	}
}

// Registry returns the registry sessions are tracked in.
func (h *Handler) Registry() *Registry { return h.registry }

// ServeHTTP implements http.Handler. It blocks for the lifetime of the
// session.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	verr := h.negotiator.Validate(r)

	hj, ok := w.(http.Hijacker)
	if !ok {
		h.logger.Error("response writer does not support hijacking", "path", r.URL.Path)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	conn, rw, err := hj.Hijack()
	if err != nil {
		h.logger.Error("hijack failed", "error", err)
		return
	}
	// The server may have left deadlines from its own timeouts.
	if err := conn.SetDeadline(time.Time{}); err != nil {
		h.logger.Debug("failed to clear deadlines", "error", err)
	}

	if verr != nil {
		var rej *wire.RejectError
		if errors.As(verr, &rej) {
			h.logger.Info("upgrade rejected",
				"reason", rej.Reason.String(),
				"detail", rej.Detail,
				"remote_addr", r.RemoteAddr,
			)
			if err := wire.WriteReject(rw, rej); err == nil {
				rw.Flush()
			}
		}
		conn.Close()
		return
	}

	if err := wire.WriteAccept(rw, r.Header.Get("Sec-WebSocket-Key")); err != nil {
		conn.Close()
		return
	}
	if err := rw.Flush(); err != nil {
		h.logger.Debug("failed to write handshake", "error", err)
		conn.Close()
		return
	}

	var seed []byte
	if n := rw.Reader.Buffered(); n > 0 {
		seed, _ = rw.Reader.Peek(n)
	}

	s := NewSession(conn, seed, h.dispatcher, h.session)
	h.registry.Add(s)
	defer h.registry.Remove(s)

	s.Serve()
}
