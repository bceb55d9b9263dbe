package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/google/uuid"

	"tianji-hq/oracle/pkg/telemetry/logging"
	"tianji-hq/oracle/pkg/wire"
)

// State is the lifecycle state of a session.
type State int32

// Session states. A session only moves forward.
const (
	StateOpen State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	// MessagePayloadTooLarge is sent before closing with 1009.
	MessagePayloadTooLarge = "Payload too large."

	// DefaultWriteTimeout bounds a single frame write.
	DefaultWriteTimeout = 10 * time.Second

	// lingerTimeout bounds how long a closed session waits for the peer
	// to finish sending after the close frame.
	lingerTimeout = time.Second

	readChunkSize = 4096
)

// MessageHandler receives the text frames of a session in arrival order.
// Dispatch is called on the session's reader goroutine and must not block
// on I/O; long work belongs on Session.Go.
type MessageHandler interface {
	Dispatch(s *Session, text []byte)
}

// SessionOptions configures a Session.
type SessionOptions struct {
	// MaxPayloadBytes is the largest accepted frame payload. Zero disables
	// the check.
	MaxPayloadBytes int

	// WriteTimeout bounds each frame write. Defaults to DefaultWriteTimeout.
	WriteTimeout time.Duration

	Metrics Metrics
	Logger  *slog.Logger
}

// Session is one upgraded connection.
//
// The read buffer is touched only by the reader goroutine running Serve.
// Outbound frames are queued and written by a dedicated writer goroutine;
// once the session leaves StateOpen every send is dropped.
type Session struct {
	id      string
	conn    net.Conn
	handler MessageHandler
	opts    SessionOptions
	logger  *slog.Logger
	metrics Metrics
	opened  time.Time

	buf []byte

	busy atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	cond      *sync.Cond
	state     State
	outbound  *queue.Queue
	closeCode wire.CloseCode

	tasks      sync.WaitGroup
	readerDone chan struct{}
	writerDone chan struct{}
	finishOnce sync.Once
}

// NewSession wraps an upgraded connection. seed holds bytes that arrived
// with the upgrade request and were already buffered.
func NewSession(conn net.Conn, seed []byte, handler MessageHandler, opts SessionOptions) *Session {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(logging.WithSession(context.Background(), id))

	s := &Session{
		id:         id,
		conn:       conn,
		handler:    handler,
		opts:       opts,
		logger:     opts.Logger.With("component", "gateway", "session", id),
		metrics:    opts.Metrics,
		buf:        append([]byte(nil), seed...),
		ctx:        ctx,
		cancel:     cancel,
		outbound:   queue.New(),
		readerDone: make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Context is cancelled when the session ends.
func (s *Session) Context() context.Context { return s.ctx }

// Logger returns the session-scoped logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CloseCode returns the status sent in the close frame, or zero if the
// session has not initiated a close.
func (s *Session) CloseCode() wire.CloseCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCode
}

// Busy reports whether a generation is in flight on this session.
func (s *Session) Busy() bool { return s.busy.Load() }

// TryBusy marks the session busy. It reports false if it already was.
func (s *Session) TryBusy() bool { return s.busy.CompareAndSwap(false, true) }

// ClearBusy marks the session idle.
func (s *Session) ClearBusy() { s.busy.Store(false) }

// Go runs fn on its own goroutine, tracked by Wait.
func (s *Session) Go(fn func()) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		fn()
	}()
}

// Wait blocks until the writer has stopped and every task started with Go
// has returned.
func (s *Session) Wait() {
	<-s.writerDone
	s.tasks.Wait()
}

// Serve runs the session until the connection ends. It sends the connected
// envelope, processes the seeded bytes, then reads until the peer goes away
// or the session closes.
func (s *Session) Serve() {
	s.metrics.SessionOpened()
	s.opened = time.Now()
	s.logger.Debug("session opened", "remote_addr", s.conn.RemoteAddr().String())

	go s.writeLoop()
	s.Send(Connected())

	s.readLoop()
	close(s.readerDone)

	s.abort()
	<-s.writerDone
}

// readLoop feeds the read buffer until the connection fails. Once the
// session stops accepting input the remaining bytes are discarded, so the
// peer's close reply does not reset the connection under the close frame.
func (s *Session) readLoop() {
	accepting := len(s.buf) == 0 || s.process()
	chunk := make([]byte, readChunkSize)
	for {
		n, err := s.conn.Read(chunk)
		if n > 0 && accepting {
			s.buf = append(s.buf, chunk[:n]...)
			accepting = s.process()
		}
		if err != nil {
			return
		}
	}
}

// process decodes and dispatches every complete frame in the buffer. It
// returns false once the session stops accepting input.
func (s *Session) process() bool {
	frames, rest := wire.Decode(s.buf)
	s.buf = append(s.buf[:0], rest...)

	for _, f := range frames {
		if s.State() != StateOpen {
			return false
		}
		if s.opts.MaxPayloadBytes > 0 && len(f.Payload) > s.opts.MaxPayloadBytes {
			s.tooLarge(uint64(len(f.Payload)))
			return false
		}

		switch f.Opcode {
		case wire.OpClose:
			code, _ := wire.ParseClose(f.Payload)
			s.logger.Debug("client closed session", "code", int(code))
			s.Close(wire.CloseNormal, "")
			return false
		case wire.OpPing:
			s.sendFrame(wire.Encode(f.Payload, wire.OpPong))
		case wire.OpText:
			s.handler.Dispatch(s, f.Payload)
		default:
			s.logger.Debug("ignoring frame", "opcode", f.Opcode.String())
		}
	}

	if n, ok := wire.PendingLength(s.buf); ok && s.opts.MaxPayloadBytes > 0 && n > uint64(s.opts.MaxPayloadBytes) {
		s.tooLarge(n)
		return false
	}
	return s.State() == StateOpen
}

func (s *Session) tooLarge(n uint64) {
	s.logger.Warn("frame payload too large", "bytes", n, "limit", s.opts.MaxPayloadBytes)
	s.metrics.RequestRejected(ReasonPayloadTooLarge)
	s.Send(Error(MessagePayloadTooLarge))
	s.Close(wire.CloseMessageTooBig, "payload too large")
}

// Send queues an envelope. It is a no-op once the session is closing.
func (s *Session) Send(msg Outbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to encode envelope", "type", msg.Type, "error", err)
		return
	}
	s.sendFrame(wire.Encode(data, wire.OpText))
}

func (s *Session) sendFrame(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return
	}
	s.outbound.Add(frame)
	s.cond.Signal()
}

// Close queues a close frame behind any pending output and moves the
// session to StateClosing. The connection is torn down once the close frame
// is written. Later calls are no-ops.
func (s *Session) Close(code wire.CloseCode, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return
	}
	s.state = StateClosing
	s.closeCode = code
	s.outbound.Add(wire.EncodeClose(code, reason))
	s.cond.Signal()
}

// abort drops pending output and tears the connection down. A closing
// session is left to the writer, which tears down after the close frame.
func (s *Session) abort() {
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.cond.Broadcast()
	s.mu.Unlock()
	s.conn.Close()
}

func (s *Session) writeLoop() {
	graceful := false
	defer func() { s.finish(graceful) }()

	for {
		s.mu.Lock()
		for s.outbound.Length() == 0 && s.state == StateOpen {
			s.cond.Wait()
		}
		if s.outbound.Length() == 0 || s.state == StateClosed {
			// Closing with an empty queue means the close frame went out.
			graceful = s.state == StateClosing
			s.mu.Unlock()
			return
		}
		frame := s.outbound.Remove().([]byte)
		s.mu.Unlock()

		if err := s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)); err != nil {
			s.logger.Debug("failed to set write deadline", "error", err)
		}
		if _, err := s.conn.Write(frame); err != nil {
			s.logger.Debug("write failed", "error", err)
			return
		}
	}
}

// finish tears the connection down. After a close frame was written the
// write side is shut first and the reader is given lingerTimeout to drain
// whatever the peer still sends.
func (s *Session) finish(graceful bool) {
	s.finishOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		code := s.closeCode
		s.mu.Unlock()

		if cw, ok := s.conn.(interface{ CloseWrite() error }); ok && graceful {
			if err := cw.CloseWrite(); err == nil {
				_ = s.conn.SetReadDeadline(time.Now().Add(lingerTimeout))
				<-s.readerDone
			}
		}
		s.conn.Close()
		s.cancel()

		lifetime := time.Since(s.opened)
		s.metrics.SessionClosed(int(code), lifetime)
		s.logger.Debug("session closed", "code", int(code), "duration", lifetime)
		close(s.writerDone)
	})
}
