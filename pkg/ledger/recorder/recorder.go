package recorder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"tianji-hq/oracle/pkg/ledger"
	"tianji-hq/oracle/pkg/processing/tokens"
	"tianji-hq/oracle/pkg/providers"
	"tianji-hq/oracle/pkg/telemetry/logging"
)

var (
	// ErrClosed is returned when a record arrives after Close.
	ErrClosed = errors.New("recorder closed")

	// ErrQueueFull is returned when the write queue has no free slot.
	ErrQueueFull = errors.New("recorder queue full")
)

// Config contains configuration for the recorder.
type Config struct {
	// AsyncBuffer is the size of the write queue.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds each storage write.
	// Default: 5s
	WriteTimeout time.Duration

	// MaxErrorLength truncates stored error text.
	// Default: 500
	MaxErrorLength int

	// Estimator fills token counts when the provider reported no usage.
	// Nil leaves them at zero.
	Estimator tokens.Estimator
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		AsyncBuffer:    1000,
		WriteTimeout:   5 * time.Second,
		MaxErrorLength: 500,
		Estimator:      tokens.NewSimpleEstimator(nil),
	}
}

// Recorder turns finished generations into ledger records and writes them
// on a background worker so the caller never waits on storage.
type Recorder struct {
	store  ledger.Store
	config *Config
	queue  chan *ledger.Record
	done   chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
	now       func() time.Time
}

// New creates a recorder writing to store and starts its worker.
func New(store ledger.Store, config *Config, logger *slog.Logger) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		store:  store,
		config: config,
		queue:  make(chan *ledger.Record, config.AsyncBuffer),
		done:   make(chan struct{}),
		logger: logger.With("component", "ledger.recorder"),
		now:    time.Now,
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Debug("ledger recorder started",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)
	return r
}

// Observe records a finished generation. It has the providers.Observer
// signature.
func (r *Recorder) Observe(ctx context.Context, req *providers.GenerateRequest, res *providers.Result) {
	if err := r.Enqueue(r.Build(ctx, req, res)); err != nil {
		r.logger.Warn("dropping ledger record", "provider", res.Provider, "error", err)
	}
}

// Build converts a generation into a record.
func (r *Recorder) Build(ctx context.Context, req *providers.GenerateRequest, res *providers.Result) *ledger.Record {
	now := r.now()
	rec := &ledger.Record{
		ID:           uuid.NewString(),
		RequestID:    logging.GetRequestID(ctx),
		SessionID:    logging.GetSession(ctx),
		UserID:       req.UserID,
		Provider:     res.Provider,
		ProviderType: res.Type,
		Transport:    req.Transport,
		Mode:         res.Mode,
		Status:       status(res),
		Chunks:       res.Chunks,
		Bytes:        len(res.Content),
		StartedAt:    now.Add(-res.Duration),
		Duration:     res.Duration,
		RecordedAt:   now,
	}
	if res.Content != "" {
		rec.OutputHash = ledger.HashContent(res.Content)
	}
	switch {
	case res.Usage != nil:
		rec.PromptTokens = res.Usage.PromptTokens
		rec.CompletionTokens = res.Usage.CompletionTokens
	case r.config.Estimator != nil && !res.FellBack && res.Type != providers.TypeMock:
		// Streamed responses carry no usage block.
		rec.PromptTokens = r.config.Estimator.EstimatePrompt(req.System, req.User, res.Type)
		rec.CompletionTokens = r.config.Estimator.EstimateText(res.Content, res.Type)
	}
	if res.Err != nil {
		rec.ErrorType = providers.Classify(res.Err)
		rec.Error = truncate(res.Err.Error(), r.config.MaxErrorLength)
	}
	return rec
}

// Enqueue hands a record to the worker without waiting. A full queue
// drops the record and returns ErrQueueFull.
func (r *Recorder) Enqueue(rec *ledger.Record) error {
	select {
	case <-r.done:
		return ErrClosed
	default:
	}

	select {
	case r.queue <- rec:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting records, writes everything already queued, and
// waits for the worker to exit.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
		r.logger.Debug("ledger recorder stopped")
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for {
		select {
		case rec := <-r.queue:
			r.write(rec)
		case <-r.done:
			for {
				select {
				case rec := <-r.queue:
					r.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(rec *ledger.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.store.Store(ctx, rec); err != nil {
		r.logger.Error("failed to write ledger record",
			"record_id", rec.ID,
			"provider", rec.Provider,
			"error", err,
		)
		return
	}
	r.logger.Debug("ledger record written", "record_id", rec.ID, "status", rec.Status)
}

func status(res *providers.Result) string {
	switch {
	case res.Err != nil:
		return ledger.StatusError
	case res.FellBack:
		return ledger.StatusFallback
	default:
		return ledger.StatusSuccess
	}
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
