package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"tianji-hq/oracle/pkg/coalesce"
	"tianji-hq/oracle/pkg/config"
	"tianji-hq/oracle/pkg/gateway"
	"tianji-hq/oracle/pkg/ledger"
	"tianji-hq/oracle/pkg/ledger/recorder"
	"tianji-hq/oracle/pkg/ledger/retention"
	"tianji-hq/oracle/pkg/ledger/storage"
	"tianji-hq/oracle/pkg/limits/admission"
	"tianji-hq/oracle/pkg/providerfactory"
	"tianji-hq/oracle/pkg/providers"
	"tianji-hq/oracle/pkg/proxy/handlers"
	"tianji-hq/oracle/pkg/security/auth"
	tlsutil "tianji-hq/oracle/pkg/security/tls"
	"tianji-hq/oracle/pkg/telemetry/health"
	"tianji-hq/oracle/pkg/telemetry/logging"
	"tianji-hq/oracle/pkg/telemetry/metrics"
	"tianji-hq/oracle/pkg/telemetry/tracing"
	"tianji-hq/oracle/pkg/wire"
)

// BuildInfo identifies the running binary on /version and in traces.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Options configures a Server.
type Options struct {
	// Store supplies the configuration and its reloads.
	Store *config.Store

	// Logger is the process logger. Its level and redaction secrets follow
	// configuration reloads.
	Logger *logging.Logger

	// Registry receives the Prometheus collectors. Defaults to a fresh
	// registry.
	Registry *prometheus.Registry

	Build BuildInfo
}

// Server is the gateway process: the WebSocket stream, the HTTP API and
// everything they share (providers, admission, the ledger, telemetry).
type Server struct {
	store  *config.Store
	logger *logging.Logger
	log    *slog.Logger
	build  BuildInfo

	manager    *providerfactory.Manager
	guard      *admission.Guard
	authorizer *auth.TokenValidator
	negotiator *wire.Negotiator
	dispatcher *gateway.Dispatcher
	stream     *gateway.Handler
	interpret  *handlers.InterpretHandler
	coalescer  *coalesce.Cache[string]
	generator  *providers.Generator

	collector *metrics.Collector
	tracer    *tracing.Tracer
	health    *health.Checker

	ledger    ledger.Store
	recorder  *recorder.Recorder
	scheduler *retention.Scheduler

	certs     *tlsutil.CertificateReloader
	tlsConfig *tls.Config

	handler    http.Handler
	httpServer *http.Server

	mu        sync.Mutex
	running   bool
	closeOnce sync.Once
}

// New builds every component from the store's current configuration.
// Nothing listens until Run or Serve is called.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("server: config store is required")
	}
	if opts.Logger == nil {
		l, err := logging.New(logging.Config{Level: "info", Format: "json", Redact: true})
		if err != nil {
			return nil, err
		}
		opts.Logger = l
	}
	cfg := opts.Store.Get()

	s := &Server{
		store:  opts.Store,
		logger: opts.Logger,
		log:    opts.Logger.With("component", "server"),
		build:  opts.Build,
	}

	if err := s.init(cfg, opts.Registry); err != nil {
		s.Close()
		return nil, err
	}

	s.store.OnChange(s.apply)
	s.applySecrets(cfg)
	return s, nil
}

func (s *Server) init(cfg *config.Config, registry *prometheus.Registry) error {
	log := s.logger.Logger

	manager, err := providerfactory.NewManagerFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to load providers: %w", err)
	}
	s.manager = manager

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, s.build.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.tracer = tracer

	s.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, registry)
	observers := []providers.Observer{s.collector.ObserveGeneration}

	if cfg.Ledger.Enabled {
		store, err := storage.Open(cfg.Ledger)
		if err != nil {
			return fmt.Errorf("failed to open ledger: %w", err)
		}
		s.ledger = store
		s.recorder = recorder.New(store, nil, log)
		observers = append(observers, s.recorder.Observe)

		pruner := retention.NewPruner(store, retention.Config{
			RetentionDays: cfg.Ledger.RetentionDays,
			PruneSchedule: cfg.Ledger.PruneSchedule,
		}, log)
		s.scheduler = retention.NewScheduler(pruner)
	}

	s.generator = providers.NewGenerator(s.manager, providers.GeneratorOptions{
		StreamTimeout: cfg.Stream.StreamTimeout,
		Tracer:        s.tracer,
		Observers:     observers,
		Logger:        log,
	})

	s.guard = admission.NewGuard(cfg.Admission.Enabled, cfg.Admission.MaxInFlight)
	s.collector.WatchAdmission(s.guard)
	s.authorizer = auth.NewTokenValidatorFromConfig(cfg.Auth)

	s.negotiator = wire.NewNegotiator(wire.NegotiatorConfig{
		Path:           cfg.Stream.Path,
		MaxURLLength:   cfg.Stream.MaxURLLength,
		AllowedOrigins: cfg.Stream.AllowedOrigins,
	})
	s.dispatcher = gateway.NewDispatcher(gateway.DispatcherOptions{
		Authorizer:         s.authorizer,
		Guard:              s.guard,
		Resolver:           s.manager,
		Generator:          s.generator,
		DeniedMessage:      cfg.Admission.DeniedMessage,
		CancelOnDisconnect: cfg.Stream.CancelOnDisconnect,
		Metrics:            s.collector,
		Logger:             log,
	})
	s.stream = gateway.NewHandler(gateway.HandlerOptions{
		Negotiator: s.negotiator,
		Dispatcher: s.dispatcher,
		Session: gateway.SessionOptions{
			MaxPayloadBytes: cfg.Stream.MaxPayloadBytes,
			Metrics:         s.collector,
			Logger:          log,
		},
		Logger: log,
	})

	s.coalescer = coalesce.New[string]()
	s.collector.WatchCoalescer("interpret", s.coalescer)
	s.interpret = handlers.NewInterpretHandler(handlers.InterpretOptions{
		Guard:         s.guard,
		Resolver:      s.manager,
		Generator:     s.generator,
		Cache:         s.coalescer,
		DeniedMessage: cfg.Admission.DeniedMessage,
		Logger:        log,
	})

	s.health = health.New(5 * time.Second)
	s.health.RegisterCheck("providers", health.ProvidersCheck(s.manager))
	if s.ledger != nil {
		s.health.RegisterCheck("ledger", health.PingCheck(s.ledger))
	}
	s.health.RegisterInfo("open_sessions", func() any { return s.stream.Registry().Count() })
	s.health.RegisterInfo("sessions_total", func() any { return s.stream.Registry().Total() })
	s.health.RegisterInfo("admission_in_flight", func() any { return s.guard.InFlight() })

	if cfg.Server.TLS.Enabled {
		certs, err := tlsutil.NewCertificateReloader(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile, log)
		if err != nil {
			return fmt.Errorf("failed to load TLS certificate: %w", err)
		}
		s.certs = certs
		if s.tlsConfig, err = tlsutil.ServerConfig(cfg.Server.TLS, certs); err != nil {
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	s.handler = s.routes(cfg)
	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		TLSConfig:      s.tlsConfig,
		ErrorLog:       slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}
	return nil
}

// Handler returns the root handler: upgrades go to the stream, everything
// else to the HTTP router.
func (s *Server) Handler() http.Handler { return s.handler }

// Sessions returns the live stream sessions.
func (s *Server) Sessions() *gateway.Registry { return s.stream.Registry() }

// Listen opens the configured listener, capped at MaxConnections and
// wrapped in TLS when enabled.
func (s *Server) Listen() (net.Listener, error) {
	cfg := s.store.Get().Server
	ln, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddress, err)
	}
	return s.wrapListener(ln, cfg.MaxConnections), nil
}

func (s *Server) wrapListener(ln net.Listener, maxConns int) net.Listener {
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
	}
	return ln
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled or the listener fails, then
// shuts down gracefully. Background work (certificate reload, ledger
// pruning) runs for as long as Serve does.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("starting gateway",
			"address", ln.Addr().String(),
			"tls_enabled", s.tlsConfig != nil,
			"stream_path", s.negotiator.Path(),
			"version", s.build.Version,
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if s.certs != nil {
		g.Go(func() error { return s.certs.Run(gctx) })
	}
	if s.scheduler != nil {
		if err := s.scheduler.Start(gctx); err != nil {
			s.log.Error("failed to start ledger retention", "error", err)
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		timeout := s.store.Get().Server.ShutdownTimeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown stops accepting work. Readiness reports draining first, open
// sessions are closed with 1001, then in-flight HTTP requests are given
// until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down gateway", "sessions", s.stream.Registry().Count())
	s.health.SetDraining(true)

	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	var errs []error
	if err := s.stream.Registry().Drain(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to drain sessions: %w", err))
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down http server: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		s.log.Error("shutdown incomplete", "error", err)
		return err
	}
	s.log.Info("gateway stopped")
	return nil
}

// Close releases providers, flushes the ledger and the tracer. Call it
// after Serve has returned.
func (s *Server) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		if s.recorder != nil {
			if err := s.recorder.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if s.ledger != nil {
			if err := s.ledger.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if s.manager != nil {
			if err := s.manager.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if s.tracer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.tracer.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
