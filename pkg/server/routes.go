package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tianji-hq/oracle/pkg/config"
	"tianji-hq/oracle/pkg/proxy"
	"tianji-hq/oracle/pkg/proxy/middleware"
	"tianji-hq/oracle/pkg/proxy/types"
	"tianji-hq/oracle/pkg/security/auth"
	"tianji-hq/oracle/pkg/telemetry/health"
	"tianji-hq/oracle/pkg/telemetry/tracing"
)

// InterpretPath is the buffered counterpart of the stream.
const InterpretPath = "/api/interpret/bazi"

func (s *Server) routes(cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(tracing.HTTPMiddleware)
	r.Use(middleware.LoggingMiddleware(s.logger.Logger))
	if cfg.Telemetry.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(s.collector))
	}
	if cfg.Server.CORS.Enabled {
		r.Use(middleware.CORSMiddleware(middleware.NewCORSConfig(cfg.Server.CORS)))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		_ = proxy.WriteErrorResponse(w, types.NewErrorResponse("Not found", types.ErrorTypeNotFound, "", ""))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		_ = proxy.WriteErrorResponse(w, types.NewErrorResponse("Method not allowed", types.ErrorTypeMethodNotAllowed, "", ""))
	})

	r.Get("/health", s.health.LivenessHandler())
	r.Get("/ready", s.health.ReadinessHandler())
	r.Get("/version", health.VersionHandler(s.build.Version, s.build.Commit, s.build.BuildTime))
	if cfg.Telemetry.Metrics.Enabled {
		r.Method(http.MethodGet, cfg.Telemetry.Metrics.Path, s.collector.Handler())
	}

	authn := auth.NewMiddleware(s.authorizer, auth.DefaultSources, func(w http.ResponseWriter, _ *http.Request, err error) {
		_ = proxy.WriteError(w, err)
	})
	r.With(authn.Handle).Post(InterpretPath, s.interpret.ServeHTTP)

	return upgradeSplit(s.stream, r)
}

// upgradeSplit sends every request carrying an Upgrade header to stream,
// which answers wrong paths and protocols the way the handshake requires.
// The HTTP middleware chain is bypassed because the connection is hijacked.
func upgradeSplit(stream, rest http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") != "" {
			stream.ServeHTTP(w, r)
			return
		}
		rest.ServeHTTP(w, r)
	})
}
