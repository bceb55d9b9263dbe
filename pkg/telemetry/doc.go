// Package telemetry groups the observability packages of the gateway.
//
// # Components
//
//   - logging: slog-based structured logging with credential redaction and
//     request, session and user attributes taken from the context
//   - metrics: Prometheus collectors for sessions, rejections, generations,
//     HTTP requests, admission and request coalescing
//   - tracing: OpenTelemetry spans exported over OTLP/gRPC, one per
//     generation, plus W3C trace context propagation for HTTP
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
// The server wires the components together:
//
//	logger, _ := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, registry)
//	tracer, _ := tracing.New(&cfg.Telemetry.Tracing, version)
//
//	generator := providers.NewGenerator(manager, providers.GeneratorOptions{
//		Tracer:    tracer,
//		Observers: []providers.Observer{collector.ObserveGeneration},
//		Logger:    logger.Logger,
//	})
//
// # Redaction
//
// When telemetry.logging.redact is set, attributes named like credentials
// (token, api_key, authorization) are masked, and resolved secret values are
// replaced wherever they appear in log output.
package telemetry
