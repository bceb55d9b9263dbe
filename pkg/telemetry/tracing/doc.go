// Package tracing provides OpenTelemetry tracing for the Oracle gateway.
//
// # Overview
//
// A Tracer exports spans to an OTLP gRPC collector. When tracing is
// disabled it wraps a no-op provider, so it can be handed to components
// unconditionally. The provider adapter opens one span per generation; the
// HTTP middleware extracts W3C Trace Context from incoming requests so
// those spans join the caller's trace.
//
// # Trace Context Propagation
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//	tracestate: congo=t61rcWkgMzE
//
// # Sampling
//
// Root spans are sampled by trace ID ratio (telemetry.tracing.sample_ratio).
// Child spans follow their parent's decision.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	generator := providers.NewGenerator(manager, providers.GeneratorOptions{
//		Tracer: tracer,
//	})
package tracing
