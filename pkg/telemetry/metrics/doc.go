// Package metrics provides Prometheus metrics for the Oracle gateway.
//
// # Metrics Categories
//
//   - Stream metrics: sessions opened, open, closed by close code, session
//     lifetime, and requests answered with an error envelope by reason
//   - Provider metrics: generations by provider, mode, transport and
//     outcome, duration, chunk counts, fallbacks, tokens and error types
//   - HTTP metrics: request count and duration by route
//   - Admission and coalescing: gauges and counters read at scrape time
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.WatchAdmission(guard)
//	collector.WatchCoalescer("interpret", cache)
//
//	generator := providers.NewGenerator(manager, providers.GeneratorOptions{
//		Observers: []providers.Observer{collector.ObserveGeneration},
//	})
//
//	http.Handle("/metrics", collector.Handler())
//
// The Collector also satisfies the session metrics hook of the gateway
// package, so it can be passed straight to gateway.SessionOptions.
package metrics
