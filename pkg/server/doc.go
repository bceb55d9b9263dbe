// Package server assembles the gateway process.
//
// New builds every component from a config.Store and wires them together:
// the provider manager, the admission guard shared by both transports,
// the stream dispatcher and upgrade handler, the coalescing HTTP handler,
// the generation ledger with its retention scheduler, and telemetry.
//
// # Routing
//
// Requests carrying an Upgrade header go straight to the stream handler,
// bypassing the HTTP middleware because the connection is hijacked. All
// other requests go through a chi router:
//
//   - POST /api/interpret/bazi: buffered interpretation (bearer token)
//   - GET /health: liveness
//   - GET /ready: readiness (providers, ledger, draining)
//   - GET /version: build information
//   - GET /metrics: Prometheus metrics, when enabled
//
// Middleware runs outermost first: recovery, request ID, trace
// propagation, access logging, request metrics, CORS.
//
// # Lifecycle
//
//	srv, err := server.New(server.Options{Store: store, Logger: logger})
//	if err != nil {
//		return err
//	}
//	defer srv.Close()
//	return srv.Run(ctx)
//
// Cancelling ctx marks readiness as draining, closes every open session
// with status 1001 and then shuts the HTTP server down within
// server.shutdown_timeout.
//
// # Reload
//
// Admission settings, the denied message, cancel_on_disconnect, the Origin
// allow-list, the token set, the log level and provider entries follow
// configuration reloads. Other sections are read once and a change is
// logged as requiring a restart.
package server
