// Package middleware provides HTTP middleware for the plain REST surface.
//
// The server chains them outermost first:
//
//	Recovery -> RequestID -> Tracing -> Logging -> Metrics -> CORS -> router
//
// # Request ID
//
// RequestIDMiddleware reuses the client's X-Request-ID or generates a UUID.
// The ID is stored with logging.WithRequestID, so log records written with
// the request context carry a request_id attribute and the generation
// ledger records it.
//
// # Metrics
//
// MetricsMiddleware labels requests with the chi route pattern, for example
// "/api/interpret/bazi", never the raw path.
//
// WebSocket upgrades do not pass through this chain. They are routed to the
// gateway handler before the router, because the gateway hijacks the
// connection.
package middleware
