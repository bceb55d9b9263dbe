package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// RequestRecorder records finished HTTP requests. *metrics.Collector
// satisfies it.
type RequestRecorder interface {
	RecordHTTPRequest(route, method string, status int, duration time.Duration)
}

// MetricsMiddleware records each request under its chi route pattern so
// path parameters do not explode label cardinality. Unmatched requests are
// recorded as "unmatched".
func MetricsMiddleware(recorder RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			recorder.RecordHTTPRequest(route, r.Method, rw.statusCode, time.Since(start))
		})
	}
}
