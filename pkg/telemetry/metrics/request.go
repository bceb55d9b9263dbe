package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tianji-hq/oracle/pkg/config"
)

// RequestMetrics tracks the plain HTTP surface.
//
// Metrics:
//   - oracle_http_requests_total{route,method,status}
//   - oracle_http_request_duration_seconds{route,method}
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewRequestMetrics creates and registers HTTP request metrics with registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   cfg.GenerationDurationBuckets,
			},
			[]string{"route", "method"},
		),
	}

	registry.MustRegister(rm.requestsTotal, rm.requestDuration)
	return rm
}

// RecordRequest records one completed HTTP request.
func (rm *RequestMetrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	rm.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	rm.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}
