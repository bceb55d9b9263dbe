package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"tianji-hq/oracle/pkg/config"
)

// StreamMetrics tracks WebSocket sessions and refused requests.
//
// Metrics:
//   - oracle_stream_sessions_opened_total
//   - oracle_stream_sessions_open
//   - oracle_stream_sessions_closed_total{code}
//   - oracle_stream_session_duration_seconds
//   - oracle_stream_requests_rejected_total{reason}
type StreamMetrics struct {
	opened   prometheus.Counter
	open     prometheus.Gauge
	closed   *prometheus.CounterVec
	lifetime prometheus.Histogram
	rejected *prometheus.CounterVec
}

// NewStreamMetrics creates and registers stream metrics with registry.
func NewStreamMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *StreamMetrics {
	sm := &StreamMetrics{
		opened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "stream",
			Name:      "sessions_opened_total",
			Help:      "Total number of accepted WebSocket upgrades",
		}),
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "stream",
			Name:      "sessions_open",
			Help:      "Number of WebSocket sessions currently open",
		}),
		closed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "stream",
				Name:      "sessions_closed_total",
				Help:      "Total number of closed sessions by the close code the server sent",
			},
			[]string{"code"},
		),
		lifetime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "stream",
			Name:      "session_duration_seconds",
			Help:      "Lifetime of WebSocket sessions in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 4, 8),
		}),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "stream",
				Name:      "requests_rejected_total",
				Help:      "Total number of stream requests answered with an error envelope",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(sm.opened, sm.open, sm.closed, sm.lifetime, sm.rejected)
	return sm
}
