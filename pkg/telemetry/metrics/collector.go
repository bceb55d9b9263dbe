package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tianji-hq/oracle/pkg/config"
	"tianji-hq/oracle/pkg/providers"
)

// Collector owns every Prometheus metric exported by the gateway. It
// satisfies the session metrics hook of the stream gateway and provides a
// generation observer for the provider adapter.
//
// A Collector built from a disabled config records nothing, so callers can
// wire it unconditionally.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	streamMetrics   *StreamMetrics
	providerMetrics *ProviderMetrics
	requestMetrics  *RequestMetrics
}

// NewCollector creates a collector and registers its metrics with registry.
// If registry is nil a fresh one is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "oracle"
	}
	if len(cfg.GenerationDurationBuckets) == 0 {
		// Streamed interpretations run from sub-second (mock) to minutes.
		cfg.GenerationDurationBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120}
	}

	return &Collector{
		config:          cfg,
		registry:        registry,
		streamMetrics:   NewStreamMetrics(cfg, registry),
		providerMetrics: NewProviderMetrics(cfg, registry),
		requestMetrics:  NewRequestMetrics(cfg, registry),
	}
}

// SessionOpened records an accepted upgrade.
func (c *Collector) SessionOpened() {
	if !c.config.Enabled {
		return
	}
	c.streamMetrics.opened.Inc()
	c.streamMetrics.open.Inc()
}

// SessionClosed records the end of a session. code is the close status the
// server sent, or zero when the connection simply went away.
func (c *Collector) SessionClosed(code int, lifetime time.Duration) {
	if !c.config.Enabled {
		return
	}
	label := "none"
	if code != 0 {
		label = strconv.Itoa(code)
	}
	c.streamMetrics.open.Dec()
	c.streamMetrics.closed.WithLabelValues(label).Inc()
	c.streamMetrics.lifetime.Observe(lifetime.Seconds())
}

// RequestRejected records a request refused before or during generation.
func (c *Collector) RequestRejected(reason string) {
	if !c.config.Enabled {
		return
	}
	c.streamMetrics.rejected.WithLabelValues(reason).Inc()
}

// ObserveGeneration records one finished generation. It has the signature
// of providers.Observer.
func (c *Collector) ObserveGeneration(_ context.Context, req *providers.GenerateRequest, res *providers.Result) {
	if !c.config.Enabled {
		return
	}
	c.providerMetrics.record(req.Transport, res)
	if res.Err != nil {
		c.providerMetrics.errors.WithLabelValues(res.Provider, providers.Classify(res.Err)).Inc()
	}
}

// RecordHTTPRequest records a plain HTTP request. route is the matched
// route pattern, not the raw path.
func (c *Collector) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.RecordRequest(route, method, status, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
