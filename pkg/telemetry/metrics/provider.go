package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"tianji-hq/oracle/pkg/config"
	"tianji-hq/oracle/pkg/providers"
)

// ProviderMetrics tracks generations by provider.
//
// Metrics:
//   - oracle_provider_generations_total{provider,mode,transport,status}
//   - oracle_provider_generation_duration_seconds{provider,mode}
//   - oracle_provider_generation_chunks{provider}
//   - oracle_provider_fallbacks_total{provider}
//   - oracle_provider_tokens_total{provider,kind}
//   - oracle_provider_errors_total{provider,error_type}
type ProviderMetrics struct {
	generations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	chunks      *prometheus.HistogramVec
	fallbacks   *prometheus.CounterVec
	tokens      *prometheus.CounterVec
	errors      *prometheus.CounterVec
}

// NewProviderMetrics creates and registers provider metrics with registry.
func NewProviderMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "provider",
				Name:      "generations_total",
				Help:      "Total number of generations by provider, mode, transport and outcome",
			},
			[]string{"provider", "mode", "transport", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "provider",
				Name:      "generation_duration_seconds",
				Help:      "Duration of generations in seconds",
				Buckets:   cfg.GenerationDurationBuckets,
			},
			[]string{"provider", "mode"},
		),
		chunks: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "provider",
				Name:      "generation_chunks",
				Help:      "Number of chunks delivered per streamed generation",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
			},
			[]string{"provider"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "provider",
				Name:      "fallbacks_total",
				Help:      "Total number of buffered generations answered with fallback text",
			},
			[]string{"provider"},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "provider",
				Name:      "tokens_total",
				Help:      "Total tokens reported by providers",
			},
			[]string{"provider", "kind"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "provider",
				Name:      "errors_total",
				Help:      "Total number of failed generations by error type",
			},
			[]string{"provider", "error_type"},
		),
	}

	registry.MustRegister(pm.generations, pm.duration, pm.chunks, pm.fallbacks, pm.tokens, pm.errors)
	return pm
}

func (pm *ProviderMetrics) record(transport string, res *providers.Result) {
	if transport == "" {
		transport = "unknown"
	}
	status := "success"
	switch {
	case res.Err != nil:
		status = "error"
	case res.FellBack:
		status = "fallback"
	}

	pm.generations.WithLabelValues(res.Provider, res.Mode, transport, status).Inc()
	pm.duration.WithLabelValues(res.Provider, res.Mode).Observe(res.Duration.Seconds())
	if res.Mode == providers.ModeStream {
		pm.chunks.WithLabelValues(res.Provider).Observe(float64(res.Chunks))
	}
	if res.FellBack {
		pm.fallbacks.WithLabelValues(res.Provider).Inc()
	}
	if res.Usage != nil {
		pm.tokens.WithLabelValues(res.Provider, "prompt").Add(float64(res.Usage.PromptTokens))
		pm.tokens.WithLabelValues(res.Provider, "completion").Add(float64(res.Usage.CompletionTokens))
	}
}
