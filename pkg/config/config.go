package config

import "time"

// Config is the root configuration structure for the Oracle gateway.
// It contains all configuration sections for the HTTP server, the streaming
// transport, admission control, providers, the generation ledger, and
// telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and connection limits.
	Server ServerConfig `yaml:"server"`

	// Stream contains configuration for the WebSocket interpretation stream.
	Stream StreamConfig `yaml:"stream"`

	// Admission controls the per-user single-flight admission guard.
	Admission AdmissionConfig `yaml:"admission"`

	// Providers contains configuration for all text-generation providers.
	Providers ProvidersConfig `yaml:"providers"`

	// Auth contains the token set accepted by the authorizer.
	Auth AuthConfig `yaml:"auth"`

	// Secrets configures where ${secret:name} references in provider
	// credentials and tokens are resolved from.
	Secrets SecretsConfig `yaml:"secrets"`

	// Ledger contains configuration for the generation ledger.
	Ledger LedgerConfig `yaml:"ledger"`

	// Telemetry contains configuration for logging, metrics, and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Hijacked WebSocket connections are not subject to it.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response for plain HTTP requests.
	// Default: 120s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxConnections bounds the number of simultaneously accepted TCP
	// connections. Zero means unlimited.
	// Default: 1024
	MaxConnections int `yaml:"max_connections"`

	// CORS contains Cross-Origin Resource Sharing configuration for the
	// plain HTTP endpoints.
	CORS CORSConfig `yaml:"cors"`

	// TLS enables HTTPS and wss:// on the listener.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains listener TLS configuration.
type TLSConfig struct {
	// Enabled indicates whether the listener terminates TLS.
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM-encoded certificate chain.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded private key.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the minimum accepted protocol version ("1.2" or "1.3").
	// Default: "1.2"
	MinVersion string `yaml:"min_version"`

	// CipherSuites restricts the TLS 1.2 cipher suites. Empty uses Go's
	// defaults.
	CipherSuites []string `yaml:"cipher_suites"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins for CORS requests.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers.
	// Default: ["Authorization", "Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the maximum age (in seconds) for the preflight cache.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// StreamConfig contains configuration for the WebSocket interpretation stream.
type StreamConfig struct {
	// Path is the route the upgrade must arrive on.
	// Default: "/ws/ai"
	Path string `yaml:"path"`

	// MaxURLLength bounds the request URL length. Longer URLs are rejected
	// with a raw 414 before the handshake.
	// Default: 2048
	MaxURLLength int `yaml:"max_url_length"`

	// MaxPayloadBytes is the largest frame payload accepted from a client.
	// Default: 65536
	MaxPayloadBytes int `yaml:"max_payload_bytes"`

	// AllowedOrigins is the Origin allow-list. Requests without an Origin
	// header are always allowed. An empty list rejects every Origin.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MockChunkDelay is the pause between words streamed by the mock provider.
	// Default: 30ms
	MockChunkDelay time.Duration `yaml:"mock_chunk_delay"`

	// StreamTimeout bounds a streamed generation. Zero leaves streamed
	// generations unbounded.
	// Default: 0
	StreamTimeout time.Duration `yaml:"stream_timeout"`

	// CancelOnDisconnect aborts an in-flight upstream stream when the client
	// connection goes away.
	// Default: false
	CancelOnDisconnect bool `yaml:"cancel_on_disconnect"`
}

// AdmissionConfig controls the per-user admission guard.
type AdmissionConfig struct {
	// Enabled turns enforcement on. When false every acquisition succeeds.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// DeniedMessage is the fixed message returned when a user already has a
	// generation in flight.
	// Default: "An interpretation is already in progress. Please wait for it to finish."
	DeniedMessage string `yaml:"denied_message"`

	// MaxInFlight caps concurrent generations across all users. Requests
	// over the cap are denied like a second request from the same user.
	// Zero means unlimited.
	// Default: 0
	MaxInFlight int `yaml:"max_in_flight"`
}

// ProvidersConfig contains configuration for the text-generation providers.
type ProvidersConfig struct {
	// Default is the provider used when a request names none.
	// Default: "mock"
	Default string `yaml:"default"`

	// Entries holds per-provider configuration keyed by provider name
	// ("openai", "anthropic", "mock").
	Entries map[string]ProviderConfig `yaml:"entries"`
}

// ProviderConfig contains configuration for a single provider.
type ProviderConfig struct {
	// Type selects the adapter ("openai", "anthropic", "mock"). Inferred from
	// the entry name when empty.
	Type string `yaml:"type"`

	// Enabled controls whether the provider can be resolved.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// BaseURL is the base URL for the provider's API endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKey is the authentication key for the provider.
	APIKey string `yaml:"api_key"`

	// Model is the model identifier sent to the provider.
	Model string `yaml:"model"`

	// MaxTokens caps the completion length.
	// Default: 2048
	MaxTokens int `yaml:"max_tokens"`

	// Temperature is the sampling temperature.
	Temperature float64 `yaml:"temperature"`

	// Timeout bounds buffered (non-streaming) calls.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of extra attempts a buffered call may make
	// after a network error or 5xx. Zero makes every call a single attempt.
	// Default: 0
	MaxRetries int `yaml:"max_retries"`
}

// IsEnabled reports whether the provider is enabled. A missing flag means enabled.
func (p ProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// AuthConfig contains the static token set accepted by the authorizer.
type AuthConfig struct {
	// Tokens lists bearer tokens and the users they identify.
	Tokens []TokenConfig `yaml:"tokens"`
}

// TokenConfig maps one bearer token to a user.
type TokenConfig struct {
	Token     string    `yaml:"token"`
	UserID    string    `yaml:"user_id"`
	Email     string    `yaml:"email"`
	Name      string    `yaml:"name"`
	IsAdmin   bool      `yaml:"is_admin"`
	Disabled  bool      `yaml:"disabled"`
	ExpiresAt time.Time `yaml:"expires_at"`
}

// SecretsConfig configures secret reference resolution. File lookups are
// tried before the environment.
type SecretsConfig struct {
	// EnvPrefix is prepended to the upper-cased reference name to form the
	// environment variable ("openai-key" -> ORACLE_SECRET_OPENAI_KEY).
	// Default: "ORACLE_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// Dir is a directory holding one file per secret, as mounted by
	// Kubernetes. Empty disables file lookups.
	Dir string `yaml:"dir"`
}

// LedgerConfig contains configuration for the generation ledger.
type LedgerConfig struct {
	// Enabled controls whether generations are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Driver selects the database driver: "sqlite" (pure Go), "sqlite3"
	// (cgo), "postgres", or "memory".
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// DSN is the data source name. For the sqlite drivers it is a file path.
	// Default: "data/ledger.db"
	DSN string `yaml:"dsn"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout applies to the sqlite drivers.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// RetentionDays is how long records are kept. Zero keeps forever.
	// Default: 30
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a standard cron expression for retention pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains configuration for structured logging.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in logs.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// Redact masks tokens and credentials in log attributes.
	// Default: true
	Redact bool `yaml:"redact"`
}

// MetricsConfig contains configuration for Prometheus metrics.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the Prometheus metric namespace.
	// Default: "oracle"
	Namespace string `yaml:"namespace"`

	// GenerationDurationBuckets are histogram buckets in seconds.
	GenerationDurationBuckets []float64 `yaml:"generation_duration_buckets"`
}

// TracingConfig contains configuration for OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of generations traced (0.0-1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "oracle"
	ServiceName string `yaml:"service_name"`
}
