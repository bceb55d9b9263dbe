package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 120 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxConnections  = 1024

	// CORS defaults
	DefaultCORSMaxAge = 3600

	// TLS defaults
	DefaultTLSMinVersion = "1.2"

	// Stream defaults
	DefaultStreamPath      = "/ws/ai"
	DefaultMaxURLLength    = 2048
	DefaultMaxPayloadBytes = 64 * 1024
	DefaultMockChunkDelay  = 30 * time.Millisecond

	// Admission defaults
	DefaultAdmissionDeniedMessage = "An interpretation is already in progress. Please wait for it to finish."

	// Provider defaults
	DefaultProvider          = "mock"
	DefaultProviderTimeout   = 60 * time.Second
	DefaultProviderMaxTokens = 2048

	// Secrets defaults
	DefaultSecretsEnvPrefix = "ORACLE_SECRET_"

	// Ledger defaults
	DefaultLedgerDriver        = "sqlite"
	DefaultLedgerDSN           = "data/ledger.db"
	DefaultLedgerMaxOpenConns  = 10
	DefaultLedgerBusyTimeout   = 5 * time.Second
	DefaultLedgerRetentionDays = 30
	DefaultLedgerPruneSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "oracle"
	DefaultTracingEndpoint  = "localhost:4317"
	DefaultTracingRatio     = 1.0
	DefaultServiceName      = "oracle"
)

// Default provider base URLs.
var defaultBaseURLs = map[string]string{
	"openai":    "https://api.deepseek.com/v1",
	"anthropic": "https://api.anthropic.com",
}

// Default provider models.
var defaultModels = map[string]string{
	"openai":    "deepseek-chat",
	"anthropic": "claude-3-5-haiku-latest",
}

// NewDefaultConfig returns a configuration with every default applied,
// including the boolean fields whose zero value differs from the default.
// LoadConfig decodes YAML on top of this value so that an omitted boolean
// keeps its default while an explicit false is honored.
func NewDefaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			CORS: CORSConfig{Enabled: true},
		},
		Admission: AdmissionConfig{Enabled: true},
		Ledger:    LedgerConfig{Enabled: true},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{Redact: true},
			Metrics: MetricsConfig{Enabled: true},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
// Boolean fields are left untouched; see NewDefaultConfig.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxConnections == 0 {
		cfg.Server.MaxConnections = DefaultMaxConnections
	}
	applyCORSDefaults(&cfg.Server.CORS)
	if cfg.Server.TLS.MinVersion == "" {
		cfg.Server.TLS.MinVersion = DefaultTLSMinVersion
	}

	// Stream defaults
	if cfg.Stream.Path == "" {
		cfg.Stream.Path = DefaultStreamPath
	}
	if cfg.Stream.MaxURLLength == 0 {
		cfg.Stream.MaxURLLength = DefaultMaxURLLength
	}
	if cfg.Stream.MaxPayloadBytes == 0 {
		cfg.Stream.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if cfg.Stream.MockChunkDelay == 0 {
		cfg.Stream.MockChunkDelay = DefaultMockChunkDelay
	}

	if cfg.Admission.DeniedMessage == "" {
		cfg.Admission.DeniedMessage = DefaultAdmissionDeniedMessage
	}

	// Provider defaults - the mock provider is always present
	if cfg.Providers.Default == "" {
		cfg.Providers.Default = DefaultProvider
	}
	if cfg.Providers.Entries == nil {
		cfg.Providers.Entries = make(map[string]ProviderConfig)
	}
	if _, ok := cfg.Providers.Entries["mock"]; !ok {
		cfg.Providers.Entries["mock"] = ProviderConfig{Type: "mock"}
	}
	for name, provider := range cfg.Providers.Entries {
		if provider.Type == "" {
			provider.Type = name
		}
		if provider.BaseURL == "" {
			provider.BaseURL = defaultBaseURLs[provider.Type]
		}
		if provider.Model == "" {
			provider.Model = defaultModels[provider.Type]
		}
		if provider.MaxTokens == 0 {
			provider.MaxTokens = DefaultProviderMaxTokens
		}
		if provider.Timeout == 0 {
			provider.Timeout = DefaultProviderTimeout
		}
		cfg.Providers.Entries[name] = provider
	}

	// Secrets defaults
	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}

	// Ledger defaults
	if cfg.Ledger.Driver == "" {
		cfg.Ledger.Driver = DefaultLedgerDriver
	}
	if cfg.Ledger.DSN == "" && cfg.Ledger.Driver != "memory" {
		cfg.Ledger.DSN = DefaultLedgerDSN
	}
	if cfg.Ledger.MaxOpenConns == 0 {
		cfg.Ledger.MaxOpenConns = DefaultLedgerMaxOpenConns
	}
	if cfg.Ledger.BusyTimeout == 0 {
		cfg.Ledger.BusyTimeout = DefaultLedgerBusyTimeout
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = DefaultLedgerRetentionDays
	}
	if cfg.Ledger.PruneSchedule == "" {
		cfg.Ledger.PruneSchedule = DefaultLedgerPruneSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.GenerationDurationBuckets) == 0 {
		// Streamed interpretations usually take 5-60s
		cfg.Telemetry.Metrics.GenerationDurationBuckets = []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80}
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultServiceName
	}
}

// applyCORSDefaults applies default values to CORS configuration.
func applyCORSDefaults(cors *CORSConfig) {
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}
