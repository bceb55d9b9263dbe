package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "ORACLE_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of NewDefaultConfig, remaining zero values are
// defaulted, and the result is validated.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration bytes and applies defaults. It does not
// validate.
func Parse(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention ORACLE_SECTION_FIELD (e.g., ORACLE_SERVER_LISTEN_ADDRESS) and
// always take precedence over the file.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	setString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	setDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	setDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	setDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	setInt("SERVER_MAX_CONNECTIONS", &cfg.Server.MaxConnections)
	setBool("SERVER_TLS_ENABLED", &cfg.Server.TLS.Enabled)
	setString("SERVER_TLS_CERT_FILE", &cfg.Server.TLS.CertFile)
	setString("SERVER_TLS_KEY_FILE", &cfg.Server.TLS.KeyFile)

	// Stream overrides
	setString("STREAM_PATH", &cfg.Stream.Path)
	setInt("STREAM_MAX_URL_LENGTH", &cfg.Stream.MaxURLLength)
	setInt("STREAM_MAX_PAYLOAD_BYTES", &cfg.Stream.MaxPayloadBytes)
	setDuration("STREAM_MOCK_CHUNK_DELAY", &cfg.Stream.MockChunkDelay)
	setDuration("STREAM_STREAM_TIMEOUT", &cfg.Stream.StreamTimeout)
	setBool("STREAM_CANCEL_ON_DISCONNECT", &cfg.Stream.CancelOnDisconnect)
	if val := os.Getenv(EnvPrefix + "STREAM_ALLOWED_ORIGINS"); val != "" {
		cfg.Stream.AllowedOrigins = splitList(val)
	}

	// Admission overrides
	setBool("ADMISSION_ENABLED", &cfg.Admission.Enabled)
	setInt("ADMISSION_MAX_IN_FLIGHT", &cfg.Admission.MaxInFlight)

	// Provider overrides
	setString("PROVIDERS_DEFAULT", &cfg.Providers.Default)
	applyProviderEnvOverrides(cfg, "openai")
	applyProviderEnvOverrides(cfg, "anthropic")

	// Ledger overrides
	setBool("LEDGER_ENABLED", &cfg.Ledger.Enabled)
	setString("LEDGER_DRIVER", &cfg.Ledger.Driver)
	setString("LEDGER_DSN", &cfg.Ledger.DSN)
	setInt("LEDGER_RETENTION_DAYS", &cfg.Ledger.RetentionDays)
	setString("LEDGER_PRUNE_SCHEDULE", &cfg.Ledger.PruneSchedule)

	// Telemetry overrides
	setString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	setString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	setBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	setString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	setBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	setString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

// applyProviderEnvOverrides applies environment variable overrides for a
// specific provider. Provider variables follow ORACLE_PROVIDERS_<NAME>_<FIELD>.
// A provider entry is created only when at least one override is present.
func applyProviderEnvOverrides(cfg *Config, providerName string) {
	if cfg.Providers.Entries == nil {
		cfg.Providers.Entries = make(map[string]ProviderConfig)
	}

	provider, exists := cfg.Providers.Entries[providerName]
	prefix := fmt.Sprintf("PROVIDERS_%s_", strings.ToUpper(providerName))

	modified := false
	modified = setString(prefix+"BASE_URL", &provider.BaseURL) || modified
	modified = setString(prefix+"API_KEY", &provider.APIKey) || modified
	modified = setString(prefix+"MODEL", &provider.Model) || modified
	modified = setDuration(prefix+"TIMEOUT", &provider.Timeout) || modified
	modified = setInt(prefix+"MAX_RETRIES", &provider.MaxRetries) || modified

	if modified || exists {
		cfg.Providers.Entries[providerName] = provider
	}
}

func setString(key string, dst *string) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
		return true
	}
	return false
}

func setInt(key string, dst *int) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
			return true
		}
	}
	return false
}

func setBool(key string, dst *bool) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
			return true
		}
	}
	return false
}

func setDuration(key string, dst *time.Duration) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
			return true
		}
	}
	return false
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
