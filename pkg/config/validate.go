package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All field errors are collected together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateStream(&cfg.Stream)...)
	if cfg.Admission.MaxInFlight < 0 {
		errs = append(errs, FieldError{Field: "admission.max_in_flight", Message: "must not be negative"})
	}
	errs = append(errs, validateProviders(&cfg.Providers)...)
	errs = append(errs, validateAuth(&cfg.Auth)...)
	errs = append(errs, validateLedger(&cfg.Ledger)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	} else if !strings.Contains(cfg.ListenAddress, ":") {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "must be in host:port format"})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "must not be negative"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "must not be negative"})
	}
	if cfg.MaxConnections < 0 {
		errs = append(errs, FieldError{Field: "server.max_connections", Message: "must not be negative"})
	}
	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.cert_file", Message: "required when TLS is enabled"})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.key_file", Message: "required when TLS is enabled"})
		}
		switch cfg.TLS.MinVersion {
		case "", "1.2", "1.3":
		default:
			errs = append(errs, FieldError{Field: "server.tls.min_version", Message: "must be \"1.2\" or \"1.3\""})
		}
	}

	return errs
}

func validateStream(cfg *StreamConfig) []FieldError {
	var errs []FieldError

	if !strings.HasPrefix(cfg.Path, "/") {
		errs = append(errs, FieldError{Field: "stream.path", Message: "must start with '/'"})
	}
	if cfg.MaxURLLength <= len(cfg.Path) {
		errs = append(errs, FieldError{Field: "stream.max_url_length", Message: "must be longer than stream.path"})
	}
	if cfg.MaxPayloadBytes <= 0 {
		errs = append(errs, FieldError{Field: "stream.max_payload_bytes", Message: "must be positive"})
	}
	if cfg.MockChunkDelay < 0 {
		errs = append(errs, FieldError{Field: "stream.mock_chunk_delay", Message: "must not be negative"})
	}
	if cfg.StreamTimeout < 0 {
		errs = append(errs, FieldError{Field: "stream.stream_timeout", Message: "must not be negative"})
	}
	for i, origin := range cfg.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("stream.allowed_origins[%d]", i),
				Message: fmt.Sprintf("%q is not an origin (scheme://host[:port])", origin),
			})
		}
	}

	return errs
}

func validateProviders(cfg *ProvidersConfig) []FieldError {
	var errs []FieldError

	def, ok := cfg.Entries[cfg.Default]
	if !ok {
		errs = append(errs, FieldError{Field: "providers.default", Message: fmt.Sprintf("provider %q is not configured", cfg.Default)})
	} else if !def.IsEnabled() {
		errs = append(errs, FieldError{Field: "providers.default", Message: fmt.Sprintf("provider %q is disabled", cfg.Default)})
	}

	for name, p := range cfg.Entries {
		prefix := "providers.entries." + name
		switch p.Type {
		case "mock":
			continue
		case "openai", "anthropic":
		default:
			errs = append(errs, FieldError{Field: prefix + ".type", Message: fmt.Sprintf("unsupported provider type %q (supported: openai, anthropic, mock)", p.Type)})
			continue
		}

		if !p.IsEnabled() {
			continue
		}
		if p.BaseURL == "" {
			errs = append(errs, FieldError{Field: prefix + ".base_url", Message: "base URL is required"})
		} else if u, err := url.Parse(p.BaseURL); err != nil || u.Scheme == "" {
			errs = append(errs, FieldError{Field: prefix + ".base_url", Message: "must be an absolute URL"})
		}
		if p.APIKey == "" {
			errs = append(errs, FieldError{Field: prefix + ".api_key", Message: "API key is required"})
		}
		if p.Timeout < 0 {
			errs = append(errs, FieldError{Field: prefix + ".timeout", Message: "must not be negative"})
		}
		if p.MaxRetries < 0 {
			errs = append(errs, FieldError{Field: prefix + ".max_retries", Message: "must not be negative"})
		}
	}

	return errs
}

func validateAuth(cfg *AuthConfig) []FieldError {
	var errs []FieldError
	seen := make(map[string]bool, len(cfg.Tokens))

	for i, tok := range cfg.Tokens {
		prefix := fmt.Sprintf("auth.tokens[%d]", i)
		if tok.Token == "" {
			errs = append(errs, FieldError{Field: prefix + ".token", Message: "token is required"})
		} else if seen[tok.Token] {
			errs = append(errs, FieldError{Field: prefix + ".token", Message: "duplicate token"})
		}
		seen[tok.Token] = true
		if tok.UserID == "" {
			errs = append(errs, FieldError{Field: prefix + ".user_id", Message: "user ID is required"})
		}
	}

	return errs
}

func validateLedger(cfg *LedgerConfig) []FieldError {
	var errs []FieldError

	switch cfg.Driver {
	case "sqlite", "sqlite3", "postgres", "memory":
	default:
		errs = append(errs, FieldError{Field: "ledger.driver", Message: fmt.Sprintf("unsupported driver %q (supported: sqlite, sqlite3, postgres, memory)", cfg.Driver)})
	}
	if cfg.Enabled && cfg.Driver != "memory" && cfg.DSN == "" {
		errs = append(errs, FieldError{Field: "ledger.dsn", Message: "DSN is required"})
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{Field: "ledger.retention_days", Message: "must not be negative"})
	}
	if cfg.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
			errs = append(errs, FieldError{Field: "ledger.prune_schedule", Message: fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{Field: "telemetry.logging.level", Message: fmt.Sprintf("unknown level %q", cfg.Logging.Level)})
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{Field: "telemetry.logging.format", Message: fmt.Sprintf("unknown format %q", cfg.Logging.Format)})
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "must start with '/'"})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be between 0.0 and 1.0"})
	}

	return errs
}
