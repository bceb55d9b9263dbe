package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:      "listen address without port",
			mutate:    func(c *Config) { c.Server.ListenAddress = "localhost" },
			wantField: "server.listen_address",
		},
		{
			name:      "stream path must be absolute",
			mutate:    func(c *Config) { c.Stream.Path = "ws" },
			wantField: "stream.path",
		},
		{
			name:      "bad origin",
			mutate:    func(c *Config) { c.Stream.AllowedOrigins = []string{"example.com"} },
			wantField: "stream.allowed_origins[0]",
		},
		{
			name:      "unknown default provider",
			mutate:    func(c *Config) { c.Providers.Default = "gemini" },
			wantField: "providers.default",
		},
		{
			name: "live provider needs API key",
			mutate: func(c *Config) {
				c.Providers.Entries["openai"] = ProviderConfig{Type: "openai", BaseURL: "https://api.example.com"}
			},
			wantField: "providers.entries.openai.api_key",
		},
		{
			name: "disabled provider skips credential checks",
			mutate: func(c *Config) {
				off := false
				c.Providers.Entries["openai"] = ProviderConfig{Type: "openai", Enabled: &off}
			},
		},
		{
			name: "duplicate token",
			mutate: func(c *Config) {
				c.Auth.Tokens = []TokenConfig{{Token: "t", UserID: "a"}, {Token: "t", UserID: "b"}}
			},
			wantField: "auth.tokens[1].token",
		},
		{
			name:      "unsupported ledger driver",
			mutate:    func(c *Config) { c.Ledger.Driver = "mysql" },
			wantField: "ledger.driver",
		},
		{
			name:      "invalid cron schedule",
			mutate:    func(c *Config) { c.Ledger.PruneSchedule = "every day" },
			wantField: "ledger.prune_schedule",
		},
		{
			name:      "sample ratio out of range",
			mutate:    func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 },
			wantField: "telemetry.tracing.sample_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %q, got %v", tt.wantField, verr.Errors)
			}
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := ValidationError{Errors: []FieldError{
		{Field: "a", Message: "bad"},
		{Field: "b", Message: "worse"},
	}}
	msg := err.Error()
	if !strings.Contains(msg, "2 errors") || !strings.Contains(msg, "b: worse") {
		t.Errorf("unexpected message: %s", msg)
	}
}
