package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"tianji-hq/oracle/pkg/config"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{}},
		{name: "text debug", cfg: Config{Level: "DEBUG", Format: "text"}},
		{name: "warning alias", cfg: Config{Level: "warning"}},
		{name: "invalid level", cfg: Config{Level: "verbose"}, wantErr: true},
		{name: "invalid format", cfg: Config{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Writer = &bytes.Buffer{}
			logger, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if logger.Logger == nil {
				t.Fatal("embedded slog logger is nil")
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.LoggingConfig{Level: "debug", Format: "text", AddSource: true, Redact: true})
	if cfg.Level != "debug" || cfg.Format != "text" || !cfg.AddSource || !cfg.Redact {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("hidden")
	logger.Warn("shown")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["msg"] != "shown" {
		t.Fatalf("unexpected output: %v", lines)
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	derived := logger.With("component", "test")

	derived.Debug("before")
	if err := logger.SetLevel("debug"); err != nil {
		t.Fatal(err)
	}
	derived.Debug("after")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["msg"] != "after" {
		t.Fatalf("derived logger did not follow level change: %v", lines)
	}
	if logger.Level() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", logger.Level())
	}
	if err := logger.SetLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithSession(ctx, "sess-1")
	ctx = WithUser(ctx, "u-1")
	ctx = WithProvider(ctx, "deepseek")
	logger.InfoContext(ctx, "served")
	logger.Info("no context")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	want := map[string]string{"request_id": "req-1", "session": "sess-1", "user": "u-1", "provider": "deepseek"}
	for k, v := range want {
		if lines[0][k] != v {
			t.Errorf("%s = %v, want %q", k, lines[0][k], v)
		}
	}
	if _, ok := lines[1]["request_id"]; ok {
		t.Error("request_id logged without context")
	}
}

func TestLogger_Redaction(t *testing.T) {
	tests := []struct {
		name   string
		redact bool
		want   string
	}{
		{name: "enabled", redact: true, want: "tok-***"},
		{name: "disabled", redact: false, want: "tok-abcdef123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := New(Config{Redact: tt.redact, Writer: &buf})
			if err != nil {
				t.Fatal(err)
			}

			logger.With("token", "tok-abcdef123").Info("auth")
			lines := decodeLines(t, &buf)
			if got := lines[0]["token"]; got != tt.want {
				t.Errorf("token = %v, want %q", got, tt.want)
			}
		})
	}
}

func TestContextGetters_Empty(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetSession(ctx) != "" || GetUser(ctx) != "" || GetProvider(ctx) != "" || GetTraceID(ctx) != "" {
		t.Error("expected empty values from bare context")
	}
	if fields := extractContextFields(ctx); len(fields) != 0 {
		t.Errorf("unexpected fields %v", fields)
	}
}
