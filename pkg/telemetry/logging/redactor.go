package logging

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Redactor masks credentials in log attributes.
type Redactor struct {
	patterns []*redactPattern

	mu      sync.RWMutex
	secrets []string
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternAPIKey      = "api_key"
	PatternBearerToken = "bearer_token"
	PatternPassword    = "password"
)

// sensitiveKeys mark attributes whose whole value is masked. A key matches
// when it equals one of these or ends with "_" plus one of these.
var sensitiveKeys = []string{
	"password", "passwd", "secret",
	"token", "api_key", "apikey", "x-api-key",
	"authorization", "cookie",
	"private_key", "dsn",
}

// NewRedactor creates a Redactor with the built-in patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*redactPattern{
			{
				name:        PatternBearerToken,
				regex:       regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-._~+/]+=*`),
				replacement: "Bearer ***",
			},
			{
				name:        PatternAPIKey,
				regex:       regexp.MustCompile(`sk-[a-zA-Z0-9_\-]{6,}`),
				replacement: "sk-***",
			},
			{
				name:        PatternPassword,
				regex:       regexp.MustCompile(`(password|passwd|pwd)[:=]\s*[^\s&]+`),
				replacement: "$1=***",
			},
		},
	}
}

// AddSecret registers a literal value that must never appear in logs.
// Values shorter than six characters are ignored to avoid masking common
// words.
func (r *Redactor) AddSecret(secret string) {
	if len(secret) < 6 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.secrets {
		if s == secret {
			return
		}
	}
	r.secrets = append(r.secrets, secret)
	// Longest first so a secret containing another is masked whole.
	sort.Slice(r.secrets, func(i, j int) bool { return len(r.secrets[i]) > len(r.secrets[j]) })
}

// SetSecrets replaces every registered literal secret.
func (r *Redactor) SetSecrets(secrets []string) {
	r.mu.Lock()
	r.secrets = nil
	r.mu.Unlock()
	for _, s := range secrets {
		r.AddSecret(s)
	}
}

// RedactString masks every pattern and registered secret in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	r.mu.RLock()
	for _, s := range r.secrets {
		value = strings.ReplaceAll(value, s, "***")
	}
	r.mu.RUnlock()

	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactAttr returns a with its value masked as needed. Group values are
// redacted recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	switch v.Kind() {
	case slog.KindGroup:
		attrs := v.Group()
		out := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, maskValue(v.String()))
		}
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
		return slog.Attr{Key: a.Key, Value: v}
	default:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
		return slog.Attr{Key: a.Key, Value: v}
	}
}

func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if lowerKey == sensitive || strings.HasSuffix(lowerKey, "_"+sensitive) {
			return true
		}
	}
	return false
}

// maskValue keeps a short prefix of a sensitive value for correlation.
func maskValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "***"
	}
	return v[:4] + "***"
}

// RedactAPIKey redacts an API key, keeping only a prefix.
func RedactAPIKey(apiKey string) string {
	if len(apiKey) <= 4 {
		return "***"
	}
	return apiKey[:4] + "***"
}
