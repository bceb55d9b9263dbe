package logging

import (
	"context"
)

type contextKey string

// Context keys. Each key doubles as the attribute name the handler emits.
const (
	RequestIDKey contextKey = "request_id"
	SessionKey   contextKey = "session"
	UserKey      contextKey = "user"
	ProviderKey  contextKey = "provider"
	TraceIDKey   contextKey = "trace_id"
)

// contextFields is the order in which context values are attached to a
// record.
var contextFields = []contextKey{RequestIDKey, SessionKey, UserKey, ProviderKey, TraceIDKey}

func withString(ctx context.Context, key contextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

// WithRequestID tags ctx with an HTTP request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, RequestIDKey, id)
}

// GetRequestID returns the request ID or "".
func GetRequestID(ctx context.Context) string { return stringFrom(ctx, RequestIDKey) }

// WithSession tags ctx with a stream session ID.
func WithSession(ctx context.Context, id string) context.Context {
	return withString(ctx, SessionKey, id)
}

// GetSession returns the stream session ID or "".
func GetSession(ctx context.Context) string { return stringFrom(ctx, SessionKey) }

// WithUser tags ctx with the authorized user ID.
func WithUser(ctx context.Context, id string) context.Context {
	return withString(ctx, UserKey, id)
}

// GetUser returns the user ID or "".
func GetUser(ctx context.Context) string { return stringFrom(ctx, UserKey) }

// WithProvider tags ctx with the resolved provider name.
func WithProvider(ctx context.Context, name string) context.Context {
	return withString(ctx, ProviderKey, name)
}

// GetProvider returns the provider name or "".
func GetProvider(ctx context.Context) string { return stringFrom(ctx, ProviderKey) }

// WithTraceID tags ctx with a trace ID.
func WithTraceID(ctx context.Context, id string) context.Context {
	return withString(ctx, TraceIDKey, id)
}

// GetTraceID returns the trace ID or "".
func GetTraceID(ctx context.Context) string { return stringFrom(ctx, TraceIDKey) }

// extractContextFields returns the non-empty context values as alternating
// key/value pairs.
func extractContextFields(ctx context.Context) []any {
	var fields []any
	for _, key := range contextFields {
		if v := stringFrom(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}
	return fields
}
