package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// TokenSource defines where to extract a bearer token from
type TokenSource struct {
	Type   string // header, query
	Name   string // Header name or query param
	Scheme string // "Bearer", etc. (optional)
}

// DefaultSources reads "Authorization: Bearer <token>" and then X-API-Key.
var DefaultSources = []TokenSource{
	{Type: "header", Name: "Authorization", Scheme: "Bearer"},
	{Type: "header", Name: "X-API-Key"},
}

// Middleware is HTTP middleware for bearer token authentication
type Middleware struct {
	authorizer Authorizer
	sources    []TokenSource
	onFailure  func(w http.ResponseWriter, r *http.Request, err error)
}

// NewMiddleware creates a new token authentication middleware. onFailure
// writes the rejection; when nil a plain 401 is written.
func NewMiddleware(authorizer Authorizer, sources []TokenSource, onFailure func(http.ResponseWriter, *http.Request, error)) *Middleware {
	if len(sources) == 0 {
		sources = DefaultSources
	}
	if onFailure == nil {
		onFailure = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, "Missing or invalid token", http.StatusUnauthorized)
		}
	}
	return &Middleware{
		authorizer: authorizer,
		sources:    sources,
		onFailure:  onFailure,
	}
}

// Handle wraps an HTTP handler with token authentication
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.extractToken(r)

		user, err := m.authorizer.AuthorizeToken(r.Context(), token)
		if err != nil {
			slog.Warn("authentication failed",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			m.onFailure(w, r, err)
			return
		}

		slog.Debug("request authenticated",
			"user_id", user.ID,
			"path", r.URL.Path,
		)

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// extractToken returns the first token found in the configured sources.
func (m *Middleware) extractToken(r *http.Request) string {
	for _, source := range m.sources {
		var value string
		switch source.Type {
		case "header":
			value = r.Header.Get(source.Name)
		case "query":
			value = r.URL.Query().Get(source.Name)
		}
		if value == "" {
			continue
		}
		if source.Scheme == "" {
			return value
		}
		prefix := source.Scheme + " "
		if len(value) > len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
			return value[len(prefix):]
		}
	}
	return ""
}

type contextKey string

const userKey contextKey = "auth_user"

// WithUser returns a context carrying user.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the authenticated user from ctx.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userKey).(*User)
	return user, ok
}
