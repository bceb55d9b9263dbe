package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"tianji-hq/oracle/pkg/config"
)

// CORSConfig contains configuration for CORS middleware.
type CORSConfig struct {
	// Enabled controls whether CORS is enabled.
	Enabled bool

	// AllowedOrigins is a list of allowed origins for CORS.
	// Use ["*"] to allow all origins.
	AllowedOrigins []string

	// AllowedMethods is a list of allowed HTTP methods.
	AllowedMethods []string

	// AllowedHeaders is a list of allowed HTTP headers.
	AllowedHeaders []string

	// ExposedHeaders is a list of headers exposed to clients.
	ExposedHeaders []string

	// MaxAge is the maximum age (in seconds) for preflight cache.
	MaxAge int

	// AllowCredentials controls whether credentials are allowed.
	AllowCredentials bool
}

// DefaultCORSConfig returns a default CORS configuration.
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-Trace-ID"},
		MaxAge:         3600, // 1 hour
	}
}

// NewCORSConfig builds the middleware configuration from the server's
// cors section.
func NewCORSConfig(cfg config.CORSConfig) *CORSConfig {
	c := DefaultCORSConfig()
	c.Enabled = cfg.Enabled
	if len(cfg.AllowedOrigins) > 0 {
		c.AllowedOrigins = cfg.AllowedOrigins
	}
	if len(cfg.AllowedMethods) > 0 {
		c.AllowedMethods = cfg.AllowedMethods
	}
	if len(cfg.AllowedHeaders) > 0 {
		c.AllowedHeaders = cfg.AllowedHeaders
	}
	if cfg.MaxAge > 0 {
		c.MaxAge = cfg.MaxAge
	}
	return c
}

// CORSMiddleware adds Cross-Origin Resource Sharing headers to responses
// and answers preflight OPTIONS requests with 204.
func CORSMiddleware(c *CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !c.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")

			if origin != "" && isOriginAllowed(origin, c.AllowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)

				if c.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}

				if len(c.ExposedHeaders) > 0 {
					w.Header().Set("Access-Control-Expose-Headers", strings.Join(c.ExposedHeaders, ", "))
				}
			} else if contains(c.AllowedOrigins, "*") {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}

			// Handle preflight OPTIONS request
			if r.Method == http.MethodOptions {
				if len(c.AllowedMethods) > 0 {
					w.Header().Set("Access-Control-Allow-Methods", strings.Join(c.AllowedMethods, ", "))
				}

				if len(c.AllowedHeaders) > 0 {
					w.Header().Set("Access-Control-Allow-Headers", strings.Join(c.AllowedHeaders, ", "))
				}

				if c.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", strconv.Itoa(c.MaxAge))
				}

				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isOriginAllowed checks if an origin is in the allowed list.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func contains(slice []string, item string) bool {
	return slices.Contains(slice, item)
}
