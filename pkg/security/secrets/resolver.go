package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"tianji-hq/oracle/pkg/config"
)

var referencePattern = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Resolver expands ${secret:name} references against an ordered list of
// providers. The first provider that holds a secret wins.
type Resolver struct {
	providers []Provider
	logger    *slog.Logger
}

// NewResolver creates a resolver over providers.
func NewResolver(logger *slog.Logger, providers ...Provider) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{providers: providers, logger: logger.With("component", "secrets")}
}

// FromConfig builds the resolver described by cfg: the secrets directory
// (if any) followed by the environment.
func FromConfig(cfg config.SecretsConfig, logger *slog.Logger) (*Resolver, error) {
	var providers []Provider
	if cfg.Dir != "" {
		fp, err := NewFileProvider(cfg.Dir)
		if err != nil {
			return nil, err
		}
		providers = append(providers, fp)
	}
	providers = append(providers, NewEnvProvider(cfg.EnvPrefix))
	return NewResolver(logger, providers...), nil
}

// Lookup returns the value of name from the first provider that has it.
func (r *Resolver) Lookup(ctx context.Context, name string) (string, error) {
	for _, p := range r.providers {
		value, err := p.Lookup(ctx, name)
		if err == nil {
			r.logger.Debug("secret resolved", "name", redact(name), "provider", p.Name())
			return value, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("%s: %w", p.Name(), err)
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Expand replaces every reference in s. It fails on the first reference
// that cannot be resolved.
func (r *Resolver) Expand(ctx context.Context, s string) (string, error) {
	if !strings.Contains(s, "${secret:") {
		return s, nil
	}

	var firstErr error
	out := referencePattern.ReplaceAllStringFunc(s, func(ref string) string {
		if firstErr != nil {
			return ref
		}
		name := referencePattern.FindStringSubmatch(ref)[1]
		value, err := r.Lookup(ctx, name)
		if err != nil {
			firstErr = err
			return ref
		}
		return value
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// ResolveConfig expands references in provider credentials and auth tokens
// in place. Secret values collected here are returned so the caller can
// hand them to the log redactor.
func (r *Resolver) ResolveConfig(ctx context.Context, cfg *config.Config) ([]string, error) {
	var resolved []string
	expand := func(field string, dst *string) error {
		if !strings.Contains(*dst, "${secret:") {
			return nil
		}
		value, err := r.Expand(ctx, *dst)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		*dst = value
		resolved = append(resolved, value)
		return nil
	}

	for name, p := range cfg.Providers.Entries {
		if err := expand("providers.entries."+name+".api_key", &p.APIKey); err != nil {
			return nil, err
		}
		if err := expand("providers.entries."+name+".base_url", &p.BaseURL); err != nil {
			return nil, err
		}
		cfg.Providers.Entries[name] = p
	}
	for i := range cfg.Auth.Tokens {
		if err := expand(fmt.Sprintf("auth.tokens[%d].token", i), &cfg.Auth.Tokens[i].Token); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

// ConfigResolver adapts secret resolution to config.WithResolver. The
// resolver is rebuilt from each loaded configuration so a changed secrets
// section takes effect on reload.
func ConfigResolver(logger *slog.Logger) config.Resolver {
	return func(cfg *config.Config) error {
		r, err := FromConfig(cfg.Secrets, logger)
		if err != nil {
			return err
		}
		_, err = r.ResolveConfig(context.Background(), cfg)
		return err
	}
}

func redact(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
