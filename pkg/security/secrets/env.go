package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider reads secrets from environment variables. The reference name
// is upper-cased, hyphens become underscores, and Prefix is prepended:
// "deepseek-api-key" is read from ORACLE_SECRET_DEEPSEEK_API_KEY.
type EnvProvider struct {
	Prefix string
}

// NewEnvProvider creates an environment provider.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{Prefix: prefix}
}

// Lookup implements Provider. An empty variable counts as unset.
func (p *EnvProvider) Lookup(_ context.Context, name string) (string, error) {
	key := p.variable(name)
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%w: %s not set", ErrNotFound, key)
	}
	return value, nil
}

// Name implements Provider.
func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) variable(name string) string {
	return p.Prefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
