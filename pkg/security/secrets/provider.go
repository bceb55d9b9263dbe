package secrets

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Provider that does not hold the secret.
var ErrNotFound = errors.New("secret not found")

// Provider looks secrets up in one backend.
type Provider interface {
	// Lookup returns the value of name, or an error wrapping ErrNotFound.
	Lookup(ctx context.Context, name string) (string, error)

	// Name identifies the backend in logs ("env", "file").
	Name() string
}
