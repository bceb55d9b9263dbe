package handlers

import (
	"context"

	"tianji-hq/oracle/pkg/providers"
)

// Admitter hands out per-user generation slots. The same
// *admission.Guard instance serves the WebSocket dispatcher.
type Admitter interface {
	Acquire(userID string) (release func(), ok bool)
}

// Resolver maps a requested provider name to a registered provider.
type Resolver interface {
	ResolveProvider(name string) (string, error)
}

// Generator produces interpretation text.
type Generator interface {
	Generate(ctx context.Context, req providers.GenerateRequest) (string, error)
}
