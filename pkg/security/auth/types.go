package auth

import (
	"context"
	"errors"
	"time"
)

// Authorization failures. They are deliberately coarse; callers report
// them to clients without distinguishing the cause.
var (
	ErrMissingToken  = errors.New("missing token")
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenDisabled = errors.New("token disabled")
	ErrTokenExpired  = errors.New("token expired")
)

// User is the identity a token resolves to.
type User struct {
	ID      string `json:"id"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	IsAdmin bool   `json:"is_admin,omitempty"`
}

// TokenInfo represents a bearer token with metadata
type TokenInfo struct {
	Token     string
	User      User
	Disabled  bool
	ExpiresAt time.Time
}

// Authorizer resolves bearer tokens to users.
type Authorizer interface {
	AuthorizeToken(ctx context.Context, token string) (*User, error)
}
