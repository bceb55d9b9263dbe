package auth

import (
	"context"
	"crypto/sha256"
	"sort"
	"strings"
	"sync"
	"time"

	"tianji-hq/oracle/pkg/config"
)

// TokenValidator validates bearer tokens against a configured set.
// Tokens are indexed by their SHA-256 digest so raw values are not kept
// as map keys.
type TokenValidator struct {
	mu     sync.RWMutex
	tokens map[[sha256.Size]byte]*TokenInfo
	now    func() time.Time
}

// NewTokenValidator creates a new token validator with the given tokens
func NewTokenValidator(tokens []*TokenInfo) *TokenValidator {
	v := &TokenValidator{now: time.Now}
	v.Replace(tokens)
	return v
}

// NewTokenValidatorFromConfig creates a validator from the auth section.
func NewTokenValidatorFromConfig(cfg config.AuthConfig) *TokenValidator {
	return NewTokenValidator(TokensFromConfig(cfg))
}

// TokensFromConfig converts configured tokens.
func TokensFromConfig(cfg config.AuthConfig) []*TokenInfo {
	out := make([]*TokenInfo, 0, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		out = append(out, &TokenInfo{
			Token: t.Token,
			User: User{
				ID:      t.UserID,
				Email:   t.Email,
				Name:    t.Name,
				IsAdmin: t.IsAdmin,
			},
			Disabled:  t.Disabled,
			ExpiresAt: t.ExpiresAt,
		})
	}
	return out
}

// AuthorizeToken checks the token and returns a copy of its user.
func (v *TokenValidator) AuthorizeToken(ctx context.Context, token string) (*User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	v.mu.RLock()
	info, ok := v.tokens[sha256.Sum256([]byte(token))]
	v.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidToken
	}
	if info.Disabled {
		return nil, ErrTokenDisabled
	}
	if !info.ExpiresAt.IsZero() && v.now().After(info.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	user := info.User
	return &user, nil
}

// Replace swaps the whole token set, as on a configuration reload.
func (v *TokenValidator) Replace(tokens []*TokenInfo) {
	m := make(map[[sha256.Size]byte]*TokenInfo, len(tokens))
	for _, t := range tokens {
		m[sha256.Sum256([]byte(t.Token))] = t
	}

	v.mu.Lock()
	v.tokens = m
	v.mu.Unlock()
}

// Add adds or replaces a token.
func (v *TokenValidator) Add(info *TokenInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tokens[sha256.Sum256([]byte(info.Token))] = info
}

// Remove removes a token.
func (v *TokenValidator) Remove(token string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.tokens, sha256.Sum256([]byte(token)))
}

// Users returns the distinct user IDs with at least one token, sorted.
func (v *TokenValidator) Users() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	seen := make(map[string]bool, len(v.tokens))
	for _, t := range v.tokens {
		seen[t.User.ID] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
