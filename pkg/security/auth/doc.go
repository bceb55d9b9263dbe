// Package auth resolves bearer tokens to users.
//
// TokenValidator holds the configured token set and implements Authorizer,
// which the WebSocket dispatcher calls with the token carried in each
// request envelope. Middleware applies the same check to plain HTTP
// requests, reading the token from the Authorization header (Bearer scheme)
// or X-API-Key, and stores the resolved User in the request context.
//
//	validator := auth.NewTokenValidatorFromConfig(cfg.Auth)
//	user, err := validator.AuthorizeToken(ctx, token)
//
// The token set can be swapped at runtime with Replace, which the server
// does when the configuration file changes.
package auth
