// Package handlers implements the REST counterpart of the interpretation
// stream.
//
// POST /api/interpret/bazi takes the same payload as the WebSocket
// bazi_ai_request message and returns the whole text at once:
//
//	200 {"content": "..."}
//	400 invalid JSON, missing pillars, unknown provider
//	401 missing or invalid bearer token
//	429 the user already has a generation in flight
//	502/504 the provider failed and produced no fallback
//
// It shares the admission guard and provider adapter with the WebSocket
// dispatcher and adds a coalescing cache in front of them.
package handlers
