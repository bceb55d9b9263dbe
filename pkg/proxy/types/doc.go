// Package types defines the JSON bodies of the REST surface.
//
// InterpretRequest mirrors the WebSocket bazi_ai_request envelope without
// the token, which travels in the Authorization header instead.
// InterpretResponse carries the full interpretation text.
//
// Every error is written as an ErrorResponse:
//
//	{"error": {"message": "...", "type": "invalid_request_error", "code": "missing_pillars"}}
//
// ErrorDetail.HTTPStatusCode maps the type to the response status.
package types
