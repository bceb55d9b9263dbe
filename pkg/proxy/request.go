package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"tianji-hq/oracle/pkg/proxy/types"
)

// MaxRequestBodySize is the largest accepted request body (1MB).
const MaxRequestBodySize = 1 << 20

// ParseInterpretRequest decodes the body of an interpretation request.
// Bodies over MaxRequestBodySize, invalid JSON, and trailing data are
// reported as a *RequestError.
func ParseInterpretRequest(r *http.Request) (*types.InterpretRequest, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return nil, &RequestError{
			Message: fmt.Sprintf("unsupported content type %q", ct),
			Code:    types.CodeInvalidValue,
			Param:   "Content-Type",
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) > MaxRequestBodySize {
		return nil, &RequestError{
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize),
			Code:    types.CodeRequestTooLarge,
			Param:   "body",
		}
	}

	var req types.InterpretRequest
	dec := json.NewDecoder(strings.NewReader(string(body)))
	if err := dec.Decode(&req); err != nil {
		return nil, &RequestError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
			Code:    types.CodeInvalidJSON,
			Param:   "body",
		}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &RequestError{
			Message: "invalid JSON: unexpected data after the request object",
			Code:    types.CodeInvalidJSON,
			Param:   "body",
		}
	}
	return &req, nil
}

// RequestError represents a request parsing or validation error.
type RequestError struct {
	Message string
	Code    string
	Param   string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse converts a RequestError to a 400 error response.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	return types.NewInvalidRequestError(e.Message, e.Param, e.Code)
}
