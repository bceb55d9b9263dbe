package types

import "net/http"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request. Type selects the HTTP status;
// Code is the finer machine-readable reason.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Error types.
const (
	ErrorTypeInvalidRequest    = "invalid_request_error"
	ErrorTypeAuthentication    = "authentication_error"
	ErrorTypeNotFound          = "not_found"
	ErrorTypeMethodNotAllowed  = "method_not_allowed"
	ErrorTypeRateLimitExceeded = "rate_limit_exceeded"
	ErrorTypeServerError       = "server_error"
	ErrorTypeBadGateway        = "bad_gateway"
	ErrorTypeGatewayTimeout    = "gateway_timeout"
)

var statusByType = map[string]int{
	ErrorTypeInvalidRequest:    http.StatusBadRequest,
	ErrorTypeAuthentication:    http.StatusUnauthorized,
	ErrorTypeNotFound:          http.StatusNotFound,
	ErrorTypeMethodNotAllowed:  http.StatusMethodNotAllowed,
	ErrorTypeRateLimitExceeded: http.StatusTooManyRequests,
	ErrorTypeServerError:       http.StatusInternalServerError,
	ErrorTypeBadGateway:        http.StatusBadGateway,
	ErrorTypeGatewayTimeout:    http.StatusGatewayTimeout,
}

// Error codes.
const (
	// Request decoding.
	CodeInvalidJSON     = "invalid_json"
	CodeInvalidValue    = "invalid_value"
	CodeRequestTooLarge = "request_too_large"

	// Interpretation input.
	CodeMissingPillars  = "missing_pillars"
	CodeInvalidProvider = "invalid_provider"

	// Caller.
	CodeInvalidToken       = "invalid_token"
	CodeGenerationInFlight = "generation_in_flight"

	// Upstream.
	CodeProviderError   = "provider_error"
	CodeProviderTimeout = "provider_timeout"

	CodeInternalError = "internal_error"
)

// NewErrorResponse builds an error body.
func NewErrorResponse(message, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{
		Message: message,
		Type:    errorType,
		Param:   param,
		Code:    code,
	}}
}

// NewInvalidRequestError is a 400 naming the offending param.
func NewInvalidRequestError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, param, code)
}

// NewAuthenticationError is a 401 for a missing or unknown token.
func NewAuthenticationError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeAuthentication, "", CodeInvalidToken)
}

// NewRateLimitError is a 429 carrying the configured denied message.
func NewRateLimitError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeRateLimitExceeded, "", CodeGenerationInFlight)
}

func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, "", CodeInternalError)
}

func NewBadGatewayError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeBadGateway, "", CodeProviderError)
}

func NewGatewayTimeoutError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeGatewayTimeout, "", CodeProviderTimeout)
}

// HTTPStatusCode maps the error type to a response status. Unknown types
// are served as 500.
func (e *ErrorDetail) HTTPStatusCode() int {
	if code, ok := statusByType[e.Type]; ok {
		return code
	}
	return http.StatusInternalServerError
}
