package proxy

import (
	"context"
	"errors"
	"fmt"

	"tianji-hq/oracle/pkg/gateway"
	"tianji-hq/oracle/pkg/interpret"
	"tianji-hq/oracle/pkg/providers"
	"tianji-hq/oracle/pkg/proxy/types"
	"tianji-hq/oracle/pkg/security/auth"
)

// HandleError converts an error to an error response. Payload and
// provider selection problems map to 400, token failures to 401, and
// upstream failures to 502 or 504. Anything else is a 500 that does not
// leak the cause.
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	var invalidPayload *interpret.InvalidPayloadError
	switch {
	case errors.As(err, &invalidPayload):
		return types.NewInvalidRequestError(gateway.MessageMissingPillars, invalidPayload.Field, types.CodeMissingPillars)
	case errors.Is(err, interpret.ErrMissingPillars):
		return types.NewInvalidRequestError(gateway.MessageMissingPillars, "payload.pillars", types.CodeMissingPillars)
	}

	var unknownProvider *providers.UnknownProviderError
	if errors.As(err, &unknownProvider) {
		return types.NewInvalidRequestError(gateway.MessageInvalidProvider, "provider", types.CodeInvalidProvider)
	}

	if isAuthError(err) {
		return types.NewAuthenticationError(gateway.MessageUnauthorized)
	}

	var timeoutErr *providers.TimeoutError
	if errors.As(err, &timeoutErr) || errors.Is(err, context.DeadlineExceeded) {
		return types.NewGatewayTimeoutError("Provider request timed out.")
	}

	var providerErr *providers.ProviderError
	if errors.As(err, &providerErr) {
		return types.NewBadGatewayError(fmt.Sprintf("Provider error (%s).", providerErr.Provider))
	}

	switch providers.Classify(err) {
	case "auth", "rate_limit", "parse", "stream":
		return types.NewBadGatewayError(gateway.MessageGenerationFailed)
	}

	return types.NewServerError("An internal error occurred. Please try again later.")
}

func isAuthError(err error) bool {
	for _, target := range []error{auth.ErrMissingToken, auth.ErrInvalidToken, auth.ErrTokenDisabled, auth.ErrTokenExpired} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
