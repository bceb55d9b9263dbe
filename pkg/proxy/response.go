package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"tianji-hq/oracle/pkg/proxy/types"
)

// WriteJSONResponse writes data as JSON with the given status.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}
	return nil
}

// WriteErrorResponse writes errResp with the status its type maps to.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	return WriteJSONResponse(w, errResp.Error.HTTPStatusCode(), errResp)
}

// WriteError maps err with HandleError and writes it.
func WriteError(w http.ResponseWriter, err error) error {
	return WriteErrorResponse(w, HandleError(err))
}
