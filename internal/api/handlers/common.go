// Package handlers provides the HTTP handlers of the netenum API.
// This file contains the response helpers shared by all handlers.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/anstrom/netenum/internal/errors"
	"github.com/anstrom/netenum/internal/logging"
)

// ErrorResponse is the body of every JSON error response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// InvalidNetworkResponse is returned for a malformed scan request.
type InvalidNetworkResponse struct {
	Error  string `json:"error" example:"Invalid network CIDR"`
	Format string `json:"format" example:"x.x.x.x/x"`
}

// writeJSON writes data as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, logger *logging.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// writeError maps err onto its HTTP status and writes an ErrorResponse.
func writeError(w http.ResponseWriter, r *http.Request, logger *logging.Logger, err error) {
	status := errors.HTTPStatus(err)
	if logger != nil {
		level := logger.Warn
		if status >= http.StatusInternalServerError {
			level = logger.Error
		}
		level("API error",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err)
	}
	writeJSON(w, logger, status, ErrorResponse{Error: errorMessage(err)})
}

// errorMessage returns the client-facing message of err. Causes are not
// exposed.
func errorMessage(err error) string {
	var scanErr *errors.ScanError
	if stderrors.As(err, &scanErr) {
		return scanErr.Message
	}
	var storageErr *errors.StorageError
	if stderrors.As(err, &storageErr) {
		return storageErr.Message
	}
	return "Internal server error"
}
