// Provides helper functions for mapping and writing errors.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/maruel/memoir/internal/server/dto"
	"github.com/maruel/memoir/internal/storage"
)

// storageError maps a storage error to an API error. resource names the
// object in not found messages.
func storageError(err error, resource, op string) error {
	var verr *storage.ValidationError
	switch {
	case errors.As(err, &verr):
		return dto.BadRequest(verr.Error()).WithDetail("field", verr.Field)
	case errors.Is(err, storage.ErrNotFound):
		return dto.NotFound(resource)
	case errors.Is(err, storage.ErrForbidden):
		return dto.Forbidden("Access to " + resource + " denied")
	case errors.Is(err, storage.ErrUserExists):
		return dto.Conflict("User already exists")
	case errors.Is(err, storage.ErrUserQuotaExceeded):
		return dto.QuotaExceeded("Maximum number of users reached")
	case errors.Is(err, storage.ErrInvalidCredentials):
		return dto.Unauthorized("Invalid credentials")
	default:
		return dto.InternalWithError("Failed to "+op, err)
	}
}

// writeErrorResponse writes an APIError as a JSON response.
// Use this in raw http.HandlerFunc handlers that don't use server.Wrap.
func writeErrorResponse(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorCode := dto.ErrorCodeInternal
	message := "internal error"
	var details map[string]any

	var ewsErr dto.ErrorWithStatus
	if errors.As(err, &ewsErr) {
		statusCode = ewsErr.StatusCode()
		errorCode = ewsErr.Code()
		message = ewsErr.Error()
		details = ewsErr.Details()
		var apiErr *dto.APIError
		if errors.As(err, &apiErr) {
			message = apiErr.Message()
		}
	}
	if len(details) == 0 {
		details = nil
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := dto.ErrorResponse{
		Error:   dto.ErrorDetails{Code: errorCode, Message: message},
		Details: details,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode error response", "err", err)
	}
}

// writeJSON writes v with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "err", err)
	}
}
