package handler

// RESPONSE HELPERS:
// Every API response goes through writeJSON or writeError, so every error
// has the same shape:
//
//	{"error": "not_found", "message": "collective not found with id nope"}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/donorshield/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable, e.g. "not_found"
	Message string `json:"message"`         // human-readable
	Field   string `json:"field,omitempty"` // set for validation errors
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps a domain error to its HTTP status and error type.
//
//	ErrValidation    → 400 validation_error
//	ErrUnauthorized  → 401 unauthorized
//	ErrForbidden     → 403 forbidden
//	ErrNotFound      → 404 not_found
//	ErrConflict      → 409 conflict
//	ErrConfiguration → 500 configuration_error
//	ErrLookup        → 503 lookup_failed
//
// A failed privilege lookup is a 503: the page could not be rendered
// safely right now, and retrying may succeed.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrConfiguration):
		return http.StatusInternalServerError, "configuration_error"
	case errors.Is(err, apperror.ErrLookup):
		return http.StatusServiceUnavailable, "lookup_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError never exposes internal details. Lookup and configuration
// failures get a fixed message: their AppError text names record ids.
func writeError(w http.ResponseWriter, err error) {
	status, errorType := statusFor(err)

	resp := ErrorResponse{Error: errorType, Message: "An internal error occurred"}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && status < http.StatusInternalServerError {
		resp.Message = appErr.Message
		resp.Field = appErr.Field
	}
	if errorType == "lookup_failed" {
		resp.Message = "The page is temporarily unavailable"
	}
	writeJSON(w, status, resp)
}
