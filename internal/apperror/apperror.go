// Package apperror defines the application's error taxonomy.
//
// Two families matter for the visibility policy:
//
//   - ErrConfiguration: the caller forgot required context (no subject
//     collective). The policy cannot make a fail-closed decision without it,
//     so the request is aborted.
//   - ErrLookup: a repository failed while the policy was asking who the
//     viewer is. This is propagated, never converted into "low privilege",
//     because a transient outage must not look like a valid security decision.
//
// Missing data (no membership row, deleted viewer) is NOT an error: it is
// evidence of absence of privilege and is handled inside the policy.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrForbidden     = errors.New("forbidden")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConfiguration = errors.New("configuration error")
	ErrLookup        = errors.New("lookup failure")
)

type AppError struct {
	Err     error  // sentinel, matched with errors.Is
	Cause   error  // optional underlying error (driver, network)
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause, so errors.Is matches
// ErrLookup as well as, say, context.Canceled from the driver.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned for bad login credentials.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Configuration reports missing required context, e.g. no subject collective.
func Configuration(message string) *AppError {
	return &AppError{
		Err:     ErrConfiguration,
		Message: message,
	}
}

// LookupFailed wraps a repository failure hit while resolving privilege.
func LookupFailed(resource, id string, cause error) *AppError {
	return &AppError{
		Err:     ErrLookup,
		Cause:   cause,
		Message: fmt.Sprintf("looking up %s %s failed", resource, id),
	}
}
