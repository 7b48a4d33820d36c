package apperror

import (
	"context"
	"errors"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("collective", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("name", "name is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("collective", "abc123"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Configuration wraps ErrConfiguration",
			err:       Configuration("subject collective is required"),
			target:    ErrConfiguration,
			wantMatch: true,
		},
		{
			name:      "LookupFailed wraps ErrLookup",
			err:       LookupFailed("membership", "u1/c1", errors.New("disk I/O error")),
			target:    ErrLookup,
			wantMatch: true,
		},
		{
			name:      "LookupFailed keeps its cause",
			err:       LookupFailed("user", "u1", context.Canceled),
			target:    context.Canceled,
			wantMatch: true,
		},
		{
			name:      "LookupFailed does NOT match ErrNotFound",
			err:       LookupFailed("user", "u1", errors.New("boom")),
			target:    ErrNotFound,
			wantMatch: false,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("collective", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "ValidationFailed does NOT match ErrNotFound",
			err:       ValidationFailed("name", "too long"),
			target:    ErrNotFound,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("collective", "abc123"),
			wantMessage: "collective not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("name", "name is required"),
			wantMessage: "name is required",
		},
		{
			name:        "LookupFailed message names the resource",
			err:         LookupFailed("membership", "u1/c1", errors.New("boom")),
			wantMessage: "looking up membership u1/c1 failed",
		},
		{
			name:        "Conflict message includes resource and id",
			err:         Conflict("collective", "abc123"),
			wantMessage: "collective conflict with id abc123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("collective", "abc123")
	unwrapped := err.Unwrap()

	if len(unwrapped) != 1 || unwrapped[0] != ErrNotFound {
		t.Errorf("Unwrap() = %v, want [%v]", unwrapped, ErrNotFound)
	}
}

func TestUnwrap_WithCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := LookupFailed("membership", "u1/c1", cause)
	unwrapped := err.Unwrap()

	if len(unwrapped) != 2 || unwrapped[0] != ErrLookup || unwrapped[1] != cause {
		t.Errorf("Unwrap() = %v, want [%v %v]", unwrapped, ErrLookup, cause)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "invalid email format")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}
