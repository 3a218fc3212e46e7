package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelUnwrapping(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
	}{
		{NotFound("highlight", "h1"), ErrNotFound},
		{ValidationFailed("text", "text is required"), ErrValidation},
		{Conflict("highlight", "h1"), ErrConflict},
		{Forbidden("not yours"), ErrForbidden},
		{Unauthorized("sign in first"), ErrUnauthorized},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.sentinel) {
			t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.sentinel)
		}
	}
}

func TestWrappedSentinelStillMatches(t *testing.T) {
	err := fmt.Errorf("listing highlights: %w", NotFound("highlight", "h1"))
	if !errors.Is(err, ErrNotFound) {
		t.Error("wrapping broke sentinel matching")
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As failed through the wrap")
	}
	if appErr.Message == "" {
		t.Error("AppError lost its message")
	}
}

func TestValidationFieldCarried(t *testing.T) {
	err := ValidationFailed("page_id", "page id is required")
	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As failed")
	}
	if appErr.Field != "page_id" {
		t.Errorf("Field = %q, want page_id", appErr.Field)
	}
}
