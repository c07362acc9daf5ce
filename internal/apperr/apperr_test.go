package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/garnizeh/intake/internal/apperr"
)

func TestValidationError(t *testing.T) {
	ve := apperr.NewValidationError("message", "Message must be at least 10 characters")
	ve.Add("serviceType", "Service type is invalid")

	if got := ve.Error(); got != "Message must be at least 10 characters, Service type is invalid" {
		t.Fatalf("unexpected message: %q", got)
	}

	wrapped := fmt.Errorf("create: %w", ve)
	if !apperr.IsValidation(wrapped) {
		t.Fatalf("expected wrapped validation error to be detected")
	}
	if apperr.IsValidation(apperr.ErrNotFound) {
		t.Fatalf("ErrNotFound must not be a validation error")
	}
	if !errors.Is(fmt.Errorf("get: %w", apperr.ErrNotFound), apperr.ErrNotFound) {
		t.Fatalf("expected errors.Is to see ErrNotFound")
	}
}
