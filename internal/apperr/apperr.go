// Package apperr defines the error taxonomy shared by the auth gate, the
// request store and the HTTP layer.
package apperr

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when an operation targets an id that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized covers missing, malformed, expired and foreign tokens as
	// well as tokens whose admin is gone or inactive.
	ErrUnauthorized = errors.New("not authorized")
	// ErrInvalidCredentials is the single login failure, whatever the cause.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports caller-fixable input problems.
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, ", ")
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
