// Package apperr defines the error kinds surfaced by the ingestion pipeline.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for a missing file, wrong MIME type or
	// malformed request before any processing starts.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExtraction is returned when the PDF-to-text step fails.
	ErrExtraction = errors.New("extraction failed")

	// ErrParse is returned when a numeric token cannot be parsed.
	ErrParse = errors.New("parse error")

	// ErrAmbiguousAmount marks a line with a single unsigned amount and no
	// trailing balance. It is a per-line condition, never fatal.
	ErrAmbiguousAmount = errors.New("ambiguous amount")

	// ErrPersistence wraps store failures during save.
	ErrPersistence = errors.New("persistence failed")

	ErrNotFound = errors.New("not found")
)

// UserError carries the single message shown to the user for a failed
// operation, alongside the underlying cause.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-facing error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// Message returns the user-facing message for err. Errors that are not
// UserErrors get fallback.
func Message(err error, fallback string) string {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.UserMessage
	}
	return fallback
}
