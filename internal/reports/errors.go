package reports

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("report not found")
	ErrInvalidRequest = errors.New("invalid report request")
	ErrNotReady       = errors.New("report not completed")

	errStorage = errors.New("storage")
)

const (
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeStorage    = "STORAGE_ERROR"
	ErrorCodeInternal   = "INTERNAL_ERROR"
)

// ValidationError names the request field that was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", errStorage, op, err)
}
