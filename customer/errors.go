package customer

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the referenced customer or address
	// does not exist (or was soft-deleted, for non-restore operations).
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for structurally invalid input.
	ErrValidation = errors.New("validation failed")

	// ErrTooManyAddresses is returned when a customer already holds the
	// configured maximum number of addresses.
	ErrTooManyAddresses = errors.New("address limit reached")
)

// ValidationError reports which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
