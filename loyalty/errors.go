/*
errors.go - Centralized error types for the loyalty subsystem

PURPOSE:
  All loyalty error types in one place for consistency and
  discoverability. Callers classify with errors.Is/errors.As; the API
  layer maps classes to HTTP status codes.

ERROR CATEGORIES:
  1. Gating errors    - Feature disabled, invalid arguments
  2. Balance errors   - Insufficient balance for redeem/expire
  3. Storage errors   - Missing customers, transient commit failures

SEE ALSO:
  - engine.go: Raises these errors
  - api/handlers.go: Maps them to HTTP responses
*/
package loyalty

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDisabled is returned by every mutating operation when the
	// loyalty subsystem is turned off by configuration. No transaction
	// is opened.
	ErrDisabled = errors.New("loyalty subsystem is disabled")

	// ErrInvalidPoints is returned when a non-positive point quantity is
	// passed where positivity is required (award/redeem/expire), or a
	// zero adjustment is requested.
	ErrInvalidPoints = errors.New("points must be greater than zero")

	// ErrInsufficientBalance is returned when a redeem or expire asks
	// for more points than the customer currently holds.
	ErrInsufficientBalance = errors.New("insufficient points balance")

	// ErrCustomerNotFound is returned when the referenced customer does
	// not exist or has been deleted.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrEntryNotExpirable is returned when the sweep tries to flag an
	// entry that is not an unexpired earned entry. The flag flip is the
	// only mutation the ledger permits and it is one-way.
	ErrEntryNotExpirable = errors.New("ledger entry cannot be flagged expired")

	// ErrStorageFailure wraps transaction failures that may succeed on
	// retry (lock contention, connection loss). The whole operation
	// rolled back; no partial ledger state exists.
	ErrStorageFailure = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports the shortage detail for a rejected
// redeem or expire.
type InsufficientBalanceError struct {
	CustomerID string
	Available  int64
	Requested  int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient points balance for customer %s: available %d, requested %d",
		e.CustomerID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// StorageError wraps a low-level persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return ErrStorageFailure }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid caller
// input or state, as opposed to an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPoints) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrCustomerNotFound)
}

// IsRetryable reports whether the operation might succeed if retried.
// Note that retries are not idempotency-keyed: retrying an award after
// an ambiguous commit can double-award points.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageFailure)
}
