/*
errors.go - Error types for the payout engine

ERROR CATEGORIES:
  1. Amount errors - the pool amount is unusable (the only allocation failure)
  2. Commit errors - the history commit was given an unusable date or nothing to save

Malformed person data is never an error here; see DefaultEvent in types.go.
*/
package payout

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when the pool amount is non-numeric,
	// not finite, zero or negative. No partial computation is done.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidDate is returned when a commit date is missing or in the future.
	ErrInvalidDate = errors.New("invalid payment date")

	// ErrEmptyDistribution is returned when a commit has no results to save.
	ErrEmptyDistribution = errors.New("no payment data to save")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InvalidAmountError describes why an amount was rejected.
type InvalidAmountError struct {
	Input  string
	Reason string
}

func (e *InvalidAmountError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("invalid amount: %s", e.Reason)
	}
	return fmt.Sprintf("invalid amount %q: %s", e.Input, e.Reason)
}

func (e *InvalidAmountError) Unwrap() error {
	return ErrInvalidAmount
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrEmptyDistribution)
}
