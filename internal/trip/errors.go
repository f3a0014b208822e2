package trip

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTier is returned when a luxury level is not standard, premium or luxury.
	ErrInvalidTier = errors.New("invalid tier")
	// ErrInvalidDateRange is returned when the end date is not after the start date.
	ErrInvalidDateRange = errors.New("end date must be after start date")
	// ErrNegativeBudget is returned for budgets below zero.
	ErrNegativeBudget = errors.New("budget must not be negative")
	// ErrInvalidBuffer is returned for safety buffers outside [0, 0.5].
	ErrInvalidBuffer = errors.New("buffer must be between 0 and 0.5")
	// ErrCatalogMissingEntry is returned when a city has no catalog record.
	ErrCatalogMissingEntry = errors.New("catalog entry not found")
)

// InvalidInputError reports a query field that failed validation.
// No computation is attempted once one is returned.
type InvalidInputError struct {
	Field  string
	Reason error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return e.Reason }

func invalid(field string, reason error) error {
	return &InvalidInputError{Field: field, Reason: reason}
}

// IsInvalidInput reports whether err is (or wraps) an InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}
