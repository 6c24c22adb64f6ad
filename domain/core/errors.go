package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrAnalysisNotFound = fmt.Errorf("%w: analysis", ErrNotFound)

	// Estimation errors. None of these are fatal: callers degrade to
	// "no result" for the affected model and keep going.
	ErrInsufficientData     = errors.New("insufficient data for analysis")
	ErrDegenerateRegression = errors.New("degenerate regression: zero variance in regressor")
	ErrNonConvergence       = errors.New("numerical non-convergence")
	ErrInvalidParameters    = errors.New("invalid model parameters")

	// Input errors
	ErrUnknownDistribution = errors.New("unknown distribution")
	ErrUnknownMethod       = errors.New("unknown estimation method")
	ErrInvalidObservation  = errors.New("invalid observation")
)

// NewNotFoundError builds a not-found error for a resource id
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewValidationError builds a field validation error
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidObservation, field, reason)
}

// IsNotFoundError reports whether err is a not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsEstimationError reports whether err is one of the degrade-gracefully estimation outcomes
func IsEstimationError(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrDegenerateRegression) ||
		errors.Is(err, ErrNonConvergence) ||
		errors.Is(err, ErrInvalidParameters)
}

// IsInputError reports whether err was caused by malformed caller input
func IsInputError(err error) bool {
	return errors.Is(err, ErrUnknownDistribution) ||
		errors.Is(err, ErrUnknownMethod) ||
		errors.Is(err, ErrInvalidObservation)
}
