package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrCustomerNotFound = fmt.Errorf("%w: customer", ErrNotFound)
	ErrRunNotFound      = fmt.Errorf("%w: scoring run", ErrNotFound)
	ErrFeatureNotFound  = fmt.Errorf("%w: feature column", ErrNotFound)

	// Model errors
	ErrNotFitted          = errors.New("model not fitted")
	ErrDimensionMismatch  = errors.New("feature dimension mismatch")
	ErrSingularCovariance = errors.New("covariance matrix is singular")
	ErrAllMissingColumn   = errors.New("feature column contains only missing values")

	// Data errors
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrNonRectangular   = errors.New("rows have inconsistent column counts")

	// Policy errors
	ErrThresholdFactorOutOfRange = errors.New("threshold factor out of range")
)

// NewDimensionMismatchError reports a fit-time vs score-time column disagreement.
func NewDimensionMismatchError(want, got int) error {
	return fmt.Errorf("%w: fitted with %d columns, got %d", ErrDimensionMismatch, want, got)
}

// NewAllMissingColumnError names the column whose imputation mean is undefined.
func NewAllMissingColumnError(column string) error {
	return fmt.Errorf("%w: %q", ErrAllMissingColumn, column)
}

// NewFeatureNotFoundError names a requested feature column absent from the table.
func NewFeatureNotFoundError(column string) error {
	return fmt.Errorf("%w: %q", ErrFeatureNotFound, column)
}

// IsNotFound checks whether err belongs to the not-found family.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
