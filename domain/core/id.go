package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	CustomerID ID
	RunID      ID
	FeatureKey ID
)

// String conversions for domain IDs
func (id CustomerID) String() string { return ID(id).String() }
func (id RunID) String() string      { return ID(id).String() }
func (k FeatureKey) String() string  { return ID(k).String() }

// ParseCustomerID parses a string into CustomerID
func ParseCustomerID(s string) (CustomerID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("customer ID cannot be empty")
	}
	return CustomerID(s), nil
}

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}

// ParseFeatureKey parses a string into FeatureKey
func ParseFeatureKey(s string) (FeatureKey, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("feature key cannot be empty")
	}
	return FeatureKey(s), nil
}
