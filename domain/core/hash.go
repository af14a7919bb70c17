package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// RunKey fingerprints a scoring run request so that repeated requests with
// identical filter parameters, feature selection and threshold factor resolve
// to the same cached run instead of refitting. Feature order is part of the
// key: the ordered list is the authoritative column order for the run.
func RunKey(month, year int, zone string, features []string, factor float64) Hash {
	payload := fmt.Sprintf("%d|%d|%s|%s|%.4f", month, year, zone, strings.Join(features, ","), factor)
	return NewHash([]byte(payload))
}
