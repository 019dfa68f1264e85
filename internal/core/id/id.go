// Package id provides UUIDv7 identifiers for vouchers, transactions and chart entries.
// UUIDv7 is time-ordered, so primary keys sort by creation time.
package id

import (
	"github.com/google/uuid"
)

// ID is a type alias for UUID, used across all entities.
type ID = uuid.UUID

// New generates a new UUIDv7.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		// Fallback to V4 if the clock source fails
		return uuid.New()
	}
	return v
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}

// Ptr returns a pointer to a copy of v, for optional references.
func Ptr(v ID) *ID {
	return &v
}

// Equal compares two optional references.
func Equal(a, b *ID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
