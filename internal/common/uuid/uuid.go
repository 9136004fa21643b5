// Package uuid produces the time-ordered identifiers used for request correlation and
// for records created by the development API. It wraps github.com/google/uuid with
// version 7 as the default.
package uuid

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UUID is an alias of github.com/google/uuid.UUID.
type UUID = uuid.UUID

// New returns a new UUIDv7. Panics if generation fails.
func New() UUID {
	id, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}
	return id
}

// RequestID returns a UUIDv7 string, or a timestamp-based ID if the random source
// fails. It never panics.
func RequestID() string {
	id, err := uuid.NewV7()
	if err == nil {
		return id.String()
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}

// Parse parses a UUID string.
func Parse(s string) (UUID, error) {
	return uuid.Parse(s)
}

// IsValid reports whether s is a well-formed UUID of any version.
func IsValid(s string) bool {
	return uuid.Validate(s) == nil
}
