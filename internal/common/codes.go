// Package common holds small helpers shared by the API server and the client.
package common

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
)

const (
	CODE_LEN    = 6     // length of the random part of a verification code
	CODE_PREFIX = "CWA" // academy prefix on every verification code

	LETTERS = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	DIGITS  = "0123456789"
	CHARS   = LETTERS + DIGITS
)

// secureRandomInt returns a uniformly distributed value in [0, max).
func secureRandomInt(max int) (int, error) {
	if max <= 0 {
		return 0, fmt.Errorf("max must be positive, got %d", max)
	}
	if max > math.MaxInt32 {
		return 0, fmt.Errorf("max too large: %d", max)
	}

	// Find the largest multiple of max within uint64 to avoid modulo bias
	limit := (math.MaxUint64 / uint64(max)) * uint64(max)

	for {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("failed to generate random bytes: %w", err)
		}
		n := binary.BigEndian.Uint64(buf[:])
		if n < limit {
			return int(n % uint64(max)), nil
		}
	}
}

// CertificateCode returns a public verification code such as CWA-2025-K7F3A9.
// The random part starts with a letter so it never reads as a number.
// Codes are random, not sequential; the caller must still reject duplicates.
func CertificateCode(year int) (string, error) {
	if year < 1000 || year > 9999 {
		return "", fmt.Errorf("year must have four digits, got %d", year)
	}
	code, err := randomCode(CODE_LEN)
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%s-%d-%s", CODE_PREFIX, year, code), nil
}

// randomCode generates an uppercase alphanumeric string whose first character
// is a letter.
func randomCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive, got %d", length)
	}

	result := make([]byte, length)

	letterIdx, err := secureRandomInt(len(LETTERS))
	if err != nil {
		return "", fmt.Errorf("failed to generate first character: %w", err)
	}
	result[0] = LETTERS[letterIdx]

	for i := 1; i < length; i++ {
		idx, err := secureRandomInt(len(CHARS))
		if err != nil {
			return "", fmt.Errorf("failed to generate character at position %d: %w", i, err)
		}
		result[i] = CHARS[idx]
	}

	return string(result), nil
}
