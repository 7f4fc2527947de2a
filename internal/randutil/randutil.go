// Package randutil generates unguessable identifiers for OAuth flow artifacts.
package randutil

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// String returns a base64url-encoded string built from n bytes of
// cryptographically secure randomness. Flow artifacts (internal state,
// authorization codes, refresh token handles) use n=32 for 256 bits of
// entropy.
func String(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// MustString is String but panics on failure. Randomness failure means the
// process cannot safely mint credentials at all, so callers that cannot
// return an error (claim construction, test fixtures) use this.
func MustString(n int) string {
	s, err := String(n)
	if err != nil {
		panic(err)
	}
	return s
}
