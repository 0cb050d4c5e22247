// Package version generates and compares the opaque tokens used for
// optimistic concurrency control on trees and articles.
package version

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// TokenLength is the fixed length of every generated token.
const TokenLength = 32

// Generate returns a fresh opaque version token. Tokens are derived from a
// random UUID, so uniqueness comes from entropy rather than wall-clock
// ordering; two tokens generated in the same nanosecond still differ.
func Generate() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Equal reports whether two tokens match exactly. Tokens carry no ordering
// semantics; equality is the only meaningful comparison.
func Equal(a, b string) bool {
	return a == b
}
