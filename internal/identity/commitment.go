// Package identity derives the fixed-length registry key from a natural
// identifier. Exactly one commitment function exists; the issuing side and
// the verifying side must both use it or registry lookups will never match.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	dErrors "docseal/pkg/domain-errors"
)

// commitmentDomain separates the identity keyspace from the document
// fingerprint keyspace. The two use the same primitive but must never
// produce colliding inputs.
const commitmentDomain = "docseal/identity/v1|"

// Commit derives the registry lookup key for a natural identifier.
// The identifier is trimmed and upper-cased before hashing so formatting
// variants of the same identifier commit to the same key.
func Commit(naturalID string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(naturalID))
	if normalized == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "natural identifier cannot be empty")
	}
	sum := sha256.Sum256([]byte(commitmentDomain + normalized))
	return hex.EncodeToString(sum[:]), nil
}
