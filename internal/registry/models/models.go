// Package models defines the registry's typed inputs: identity commitments
// and document hashes in their canonical hex form, plus the request and
// response shapes of the HTTP surface.
package models

import (
	"strings"

	dErrors "docseal/pkg/domain-errors"
)

// Commitment is an identity commitment in canonical form:
// 0x-prefixed, lowercase, 64 hex characters.
type Commitment string

// Hash is a document fingerprint in canonical form:
// 0x-prefixed, lowercase, 64 hex characters.
type Hash string

func (c Commitment) String() string { return string(c) }
func (h Hash) String() string       { return string(h) }

// Bare returns the hex digits without the 0x prefix.
func (c Commitment) Bare() string { return strings.TrimPrefix(string(c), "0x") }
func (h Hash) Bare() string       { return strings.TrimPrefix(string(h), "0x") }

// ParseCommitment validates and normalizes an identity commitment.
// Accepts hex with or without a 0x prefix; anything that is not exactly
// 64 hex characters after stripping is rejected before any ledger call.
func ParseCommitment(s string) (Commitment, error) {
	normalized, err := parseHex64(s, "identity commitment")
	return Commitment(normalized), err
}

// ParseHash validates and normalizes a document hash.
func ParseHash(s string) (Hash, error) {
	normalized, err := parseHex64(s, "hash")
	return Hash(normalized), err
}

func parseHex64(s, label string) (string, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "0x")
	trimmed = strings.TrimPrefix(trimmed, "0X")
	if len(trimmed) != 64 {
		return "", dErrors.New(dErrors.CodeValidation, label+" must be 64 hex characters")
	}
	lower := strings.ToLower(trimmed)
	for _, r := range lower {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", dErrors.New(dErrors.CodeValidation, label+" contains non-hex characters")
		}
	}
	return "0x" + lower, nil
}

// StoreInitialRequest is the request body for POST /store-initial.
type StoreInitialRequest struct {
	IdentityID string `json:"identityId"`
	HashHex    string `json:"hashHex"`
}

// Validate checks both hex fields without touching the ledger.
func (r *StoreInitialRequest) Validate() error {
	if _, err := ParseCommitment(r.IdentityID); err != nil {
		return err
	}
	_, err := ParseHash(r.HashHex)
	return err
}

// UpdateHashRequest is the request body for POST /update-hash.
type UpdateHashRequest struct {
	IdentityID string `json:"identityId"`
	NewHashHex string `json:"newHashHex"`
}

// Validate checks both hex fields without touching the ledger.
func (r *UpdateHashRequest) Validate() error {
	if _, err := ParseCommitment(r.IdentityID); err != nil {
		return err
	}
	_, err := ParseHash(r.NewHashHex)
	return err
}

// WriteResponse is the response body for registry write operations.
type WriteResponse struct {
	Success     bool   `json:"success"`
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
}

// VerifyResponse is the response body for GET /verify/{identityId}/{hash}.
type VerifyResponse struct {
	Success bool `json:"success"`
	Valid   bool `json:"valid"`
}
