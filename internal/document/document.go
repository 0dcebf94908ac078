// Package document defines the document kinds the protocol covers and the
// canonical field list attached to each kind. The field list is versioned:
// changing order or normalization rules changes every fingerprint of that kind.
package document

import (
	"strings"
	"time"

	dErrors "docseal/pkg/domain-errors"
)

// Kind is a tagged document kind. Each kind carries a fixed, ordered list of
// canonical fields; fingerprints are derived only from that list.
type Kind string

const (
	KindIdentityCard Kind = "identity_card"
	KindLicense      Kind = "license"
	KindExamResult   Kind = "exam_result"
)

// CanonicalVersion identifies the field-list and normalization revision.
// Bump this when a kind's field order or normalization rules change.
const CanonicalVersion = "v1"

// Field describes one canonical field of a document kind.
type Field struct {
	Key      string
	Optional bool
}

var canonicalFields = map[Kind][]Field{
	KindIdentityCard: {
		{Key: "idNumber"},
		{Key: "fullName"},
		{Key: "dateOfBirth"},
		{Key: "issuedDate"},
	},
	KindLicense: {
		{Key: "licenseNumber"},
		{Key: "fullName"},
		{Key: "dateOfBirth"},
		{Key: "vehicleClasses", Optional: true},
		{Key: "issuedDate"},
		{Key: "expiryDate"},
	},
	KindExamResult: {
		{Key: "indexNumber"},
		{Key: "fullName"},
		{Key: "examName"},
		{Key: "examYear"},
		{Key: "results", Optional: true},
	},
}

var naturalIDField = map[Kind]string{
	KindIdentityCard: "idNumber",
	KindLicense:      "licenseNumber",
	KindExamResult:   "indexNumber",
}

// Kinds lists every known document kind.
func Kinds() []Kind {
	return []Kind{KindIdentityCard, KindLicense, KindExamResult}
}

// ParseKind validates a kind string at trust boundaries.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindIdentityCard, KindLicense, KindExamResult:
		return Kind(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown document kind: "+s)
}

// CanonicalFields returns the kind's fixed, ordered field list.
func (k Kind) CanonicalFields() []Field {
	return canonicalFields[k]
}

// NaturalIDField returns the key of the field holding the natural identifier
// used to derive the registry lookup key.
func (k Kind) NaturalIDField() string {
	return naturalIDField[k]
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := canonicalFields[k]
	return ok
}

// Normalize applies the fixed per-field normalization: trim surrounding
// whitespace and upper-case. Two records are the same document iff their
// normalized canonical forms are equal, not iff their raw inputs match.
func Normalize(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// Record is a holder-side document with its current fingerprint.
type Record struct {
	Kind        Kind              `json:"kind"`
	Fields      map[string]string `json:"fields"`
	Fingerprint string            `json:"fingerprint"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NaturalID returns the record's natural identifier, normalized.
func (r *Record) NaturalID() string {
	return Normalize(r.Fields[r.Kind.NaturalIDField()])
}
