// Package canonical derives the deterministic fingerprint of a document record.
//
// The canonical form of a record is the ordered list of normalized field
// values for its kind, with the "-" sentinel standing in for absent optional
// fields so every field keeps its position. The fingerprint is the SHA-256
// digest of the form joined with "|", as lowercase hex.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"docseal/internal/document"
)

// MissingSentinel is substituted for absent optional fields so position is
// preserved in the concatenation.
const MissingSentinel = "-"

// separator joins canonical field values before hashing.
const separator = "|"

// Form builds the kind's canonical form from raw field values. Values are
// normalized (trim, case-fold); fields not present in the input map become
// the sentinel. Form is total: it never fails for a known kind.
func Form(kind document.Kind, fields map[string]string) []string {
	spec := kind.CanonicalFields()
	form := make([]string, 0, len(spec))
	for _, f := range spec {
		raw, ok := fields[f.Key]
		normalized := document.Normalize(raw)
		if !ok || normalized == "" {
			form = append(form, MissingSentinel)
			continue
		}
		form = append(form, normalized)
	}
	return form
}

// Hash digests an already-canonical form. Pure and total.
func Hash(form []string) string {
	sum := sha256.Sum256([]byte(strings.Join(form, separator)))
	return hex.EncodeToString(sum[:])
}

// Fingerprint is the common path: normalize, order, and hash in one step.
func Fingerprint(kind document.Kind, fields map[string]string) string {
	return Hash(Form(kind, fields))
}

// Stamp recomputes a record's fingerprint from its canonical field list.
// Fields outside the canonical list never contribute to the fingerprint.
func Stamp(r *document.Record) {
	r.Fingerprint = Fingerprint(r.Kind, r.Fields)
}
