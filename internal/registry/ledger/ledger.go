// Package ledger defines the port to the external tamper-evident registry
// and its implementations. The registry service is the only component that
// talks to a ledger; every other package works on local computation.
package ledger

import (
	"context"
	"time"

	"docseal/internal/registry/models"
)

// Receipt identifies the ledger transaction that carried a write.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
}

// Entry is the ledger's view of one identity commitment. Exactly one hash
// is current at any time; superseded hashes are retained for audit but
// never verify.
type Entry struct {
	Commitment  models.Commitment
	CurrentHash models.Hash
	History     []models.Hash
	UpdatedAt   time.Time
}

// Ledger is the write/read contract against the external registry.
//
// Implementations return sentinel errors so the service layer can classify
// failures exactly once:
//   - sentinel.ErrDuplicate: Append on an existing commitment
//   - sentinel.ErrNotFound: Replace or Current on an absent commitment
//   - sentinel.ErrUnavailable: node unreachable or timed out (retryable)
//   - sentinel.ErrReverted: the node rejected or rolled back the transaction
type Ledger interface {
	// Append records the first hash for a commitment. First-issuance-only:
	// it fails if any entry already exists.
	Append(ctx context.Context, commitment models.Commitment, hash models.Hash) (Receipt, error)

	// Replace revokes the current hash and installs newHash. After Replace
	// succeeds the previous hash no longer verifies.
	Replace(ctx context.Context, commitment models.Commitment, newHash models.Hash) (Receipt, error)

	// Current returns the commitment's active hash.
	Current(ctx context.Context, commitment models.Commitment) (models.Hash, error)
}
