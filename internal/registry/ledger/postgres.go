package ledger

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"docseal/internal/registry/models"
	"docseal/internal/sentinel"
)

// Postgres is a development ledger backed by PostgreSQL. It emulates the
// external registry's semantics (first-issuance-only append, single current
// hash, append-only history) without a real chain behind it.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ledger.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Append(ctx context.Context, commitment models.Commitment, hash models.Hash) (Receipt, error) {
	query := `
		INSERT INTO ledger_entries (commitment, current_hash, block_number)
		VALUES ($1, $2, nextval('ledger_block_seq'))
		ON CONFLICT (commitment) DO NOTHING
		RETURNING block_number
	`
	var block uint64
	err := p.db.QueryRowContext(ctx, query, commitment.String(), hash.String()).Scan(&block)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Receipt{}, fmt.Errorf("append %s: %w", commitment, sentinel.ErrDuplicate)
		}
		return Receipt{}, fmt.Errorf("append entry: %w", classifyPgErr(err))
	}
	return pgReceipt(commitment, hash, block), nil
}

func (p *Postgres) Replace(ctx context.Context, commitment models.Commitment, newHash models.Hash) (Receipt, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return Receipt{}, fmt.Errorf("begin replace: %w", classifyPgErr(err))
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var oldHash string
	var oldBlock uint64
	err = tx.QueryRowContext(ctx,
		`SELECT current_hash, block_number FROM ledger_entries WHERE commitment = $1 FOR UPDATE`,
		commitment.String(),
	).Scan(&oldHash, &oldBlock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Receipt{}, fmt.Errorf("replace %s: %w", commitment, sentinel.ErrNotFound)
		}
		return Receipt{}, fmt.Errorf("load entry: %w", classifyPgErr(err))
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_history (commitment, hash, block_number) VALUES ($1, $2, $3)`,
		commitment.String(), oldHash, oldBlock,
	); err != nil {
		return Receipt{}, fmt.Errorf("record history: %w", classifyPgErr(err))
	}

	var block uint64
	err = tx.QueryRowContext(ctx, `
		UPDATE ledger_entries
		SET current_hash = $2, block_number = nextval('ledger_block_seq'), updated_at = now()
		WHERE commitment = $1
		RETURNING block_number
	`, commitment.String(), newHash.String()).Scan(&block)
	if err != nil {
		return Receipt{}, fmt.Errorf("update entry: %w", classifyPgErr(err))
	}

	if err := tx.Commit(); err != nil {
		return Receipt{}, fmt.Errorf("commit replace: %w", classifyPgErr(err))
	}
	return pgReceipt(commitment, newHash, block), nil
}

func (p *Postgres) Current(ctx context.Context, commitment models.Commitment) (models.Hash, error) {
	var current string
	err := p.db.QueryRowContext(ctx,
		`SELECT current_hash FROM ledger_entries WHERE commitment = $1`,
		commitment.String(),
	).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("current %s: %w", commitment, sentinel.ErrNotFound)
		}
		return "", fmt.Errorf("load entry: %w", classifyPgErr(err))
	}
	return models.Hash(current), nil
}

// History returns the superseded hashes for a commitment, oldest first.
func (p *Postgres) History(ctx context.Context, commitment models.Commitment) ([]models.Hash, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT hash FROM ledger_history WHERE commitment = $1 ORDER BY id`,
		commitment.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", classifyPgErr(err))
	}
	defer rows.Close()

	var history []models.Hash
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		history = append(history, models.Hash(h))
	}
	return history, rows.Err()
}

// classifyPgErr maps driver failures onto the retryable sentinel so the
// service treats a lost database like an unreachable ledger node.
func classifyPgErr(err error) error {
	return fmt.Errorf("%v: %w", err, sentinel.ErrUnavailable)
}

func pgReceipt(commitment models.Commitment, hash models.Hash, block uint64) Receipt {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d", commitment, hash, block))
	return Receipt{
		TxHash:      "0x" + hex.EncodeToString(sum[:]),
		BlockNumber: block,
	}
}
