package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"docseal/internal/registry/models"
	"docseal/internal/sentinel"
)

// Memory is an in-process ledger for tests and development. It mimics the
// external registry's sequencing: every write lands in its own "block".
type Memory struct {
	mu      sync.RWMutex
	entries map[models.Commitment]*Entry
	block   uint64
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{entries: make(map[models.Commitment]*Entry)}
}

func (m *Memory) Append(_ context.Context, commitment models.Commitment, hash models.Hash) (Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[commitment]; exists {
		return Receipt{}, fmt.Errorf("append %s: %w", commitment, sentinel.ErrDuplicate)
	}

	m.block++
	m.entries[commitment] = &Entry{
		Commitment:  commitment,
		CurrentHash: hash,
		UpdatedAt:   time.Now(),
	}
	return m.receipt(commitment, hash), nil
}

func (m *Memory) Replace(_ context.Context, commitment models.Commitment, newHash models.Hash) (Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.entries[commitment]
	if !exists {
		return Receipt{}, fmt.Errorf("replace %s: %w", commitment, sentinel.ErrNotFound)
	}

	m.block++
	entry.History = append(entry.History, entry.CurrentHash)
	entry.CurrentHash = newHash
	entry.UpdatedAt = time.Now()
	return m.receipt(commitment, newHash), nil
}

func (m *Memory) Current(_ context.Context, commitment models.Commitment) (models.Hash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.entries[commitment]
	if !exists {
		return "", fmt.Errorf("current %s: %w", commitment, sentinel.ErrNotFound)
	}
	return entry.CurrentHash, nil
}

// Entry returns a copy of the full entry, history included. Test helper.
func (m *Memory) Entry(commitment models.Commitment) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.entries[commitment]
	if !exists {
		return Entry{}, false
	}
	copied := *entry
	copied.History = append([]models.Hash(nil), entry.History...)
	return copied, true
}

// receipt fabricates a deterministic pseudo transaction reference.
// Callers must hold the lock (for m.block).
func (m *Memory) receipt(commitment models.Commitment, hash models.Hash) Receipt {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d", commitment, hash, m.block))
	return Receipt{
		TxHash:      "0x" + hex.EncodeToString(sum[:]),
		BlockNumber: m.block,
	}
}
