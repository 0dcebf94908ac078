// Package holder stores a holder's document records keyed by kind. One
// record per kind: re-issuing a document replaces the previous record, which
// mirrors the registry's single-current-hash rule.
package holder

import (
	"context"
	"sync"

	"docseal/internal/document"
	"docseal/internal/sentinel"
)

// Store persists a holder's records.
type Store interface {
	// Get returns the record for a kind, or sentinel.ErrNotFound.
	Get(ctx context.Context, kind document.Kind) (*document.Record, error)

	// Set stores or replaces the record for its kind.
	Set(ctx context.Context, record *document.Record) error

	// Remove deletes the record for a kind. Removing an absent record is
	// not an error.
	Remove(ctx context.Context, kind document.Kind) error
}

// Memory is an in-process record store.
type Memory struct {
	mu      sync.RWMutex
	records map[document.Kind]*document.Record
}

// NewMemory creates an in-memory record store.
func NewMemory() *Memory {
	return &Memory{records: make(map[document.Kind]*document.Record)}
}

func (m *Memory) Get(_ context.Context, kind document.Kind) (*document.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[kind]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRecord(record), nil
}

func (m *Memory) Set(_ context.Context, record *document.Record) error {
	if record == nil || !record.Kind.Valid() {
		return sentinel.ErrInvalidInput
	}
	clone := cloneRecord(record)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.Kind] = clone
	return nil
}

// cloneRecord detaches a record from the caller, fields map included, so
// neither side can mutate the other's copy.
func cloneRecord(record *document.Record) *document.Record {
	clone := *record
	clone.Fields = make(map[string]string, len(record.Fields))
	for k, v := range record.Fields {
		clone.Fields[k] = v
	}
	return &clone
}

func (m *Memory) Remove(_ context.Context, kind document.Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, kind)
	return nil
}

var _ Store = (*Memory)(nil)
