// Package store keeps the private halves of minted verification requests
// until they expire. Keys live server-side only; holders only ever see the
// public half.
package store

import (
	"context"
	"sync"
	"time"

	"docseal/internal/sentinel"
)

// KeyStore persists verification-request private keys.
type KeyStore interface {
	// Put stores the private key for a request ID.
	Put(ctx context.Context, id, privateKeyPEM string) error

	// Get returns the private key for a request ID, or sentinel.ErrNotFound
	// when the request is unknown or expired.
	Get(ctx context.Context, id string) (string, error)

	// Remove deletes a request's key.
	Remove(ctx context.Context, id string)
}

// Memory is an in-process key store with per-entry expiry.
type Memory struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	privateKeyPEM string
	expiresAt     time.Time
}

// NewMemory creates an in-memory key store. Entries expire after ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (m *Memory) Put(_ context.Context, id, privateKeyPEM string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = memoryEntry{privateKeyPEM: privateKeyPEM, expiresAt: time.Now().Add(m.ttl)}
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (string, error) {
	m.mu.RLock()
	entry, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return "", sentinel.ErrNotFound
	}
	return entry.privateKeyPEM, nil
}

func (m *Memory) Remove(_ context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
}

var _ KeyStore = (*Memory)(nil)
