// Package cache holds verify-read results for a short TTL so repeated scans
// of the same disclosure do not hammer the ledger node. Writes through the
// registry service invalidate the commitment's entry, preserving the
// "exactly one current hash" view.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"docseal/internal/registry/models"
)

// VerifyCache stores verify verdicts keyed by commitment and hash.
type VerifyCache interface {
	Get(ctx context.Context, commitment models.Commitment, hash models.Hash) (valid bool, ok bool)
	Set(ctx context.Context, commitment models.Commitment, hash models.Hash, valid bool)
	Invalidate(ctx context.Context, commitment models.Commitment)
}

func cacheKey(commitment models.Commitment, hash models.Hash) string {
	return "verify:" + commitment.String() + ":" + hash.String()
}

// Memory is an in-process TTL cache.
type Memory struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]memoryEntry
	// byCommitment tracks keys for invalidation without a full scan.
	byCommitment map[models.Commitment][]string
}

type memoryEntry struct {
	valid     bool
	expiresAt time.Time
}

// NewMemory creates an in-process verify cache.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:          ttl,
		entries:      make(map[string]memoryEntry),
		byCommitment: make(map[models.Commitment][]string),
	}
}

func (m *Memory) Get(_ context.Context, commitment models.Commitment, hash models.Hash) (bool, bool) {
	m.mu.RLock()
	entry, ok := m.entries[cacheKey(commitment, hash)]
	m.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return false, false
	}
	return entry.valid, true
}

func (m *Memory) Set(_ context.Context, commitment models.Commitment, hash models.Hash, valid bool) {
	key := cacheKey(commitment, hash)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{valid: valid, expiresAt: time.Now().Add(m.ttl)}
	m.byCommitment[commitment] = append(m.byCommitment[commitment], key)
}

func (m *Memory) Invalidate(_ context.Context, commitment models.Commitment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range m.byCommitment[commitment] {
		delete(m.entries, key)
	}
	delete(m.byCommitment, commitment)
}

// Redis is a shared verify cache for multi-instance deployments.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed verify cache.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, commitment models.Commitment, hash models.Hash) (bool, bool) {
	// Treat any cache failure as a miss; verification falls through to
	// the ledger.
	valid, ok, _ := r.get(ctx, commitment, hash)
	return valid, ok
}

func (r *Redis) Set(ctx context.Context, commitment models.Commitment, hash models.Hash, valid bool) {
	_ = r.set(ctx, commitment, hash, valid)
}

func (r *Redis) Invalidate(ctx context.Context, commitment models.Commitment) {
	_ = r.invalidate(ctx, commitment)
}

func (r *Redis) get(ctx context.Context, commitment models.Commitment, hash models.Hash) (bool, bool, error) {
	value, err := r.client.Get(ctx, cacheKey(commitment, hash)).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return value == "1", true, nil
}

func (r *Redis) set(ctx context.Context, commitment models.Commitment, hash models.Hash, valid bool) error {
	value := "0"
	if valid {
		value = "1"
	}
	return r.client.Set(ctx, cacheKey(commitment, hash), value, r.ttl).Err()
}

func (r *Redis) invalidate(ctx context.Context, commitment models.Commitment) error {
	pattern := "verify:" + commitment.String() + ":*"
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
