// Package cache provides the idempotency key store used for order creation
// replays and webhook deduplication.
package cache

import (
	"context"
	"sync"
	"time"
)

// IdempotencyStore remembers the first value written under a key for a TTL.
// Later writes under the same key return the original value instead.
type IdempotencyStore interface {
	// Remember stores value under key unless the key already holds one.
	// It returns the stored value and whether this call created it.
	Remember(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error)

	// Forget drops the key so a later Remember starts fresh. Used to release
	// a reservation when the guarded operation fails.
	Forget(ctx context.Context, key string) error
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is the in-process IdempotencyStore used in tests and when no
// Redis address is configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Remember(_ context.Context, key, value string, ttl time.Duration) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if entry, ok := s.entries[key]; ok && now.Before(entry.expiresAt) {
		return entry.value, false, nil
	}
	s.entries[key] = memoryEntry{value: value, expiresAt: now.Add(ttl)}
	return value, true, nil
}

func (s *MemoryStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
