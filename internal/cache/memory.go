package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore implements Store with a mutex-guarded map. It is suitable for
// tests and single-instance deployments where a shared Redis is overkill.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	hits         atomic.Uint64
	misses       atomic.Uint64
	negativeHits atomic.Uint64

	// now is replaceable in tests to step the TTL clock.
	now func() time.Time
}

type memoryEntry struct {
	value     []byte
	negative  bool
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) lookup(key string) Result {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || s.now().After(entry.expiresAt) {
		s.misses.Add(1)
		return Result{State: Miss}
	}
	if entry.negative {
		s.negativeHits.Add(1)
		return Result{State: NegativeHit}
	}
	s.hits.Add(1)
	return Result{State: Hit, Value: entry.value}
}

// Get reads a single key
func (s *MemoryStore) Get(ctx context.Context, key string) (Result, error) {
	return s.lookup(key), nil
}

// Set stores a value with a TTL
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

// GetMany reads all keys; the result is aligned 1:1 with keys
func (s *MemoryStore) GetMany(ctx context.Context, keys []string) ([]Result, error) {
	results := make([]Result, len(keys))
	for i, key := range keys {
		results[i] = s.lookup(key)
	}
	return results, nil
}

// SetMany stores all items with a shared TTL
func (s *MemoryStore) SetMany(ctx context.Context, items []Item, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt := s.now().Add(ttl)
	for _, item := range items {
		s.entries[item.Key] = memoryEntry{value: item.Value, expiresAt: expiresAt}
	}
	return nil
}

// SetNegative records a confirmed-absent entry for the key
func (s *MemoryStore) SetNegative(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{negative: true, expiresAt: s.now().Add(ttl)}
	return nil
}

// Delete removes a key
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// FlushAll drops every entry
func (s *MemoryStore) FlushAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]memoryEntry)
	return nil
}

// Stats returns effectiveness counters plus the live key count
func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	keys := int64(len(s.entries))
	s.mu.RUnlock()
	return Stats{
		Hits:         s.hits.Load(),
		Misses:       s.misses.Load(),
		NegativeHits: s.negativeHits.Load(),
		Keys:         keys,
	}, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
