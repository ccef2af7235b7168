// Package cache provides the key/value store the resolver keeps Steam data
// in. The backing store is a shared Redis instance in production and an
// in-memory map in tests and single-instance deployments.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Key namespaces. Keys are namespaced and zero-padded so they can never
// collide across entity kinds.
const (
	NamespaceUser        = "user"
	NamespaceUserFriends = "user-friends"
	NamespaceUserGames   = "user-games"
	NamespaceApp         = "app"
)

// Key builds the cache key for an id within a namespace
func Key(namespace string, id uint64) string {
	return fmt.Sprintf("%s:%016d", namespace, id)
}

// State classifies the outcome of a cache read
type State int

const (
	// Miss means the key is not present; the caller should go upstream.
	Miss State = iota
	// Hit means a real value was found.
	Hit
	// NegativeHit means a previous upstream lookup was recorded as
	// failed or absent; the caller must not retry until the entry expires.
	NegativeHit
)

// Result is the outcome of a single cache read. Value is only meaningful
// when State is Hit.
type Result struct {
	State State
	Value []byte
}

// Item is a key/value pair for batch writes
type Item struct {
	Key   string
	Value []byte
}

// Stats reports cache effectiveness counters since process start plus the
// backend's current key count.
type Stats struct {
	Hits         uint64 `json:"hits"`
	Misses       uint64 `json:"misses"`
	NegativeHits uint64 `json:"negative_hits"`
	Keys         int64  `json:"keys"`
}

// Store is the contract the resolver consumes. Implementations must be safe
// for concurrent use. Reads and writes are atomic per key but not
// transactional across keys; concurrent writers race last-write-wins, which
// is acceptable because every cached value is re-derivable from upstream.
type Store interface {
	// Get reads a single key.
	Get(ctx context.Context, key string) (Result, error)

	// Set stores a value with a TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// GetMany reads all keys in one round trip. The returned slice is
	// aligned 1:1 with keys.
	GetMany(ctx context.Context, keys []string) ([]Result, error)

	// SetMany stores all items with a shared TTL.
	SetMany(ctx context.Context, items []Item, ttl time.Duration) error

	// SetNegative records that an upstream lookup for this key failed or
	// came back empty, so it is not retried until the TTL expires.
	SetNegative(ctx context.Context, key string, ttl time.Duration) error

	// Delete removes a key. Removing an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// FlushAll drops every entry in the store.
	FlushAll(ctx context.Context) error

	// Stats returns current cache statistics.
	Stats(ctx context.Context) (Stats, error)

	// Close releases any resources held by the store.
	Close() error
}
