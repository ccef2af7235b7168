package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aheadley/steam-omakase/internal/config"
)

// negativeMarker is the stored value for a NegativeHit. Real payloads are
// JSON and can never begin with a NUL byte, so the marker is out-of-band.
const negativeMarker = "\x00omakase:negative\x00"

// RedisStore implements Store backed by a shared Redis instance
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger

	hits         atomic.Uint64
	misses       atomic.Uint64
	negativeHits atomic.Uint64
}

// NewRedisStore connects to Redis and returns a Store backed by it
func NewRedisStore(cfg *config.RedisConfig, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping verifies the Redis connection is alive
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) classify(value string) Result {
	if value == negativeMarker {
		s.negativeHits.Add(1)
		return Result{State: NegativeHit}
	}
	s.hits.Add(1)
	return Result{State: Hit, Value: []byte(value)}
}

// Get reads a single key
func (s *RedisStore) Get(ctx context.Context, key string) (Result, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		s.misses.Add(1)
		return Result{State: Miss}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("getting key %s: %w", key, err)
	}
	return s.classify(value), nil
}

// Set stores a value with a TTL
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("setting key %s: %w", key, err)
	}
	return nil
}

// GetMany reads all keys with a single MGET
func (s *RedisStore) GetMany(ctx context.Context, keys []string) ([]Result, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("getting %d keys: %w", len(keys), err)
	}

	results := make([]Result, len(keys))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			s.misses.Add(1)
			results[i] = Result{State: Miss}
			continue
		}
		results[i] = s.classify(str)
	}
	return results, nil
}

// SetMany stores all items with a shared TTL using pipelining
func (s *RedisStore) SetMany(ctx context.Context, items []Item, ttl time.Duration) error {
	if len(items) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, item := range items {
		pipe.Set(ctx, item.Key, item.Value, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("setting %d keys: %w", len(items), err)
	}
	return nil
}

// SetNegative records a confirmed-absent entry for the key
func (s *RedisStore) SetNegative(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, negativeMarker, ttl).Err(); err != nil {
		return fmt.Errorf("setting negative key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("deleting key %s: %w", key, err)
	}
	return nil
}

// FlushAll drops every entry in the current database
func (s *RedisStore) FlushAll(ctx context.Context) error {
	if err := s.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("flushing cache: %w", err)
	}
	return nil
}

// Stats returns process-local effectiveness counters plus the backend key count
func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	keys, err := s.client.DBSize(ctx).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("getting key count: %w", err)
	}
	return Stats{
		Hits:         s.hits.Load(),
		Misses:       s.misses.Load(),
		NegativeHits: s.negativeHits.Load(),
		Keys:         keys,
	}, nil
}
