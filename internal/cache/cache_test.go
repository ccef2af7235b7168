package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "user:0076561198000001", Key(NamespaceUser, 76561198000001))
	assert.Equal(t, "app:0000000000000440", Key(NamespaceApp, 440))

	// Same id in different namespaces must never collide.
	assert.NotEqual(t, Key(NamespaceUserFriends, 42), Key(NamespaceUserGames, 42))
}

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	result, err := store.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, Miss, result.State)

	require.NoError(t, store.Set(ctx, "user:1", []byte(`{"id":1}`), time.Minute))

	result, err = store.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, Hit, result.State)
	assert.Equal(t, []byte(`{"id":1}`), result.Value)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "app:1", []byte("x"), time.Hour))
	require.NoError(t, store.SetNegative(ctx, "app:2", 3*time.Hour))

	result, err := store.Get(ctx, "app:1")
	require.NoError(t, err)
	assert.Equal(t, Hit, result.State)

	// Step past the positive TTL but not the negative one.
	now = now.Add(2 * time.Hour)

	result, err = store.Get(ctx, "app:1")
	require.NoError(t, err)
	assert.Equal(t, Miss, result.State)

	result, err = store.Get(ctx, "app:2")
	require.NoError(t, err)
	assert.Equal(t, NegativeHit, result.State)

	// And now past the negative TTL too.
	now = now.Add(2 * time.Hour)

	result, err = store.Get(ctx, "app:2")
	require.NoError(t, err)
	assert.Equal(t, Miss, result.State)
}

func TestMemoryStoreNegativeHit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SetNegative(ctx, "app:99", time.Minute))

	result, err := store.Get(ctx, "app:99")
	require.NoError(t, err)
	assert.Equal(t, NegativeHit, result.State)
	assert.Nil(t, result.Value)

	// A real value overwrites the negative entry.
	require.NoError(t, store.Set(ctx, "app:99", []byte("data"), time.Minute))

	result, err = store.Get(ctx, "app:99")
	require.NoError(t, err)
	assert.Equal(t, Hit, result.State)
}

func TestMemoryStoreGetManyAlignment(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "app:1", []byte("a"), time.Minute))
	require.NoError(t, store.SetNegative(ctx, "app:3", time.Minute))
	require.NoError(t, store.Set(ctx, "app:5", []byte("e"), time.Minute))

	results, err := store.GetMany(ctx, []string{"app:1", "app:2", "app:3", "app:4", "app:5"})
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Equal(t, Hit, results[0].State)
	assert.Equal(t, []byte("a"), results[0].Value)
	assert.Equal(t, Miss, results[1].State)
	assert.Equal(t, NegativeHit, results[2].State)
	assert.Equal(t, Miss, results[3].State)
	assert.Equal(t, Hit, results[4].State)
	assert.Equal(t, []byte("e"), results[4].Value)
}

func TestMemoryStoreSetMany(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	items := []Item{
		{Key: "app:1", Value: []byte("a")},
		{Key: "app:2", Value: []byte("b")},
	}
	require.NoError(t, store.SetMany(ctx, items, time.Minute))

	results, err := store.GetMany(ctx, []string{"app:1", "app:2"})
	require.NoError(t, err)
	assert.Equal(t, Hit, results[0].State)
	assert.Equal(t, Hit, results[1].State)
}

func TestMemoryStoreDeleteAndFlush(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "user:1", []byte("a"), time.Minute))
	require.NoError(t, store.Set(ctx, "user:2", []byte("b"), time.Minute))

	require.NoError(t, store.Delete(ctx, "user:1"))
	result, err := store.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, Miss, result.State)

	// Deleting an absent key is not an error.
	require.NoError(t, store.Delete(ctx, "user:404"))

	require.NoError(t, store.FlushAll(ctx))
	result, err = store.Get(ctx, "user:2")
	require.NoError(t, err)
	assert.Equal(t, Miss, result.State)
}

func TestMemoryStoreStats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "app:1", []byte("a"), time.Minute))
	require.NoError(t, store.SetNegative(ctx, "app:2", time.Minute))

	store.Get(ctx, "app:1")   // hit
	store.Get(ctx, "app:2")   // negative hit
	store.Get(ctx, "app:404") // miss

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.NegativeHits)
	assert.Equal(t, int64(2), stats.Keys)
}
