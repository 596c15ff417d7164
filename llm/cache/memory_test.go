package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debugg-ai/browse-to-test/testutil"
	"github.com/debugg-ai/browse-to-test/types"
)

func TestMemoryStore_SetGet(t *testing.T) {
	ctx := testutil.TestContext(t)
	store := NewMemoryStore(time.Hour)

	resp := &types.AIResponse{Content: "hello", Provider: "openai"}
	require.NoError(t, store.Set(ctx, "k1", resp))

	entry, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "hello", entry.Response.Content)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestMemoryStore_MissIsSentinel(t *testing.T) {
	ctx := testutil.TestContext(t)
	store := NewMemoryStore(time.Hour)

	_, err := store.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryStore_ExpiryOnRead(t *testing.T) {
	ctx := testutil.TestContext(t)
	store := NewMemoryStore(time.Minute)

	current := time.Now()
	store.now = func() time.Time { return current }

	require.NoError(t, store.Set(ctx, "k1", &types.AIResponse{Content: "v"}))

	// Exactly at the TTL boundary the entry still serves.
	current = current.Add(time.Minute)
	_, err := store.Get(ctx, "k1")
	assert.NoError(t, err)

	// One tick past and it reads as a miss.
	current = current.Add(time.Nanosecond)
	_, err = store.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryStore_LazySweepOnWrite(t *testing.T) {
	ctx := testutil.TestContext(t)
	store := NewMemoryStore(time.Minute)

	current := time.Now()
	store.now = func() time.Time { return current }

	require.NoError(t, store.Set(ctx, "old1", &types.AIResponse{Content: "a"}))
	require.NoError(t, store.Set(ctx, "old2", &types.AIResponse{Content: "b"}))

	size, err := store.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	// Expired entries linger until the next write sweeps them.
	current = current.Add(2 * time.Minute)
	size, err = store.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	require.NoError(t, store.Set(ctx, "fresh", &types.AIResponse{Content: "c"}))
	size, err = store.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestMemoryStore_OverwriteRestartsTTL(t *testing.T) {
	ctx := testutil.TestContext(t)
	store := NewMemoryStore(time.Minute)

	current := time.Now()
	store.now = func() time.Time { return current }

	require.NoError(t, store.Set(ctx, "k", &types.AIResponse{Content: "v1"}))

	current = current.Add(50 * time.Second)
	require.NoError(t, store.Set(ctx, "k", &types.AIResponse{Content: "v2"}))

	current = current.Add(50 * time.Second)
	entry, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", entry.Response.Content)
}
