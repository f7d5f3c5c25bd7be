package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	ctx := context.Background()

	err := mc.Set(ctx, "types", []byte(`["Form","Field"]`), 1*time.Minute)
	require.NoError(t, err)

	value, err := mc.Get(ctx, "types")
	require.NoError(t, err)
	assert.Equal(t, []byte(`["Form","Field"]`), value)
}

func TestMemoryCache_GetMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	_, err := mc.Get(context.Background(), "nonexistent")
	assert.Error(t, err)
	assert.True(t, IsCacheMiss(err))
}

func TestMemoryCache_Expiration(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	ctx := context.Background()

	err := mc.Set(ctx, "short-lived", []byte("v"), 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = mc.Get(ctx, "short-lived")
	assert.True(t, IsCacheMiss(err))

	exists, err := mc.Exists(ctx, "short-lived")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryCache_NoExpiration(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	ctx := context.Background()

	// Negative TTL stores the item without expiration.
	err := mc.Set(ctx, "pinned", []byte("v"), -1)
	require.NoError(t, err)

	value, err := mc.Get(ctx, "pinned")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
}

func TestMemoryCache_Delete(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "key", []byte("v"), time.Minute))
	require.NoError(t, mc.Delete(ctx, "key"))

	_, err := mc.Get(ctx, "key")
	assert.True(t, IsCacheMiss(err))
}

func TestMemoryCache_Clear(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, mc.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, mc.Clear(ctx))

	_, err := mc.Get(ctx, "a")
	assert.True(t, IsCacheMiss(err))
	_, err = mc.Get(ctx, "b")
	assert.True(t, IsCacheMiss(err))
}

func TestMemoryCache_Exists(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	ctx := context.Background()

	exists, err := mc.Exists(ctx, "key")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, mc.Set(ctx, "key", []byte("v"), time.Minute))

	exists, err = mc.Exists(ctx, "key")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryCache_CancelledContext(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mc.Get(ctx, "key")
	assert.ErrorIs(t, err, context.Canceled)

	err = mc.Set(ctx, "key", []byte("v"), time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
