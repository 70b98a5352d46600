package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
)

func TestLRUAdapter_GetSetExpire(t *testing.T) {
	c, err := NewLRUAdapter(10)
	require.NoError(t, err)

	now := time.Date(2025, 10, 28, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "dashboard:summary:fac-1", []byte("x"), 60))

	got, err := c.Get(ctx, "dashboard:summary:fac-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "dashboard:summary:fac-1")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)

	ok, err := c.Exists(ctx, "dashboard:summary:fac-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLRUAdapter_DeletePattern(t *testing.T) {
	c, err := NewLRUAdapter(10)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "revoked:a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "revoked:b", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "facility:fac-1", []byte("1"), 0))

	require.NoError(t, c.DeletePattern(ctx, "revoked:*"))

	_, err = c.Get(ctx, "revoked:a")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
	_, err = c.Get(ctx, "facility:fac-1")
	assert.NoError(t, err)
}

func TestLRUAdapter_EvictsOldest(t *testing.T) {
	c, err := NewLRUAdapter(2)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}
