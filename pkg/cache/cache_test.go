package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	T int64   `json:"t"`
	P float64 `json:"p"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()

	require.NoError(t, mc.Set(ctx, "k", []point{{1, 2.5}}, time.Minute))

	var got []point
	require.NoError(t, mc.Get(ctx, "k", &got))
	assert.Equal(t, []point{{1, 2.5}}, got)

	assert.ErrorIs(t, mc.Get(ctx, "missing", &got), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc := NewMemoryCache(WithMemoryClock(func() time.Time { return now }))

	require.NoError(t, mc.Set(ctx, "k", "v", time.Minute))
	now = now.Add(time.Minute)

	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
	assert.Zero(t, mc.Len())
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxEntries(2))

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	var n int
	require.NoError(t, mc.Get(ctx, "a", &n)) // a is now most recent
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	assert.ErrorIs(t, mc.Get(ctx, "b", &n), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &n))
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, mc.Len())
}

func TestLayeredCacheFillsL1FromL2(t *testing.T) {
	ctx := context.Background()
	l1, l2 := NewMemoryCache(), NewMemoryCache()
	lc := NewLayeredCache(l1, l2, time.Minute)

	require.NoError(t, l2.Set(ctx, "k", point{7, 1.5}, time.Hour))

	var got point
	require.NoError(t, lc.Get(ctx, "k", &got))
	assert.Equal(t, point{7, 1.5}, got)

	var fromL1 point
	require.NoError(t, l1.Get(ctx, "k", &fromL1))
	assert.Equal(t, got, fromL1)

	require.NoError(t, lc.Delete(ctx, "k"))
	assert.ErrorIs(t, lc.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "bars:MGC:2024-03-04", Key("bars", "MGC", "2024-03-04"))
}
