package mapbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingSource struct {
	calls int
	tile  Tile
	err   error
}

func (m *countingSource) FetchTile(_ context.Context, _ string, _, _, _ int) (Tile, error) {
	m.calls++
	return m.tile, m.err
}

// --- CachedTileSource tests ---

func TestCachedTileSource_CacheHit(t *testing.T) {
	inner := &countingSource{tile: Tile{Data: pngHeader, ContentType: contentTypePNG}}
	m := testMetrics()
	cached := NewCachedTileSource(inner, 10, m)

	t1, err := cached.FetchTile(context.Background(), "dark", 3, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, t1.Data)

	t2, err := cached.FetchTile(context.Background(), "dark", 3, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, t1, t2)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, 1, cached.Len())
	assert.InDelta(t, 1.0, counterValue(t, m.TileCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1.0, counterValue(t, m.TileCache.WithLabelValues("miss")), 0)
}

func TestCachedTileSource_DifferentKeysMiss(t *testing.T) {
	inner := &countingSource{tile: Tile{Data: pngHeader}}
	cached := NewCachedTileSource(inner, 10, testMetrics())

	_, _ = cached.FetchTile(context.Background(), "dark", 3, 1, 2)
	_, _ = cached.FetchTile(context.Background(), "light", 3, 1, 2)
	_, _ = cached.FetchTile(context.Background(), "dark", 3, 2, 1)

	assert.Equal(t, 3, inner.calls)
}

func TestCachedTileSource_ErrorsNotCached(t *testing.T) {
	inner := &countingSource{err: errors.New("upstream down")}
	cached := NewCachedTileSource(inner, 10, testMetrics())

	_, err := cached.FetchTile(context.Background(), "dark", 1, 0, 0)
	require.Error(t, err)
	_, err = cached.FetchTile(context.Background(), "dark", 1, 0, 0)
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, cached.Len())
}

func TestCachedTileSource_EmptyTileNotCached(t *testing.T) {
	inner := &countingSource{}
	cached := NewCachedTileSource(inner, 10, testMetrics())

	_, _ = cached.FetchTile(context.Background(), "dark", 1, 0, 0)
	_, _ = cached.FetchTile(context.Background(), "dark", 1, 0, 0)
	assert.Equal(t, 2, inner.calls)
}

// --- LRU cache unit tests ---

func tileOf(s string) Tile {
	return Tile{Data: []byte(s)}
}

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", tileOf("A"))
	c.put("b", tileOf("B"))

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", string(result.Data))

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", tileOf("A"))
	c.put("b", tileOf("B"))
	c.put("c", tileOf("C")) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	result, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", string(result.Data))

	result, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", string(result.Data))
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", tileOf("A"))
	c.put("b", tileOf("B"))

	c.get("a")

	// "b" is now least recently used.
	c.put("c", tileOf("C"))

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", tileOf("A1"))
	c.put("a", tileOf("A2"))

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", string(result.Data))
	assert.Equal(t, 1, c.len())
}

func TestLRUCache_MinimumCapacity(t *testing.T) {
	c := newLRUCache(0)
	c.put("a", tileOf("A"))
	c.put("b", tileOf("B"))

	assert.Equal(t, 1, c.len())
	_, ok := c.get("b")
	assert.True(t, ok)
}
