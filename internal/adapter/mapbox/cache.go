package mapbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/quake-map-service/internal/observability"
)

// CachedTileSource wraps a TileSource with an in-memory LRU cache. Base map
// tiles are static, so entries never expire; they are only evicted.
type CachedTileSource struct {
	inner   TileSource
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedTileSource creates a cache decorator holding up to maxEntries tiles.
func NewCachedTileSource(inner TileSource, maxEntries int, metrics *observability.Metrics) *CachedTileSource {
	return &CachedTileSource{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedTileSource) FetchTile(ctx context.Context, style string, z, x, y int) (Tile, error) {
	key := fmt.Sprintf("%s/%d/%d/%d", style, z, x, y)
	if tile, ok := c.cache.get(key); ok {
		c.metrics.TileCache.WithLabelValues("hit").Inc()
		return tile, nil
	}
	c.metrics.TileCache.WithLabelValues("miss").Inc()

	tile, err := c.inner.FetchTile(ctx, style, z, x, y)
	if err != nil {
		return tile, err
	}
	if len(tile.Data) > 0 {
		c.cache.put(key, tile)
	}
	return tile, nil
}

// Len reports the number of cached tiles.
func (c *CachedTileSource) Len() int {
	return c.cache.len()
}

// lruCache is a thread-safe LRU cache of tiles.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value Tile
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (Tile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Tile{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value Tile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
