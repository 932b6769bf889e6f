// Package tilecache is an LRU cache for GPU-resident tile textures, bounded
// by both entry count and estimated memory.
package tilecache

import (
	"container/list"
	"sync"
	"time"

	"mapview/internal/metrics"
	"mapview/internal/tile"
)

// Resource is an opaque GPU-resident handle owned by a cache entry. The
// cache releases it when the entry is evicted, removed or cleared.
type Resource interface {
	Release()
}

// Entry is a cached tile. Readers obtain it as a shared handle: the pointer
// stays valid for the duration of a frame even if the cache drops the entry,
// but Resource must not be used past that frame.
type Entry struct {
	Resource   Resource
	MemorySize int
	CreatedAt  time.Time
}

type item struct {
	key   tile.Key
	entry *Entry
}

// Cache maps tile keys to entries with strict-recency LRU eviction. The
// front of the internal list is most recently used.
type Cache struct {
	mu            sync.Mutex
	items         map[tile.Key]*list.Element
	lruList       *list.List
	maxTiles      int
	maxMemory     int
	currentMemory int
}

// Stats is a read-only snapshot for diagnostics.
type Stats struct {
	TileCount  int
	MaxTiles   int
	MemoryUsed int
	MaxMemory  int
}

// MemoryUsagePercent returns memory use as a percentage of the budget.
func (s Stats) MemoryUsagePercent() float64 {
	if s.MaxMemory == 0 {
		return 0
	}
	return float64(s.MemoryUsed) / float64(s.MaxMemory) * 100.0
}

// TileUsagePercent returns entry count as a percentage of the budget.
func (s Stats) TileUsagePercent() float64 {
	if s.MaxTiles == 0 {
		return 0
	}
	return float64(s.TileCount) / float64(s.MaxTiles) * 100.0
}

// New creates a cache bounded to maxTiles entries and maxMemory bytes.
func New(maxTiles, maxMemory int) *Cache {
	return &Cache{
		items:     make(map[tile.Key]*list.Element, maxTiles),
		lruList:   list.New(),
		maxTiles:  maxTiles,
		maxMemory: maxMemory,
	}
}

// Contains reports residency without touching recency order.
func (c *Cache) Contains(key tile.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[key]
	return ok
}

// Peek returns the entry without touching recency order, for readers that
// must not perturb eviction (a renderer scanning once per frame).
func (c *Cache) Peek(key tile.Key) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	return elem.Value.(*item).entry, true
}

// Get returns the entry and marks it most recently used.
func (c *Cache) Get(key tile.Key) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		metrics.CacheMisses.Inc()
		return nil, false
	}

	c.lruList.MoveToFront(elem)
	metrics.CacheHits.Inc()
	return elem.Value.(*item).entry, true
}

// Insert adds an entry, evicting least-recently-used entries while either
// budget is exceeded. Eviction stops when the cache is empty, so a single
// entry larger than the memory budget is still accepted. Replacing an
// existing key fully removes the old entry first; the new entry starts as
// most recently used.
func (c *Cache) Insert(key tile.Key, entry *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.lruList.Len() > 0 &&
		(c.lruList.Len() >= c.maxTiles || c.currentMemory+entry.MemorySize > c.maxMemory) {
		c.evictOldest()
	}

	if elem, ok := c.items[key]; ok {
		// The replaced entry still owns its resource; nobody else takes it.
		old := elem.Value.(*item).entry
		if old.Resource != nil {
			old.Resource.Release()
		}
		c.removeElement(elem)
	}

	c.currentMemory += entry.MemorySize
	c.items[key] = c.lruList.PushFront(&item{key: key, entry: entry})
	metrics.CacheMemoryBytes.Set(float64(c.currentMemory))
}

// Remove drops a key, returning its entry without releasing the resource;
// ownership transfers to the caller.
func (c *Cache) Remove(key tile.Key) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*item).entry
	c.removeElement(elem)
	metrics.CacheMemoryBytes.Set(float64(c.currentMemory))
	return entry, true
}

// Clear drops every entry and releases their resources.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, elem := range c.items {
		it := elem.Value.(*item)
		if it.entry.Resource != nil {
			it.entry.Resource.Release()
		}
	}

	c.items = make(map[tile.Key]*list.Element, c.maxTiles)
	c.lruList = list.New()
	c.currentMemory = 0
	metrics.CacheMemoryBytes.Set(0)
}

// Len returns the number of resident entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lruList.Len()
}

// Keys returns the resident keys in no particular order.
func (c *Cache) Keys() []tile.Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]tile.Key, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	return keys
}

// Stats returns a snapshot of cache occupancy.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		TileCount:  c.lruList.Len(),
		MaxTiles:   c.maxTiles,
		MemoryUsed: c.currentMemory,
		MaxMemory:  c.maxMemory,
	}
}

// evictOldest releases and drops the least recently used entry.
// Caller holds the lock.
func (c *Cache) evictOldest() {
	oldest := c.lruList.Back()
	if oldest == nil {
		return
	}

	it := oldest.Value.(*item)
	if it.entry.Resource != nil {
		it.entry.Resource.Release()
	}
	c.removeElement(oldest)
	metrics.CacheEvictions.Inc()
}

// removeElement unlinks an element and fixes the memory total.
// Caller holds the lock.
func (c *Cache) removeElement(elem *list.Element) {
	it := elem.Value.(*item)
	c.currentMemory -= it.entry.MemorySize
	delete(c.items, it.key)
	c.lruList.Remove(elem)
}
