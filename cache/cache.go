// Package cache implements the packet cache: an ordered, bounded,
// keyed-by-id byte store with age-based eviction. It is shared by the
// capture pipeline's consumer (the sole writer) and the command surface
// (readers, for detail lookups and export). The lock is held only around
// each operation, never across I/O or dissection — see DESIGN.md.
package cache

import (
	"sync"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/pallab-js/r-wire/config"
	"github.com/pallab-js/r-wire/logging"
	"github.com/pallab-js/r-wire/metrics"
	"github.com/pallab-js/r-wire/types"
)

var cacheLog = logging.New("cache")

// Cache is an ordered mapping from id to CachedPacket, iterable in
// ascending key order in O(n). Ids are assumed monotonically increasing
// across Insert calls within a session (spec.md §3), which lets Cache keep
// an append-only slice of ids alongside the lookup map instead of a
// balanced tree: no third-party ordered-map library is exercised here
// because the ordering is already free given the insertion discipline the
// producer guarantees — see DESIGN.md.
type Cache struct {
	mu       sync.Mutex
	items    map[uint64]types.CachedPacket
	order    []uint64
	maxItems int
}

// New builds an empty Cache bounded at cfg.MaxCacheEntries.
func New(cfg *config.Config) *Cache {
	return &Cache{
		items:    make(map[uint64]types.CachedPacket),
		maxItems: cfg.MaxCacheEntries,
	}
}

// Insert stores packet under id, then trims the k earliest-inserted ids if
// the cache now exceeds its bound (k = len - maxItems). Under the
// increasing-id insertion discipline described on Cache, those are the k
// smallest ids.
func (c *Cache) Insert(id uint64, packet types.CachedPacket) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[id]; !exists {
		c.order = append(c.order, id)
	}

	c.items[id] = packet

	if over := len(c.items) - c.maxItems; over > 0 {
		evictedIDs := c.order[:over]

		var evictedBytes uint64
		for _, evictedID := range evictedIDs {
			evictedBytes += uint64(len(c.items[evictedID].Bytes))
			delete(c.items, evictedID)
		}

		c.order = c.order[over:]

		cacheLog.Debug("trimmed cache",
			zap.Int("evicted_count", over),
			zap.String("evicted_bytes", humanize.Bytes(evictedBytes)),
		)
	}

	metrics.CacheSize.Set(float64(len(c.items)))
}

// Get returns the cached packet for id, if present.
func (c *Cache) Get(id uint64) (types.CachedPacket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.items[id]

	return p, ok
}

// Clear empties the cache, e.g. on capture start.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[uint64]types.CachedPacket)
	c.order = nil

	metrics.CacheSize.Set(0)
}

// Len returns the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// IterSorted returns a snapshot of (id, packet) pairs in insertion order,
// which is ascending id order when ids were inserted in increasing order
// (as the capture pipeline does); it does not re-sort. The snapshot is
// copied out under the lock so callers may iterate without holding it.
func (c *Cache) IterSorted() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, Entry{ID: id, Packet: c.items[id]})
	}

	return out
}

// Entry pairs an id with its cached packet, returned by IterSorted.
type Entry struct {
	ID     uint64
	Packet types.CachedPacket
}
