// Package cache provides a concurrent time-boxed byte cache consulted before
// any network fetch. Entries expire individually; an elapsed entry reads as
// a miss, never as stale-but-valid data.
package cache

import (
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// Cache is a TTL + LRU byte cache safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	order      []string // LRU order: front=oldest, back=newest
	maxEntries int
	hits       atomic.Int64
	misses     atomic.Int64
	now        func() time.Time
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Stats is a point-in-time view of cache performance.
type Stats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// New creates a cache bounded to maxEntries.
func New(maxEntries int) *Cache {
	return &Cache{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Key builds the cache key for a logical request: source name, request kind,
// and request parameters.
func Key(sourceName, kind string, params url.Values) string {
	return sourceName + "/" + kind + "?" + params.Encode()
}

// Get returns the cached value, or a miss when absent or expired. Expired
// entries are evicted on read.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.misses.Add(1)
		return nil, false
	}

	c.removeFromOrder(key)
	c.order = append(c.order, key)
	c.hits.Add(1)
	return e.data, true
}

// Set stores a value with its own TTL, evicting the least recently used
// entry when at capacity. A non-positive TTL stores nothing.
func (c *Cache) Set(key string, data []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = &entry{data: data, expiresAt: c.now().Add(ttl)}
		c.removeFromOrder(key)
		c.order = append(c.order, key)
		return
	}

	for c.maxEntries > 0 && len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = &entry{data: data, expiresAt: c.now().Add(ttl)}
	c.order = append(c.order, key)
}

// Stats returns cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	var rate float64
	if hits+misses > 0 {
		rate = float64(hits) / float64(hits+misses)
	}
	return Stats{
		Entries:    n,
		MaxEntries: c.maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    rate,
	}
}

func (c *Cache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
