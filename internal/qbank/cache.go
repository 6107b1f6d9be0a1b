package qbank

import (
	"sync"
	"time"

	"github.com/rsharan/examgate/internal/model"
)

// DefaultTTL is the validity window for cached pools.
const DefaultTTL = 30 * time.Minute

// CacheOutcome is the result of one cache lookup.
type CacheOutcome string

const (
	CacheHit     CacheOutcome = "hit"
	CacheMiss    CacheOutcome = "miss"
	CacheExpired CacheOutcome = "expired"
)

type cacheEntry struct {
	pool     *model.QuestionPool
	loadedAt time.Time
}

// Cache is a mutex-guarded, TTL-based cache of validated question pools
// keyed by (stream, subject). Expiry is lazy: an expired entry is reported
// as such on read but only removed by SweepExpired. Entry count is bounded
// naturally by the number of stream/subject pairs.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	hits    int64
	misses  int64
	expired int64

	now func() time.Time
}

// NewCache creates a cache with the given TTL; ttl <= 0 uses DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func cacheKey(stream, subject string) string {
	return stream + "|" + subject
}

// Get returns the cached pool for (stream, subject) and the lookup outcome.
// The pool is nil unless the outcome is CacheHit.
func (c *Cache) Get(stream, subject string) (*model.QuestionPool, CacheOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[cacheKey(stream, subject)]
	if !ok {
		c.misses++
		return nil, CacheMiss
	}
	if c.now().Sub(e.loadedAt) >= c.ttl {
		c.expired++
		return nil, CacheExpired
	}
	c.hits++
	return e.pool, CacheHit
}

// Put stores a pool, replacing any previous entry for the pair.
func (c *Cache) Put(stream, subject string, pool *model.QuestionPool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(stream, subject)] = cacheEntry{pool: pool, loadedAt: c.now()}
}

// SweepExpired removes all stale entries and returns how many were evicted.
func (c *Cache) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := c.now()
	for key, e := range c.entries {
		if now.Sub(e.loadedAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() model.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CacheStats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
		Expired: c.expired,
	}
}
