package path

import (
	"sync"
	"time"

	"github.com/theaklair/jsorrery/internal/vec"
)

// cacheKey identifies one sampled path: sampling is deterministic for a
// given body, mode, and (quantized) simulated time.
type cacheKey struct {
	body       string
	osculating bool
	bucket     int64
}

// Cache memoizes sampled orbit paths. Entries are keyed on the simulated
// time quantized to the bucket interval, so a path is recomputed once the
// simulation has advanced far enough for the elements to visibly drift.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey][]vec.V3
	bucket  time.Duration
}

// NewCache creates a cache with the given time quantization interval.
func NewCache(bucket time.Duration) *Cache {
	if bucket <= 0 {
		bucket = time.Hour
	}
	return &Cache{
		entries: make(map[cacheKey][]vec.V3),
		bucket:  bucket,
	}
}

func (c *Cache) key(name string, now time.Time, osculating bool) cacheKey {
	return cacheKey{
		body:       name,
		osculating: osculating,
		bucket:     now.UnixNano() / int64(c.bucket),
	}
}

// Get returns the cached path for the body at the quantized time, or nil.
func (c *Cache) Get(name string, now time.Time, osculating bool) []vec.V3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[c.key(name, now, osculating)]
}

// Put stores a sampled path. Stale buckets for the same body/mode are
// dropped so the cache stays bounded by the body count.
func (c *Cache) Put(name string, now time.Time, osculating bool, verts []vec.V3) {
	k := c.key(name, now, osculating)
	c.mu.Lock()
	defer c.mu.Unlock()
	for old := range c.entries {
		if old.body == k.body && old.osculating == k.osculating && old.bucket != k.bucket {
			delete(c.entries, old)
		}
	}
	c.entries[k] = verts
}
