package dedupe

import (
	"sync"
	"time"
)

type stamp struct {
	key string
	ts  time.Time
}

// Cache remembers recently published signal IDs so restarts and
// overlapping lookback windows do not re-announce the same entity.
// Fixed capacity, per-entry TTL, oldest-first eviction.
type Cache struct {
	mu       sync.Mutex
	items    map[string]time.Time
	order    []stamp
	capacity int
	ttl      time.Duration
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		items:    make(map[string]time.Time, capacity),
		order:    make([]stamp, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
	}
}

// IsSeen reports whether the key was observed inside the ttl window. It
// does not record the key; call MarkSeen after the signal is safely
// published so a failed publish can be retried.
func (c *Cache) IsSeen(key string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.items[key]
	return ok && now.Sub(ts) <= c.ttl
}

// MarkSeen records that a key has been published.
func (c *Cache) MarkSeen(key string) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = now
	c.order = append(c.order, stamp{key: key, ts: now})
	c.evict(now)
}

func (c *Cache) evict(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		// Only drop the map entry if it was not refreshed since.
		if ts, ok := c.items[oldest.key]; ok && ts == oldest.ts {
			delete(c.items, oldest.key)
		}
	}
}
