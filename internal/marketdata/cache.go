package marketdata

import (
	"sync"
	"time"
)

// Cache TTLs by payload category. Quote-level data goes stale in minutes;
// historical daily bars survive hours.
const (
	TTLQuote   = 1 * time.Minute
	TTLHistory = 4 * time.Hour
)

type cacheEntry struct {
	payload   any
	fetchedAt time.Time
}

// Cache is a TTL cache keyed by (provider, logical-request-signature).
// Entries are valid while now - fetchedAt < ttl.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache creates an empty cache with the real clock.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry), now: time.Now}
}

// NewCacheWithClock creates a cache with an injected clock, for tests.
func NewCacheWithClock(now func() time.Time) *Cache {
	return &Cache{entries: make(map[string]cacheEntry), now: now}
}

// Get returns the payload for key if it is still within ttl.
func (c *Cache) Get(key string, ttl time.Duration) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.fetchedAt) >= ttl {
		return nil, false
	}
	return e.payload, true
}

// Put stores payload under key with a fresh fetch timestamp.
func (c *Cache) Put(key string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{payload: payload, fetchedAt: c.now()}
}

// Clear drops all entries unconditionally.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
