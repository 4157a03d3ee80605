package clients

import "sync"

// Cache is a concurrency-safe map from client id to record. Records never
// change after load, so there is no TTL; the only mutations are
// population-on-miss and the explicit invalidation entry points.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Record
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Record)}
}

// Get returns an independent copy of the cached record, if present.
func (c *Cache) Get(id string) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Add stores a copy of the record under id, keeping an existing entry if one
// is already present. Two racing fills for the same id both computed the
// same value from the immutable store, so keeping the first is equivalent.
func (c *Cache) Add(id string, rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; ok {
		return
	}
	c.entries[id] = rec.Clone()
}

// Invalidate removes one entry.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// InvalidateAll removes every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Record)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the cached client ids.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}
