package cache

import (
	gocache "github.com/patrickmn/go-cache"
)

// MemoryCounts implements in-memory count memoization
type MemoryCounts struct {
	cache *gocache.Cache
}

// NewMemoryCounts creates a new eviction-free count cache
func NewMemoryCounts() *MemoryCounts {
	return &MemoryCounts{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get retrieves a memoized count
func (c *MemoryCounts) Get(key string) (int64, bool) {
	if val, found := c.cache.Get(key); found {
		return val.(int64), true
	}
	return 0, false
}

// Set memoizes a count
func (c *MemoryCounts) Set(key string, n int64) {
	c.cache.Set(key, n, gocache.NoExpiration)
}
