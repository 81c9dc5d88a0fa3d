package cache

import (
	"sync"
	"time"
)

// CacheEntry represents a cached response body with expiration
type CacheEntry struct {
	Body       []byte
	ExpiryTime time.Time
}

// ResponseCache provides thread-safe caching of upstream response bodies
type ResponseCache struct {
	cache map[string]CacheEntry
	mutex sync.RWMutex
	now   func() time.Time
}

// NewResponseCache creates a new response cache instance
func NewResponseCache() *ResponseCache {
	return &ResponseCache{
		cache: make(map[string]CacheEntry),
		now:   time.Now,
	}
}

// Get retrieves a body from cache if not expired
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	c.mutex.RLock()
	entry, found := c.cache[key]
	c.mutex.RUnlock()

	if found && c.now().Before(entry.ExpiryTime) {
		return entry.Body, true
	}

	return nil, false
}

// Set stores a body in cache with expiration time
func (c *ResponseCache) Set(key string, body []byte, expiry time.Time) {
	c.mutex.Lock()
	c.cache[key] = CacheEntry{
		Body:       body,
		ExpiryTime: expiry,
	}
	c.mutex.Unlock()
}

// Delete drops key regardless of expiry
func (c *ResponseCache) Delete(key string) {
	c.mutex.Lock()
	delete(c.cache, key)
	c.mutex.Unlock()
}

// Clear removes expired entries from cache
func (c *ResponseCache) Clear() {
	now := c.now()
	c.mutex.Lock()
	for key, entry := range c.cache {
		if now.After(entry.ExpiryTime) {
			delete(c.cache, key)
		}
	}
	c.mutex.Unlock()
}

// Len returns the number of stored entries, expired or not
func (c *ResponseCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cache)
}
