package assets

import (
	"sync"
	"time"
)

// Cache keeps fetched images in memory for a fixed TTL.
type Cache struct {
	data    map[string]*cacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
	cleanup *time.Ticker
	done    chan struct{}
	stop    sync.Once
}

type cacheEntry struct {
	data       []byte
	imageType  string
	expiration time.Time
}

// NewCache creates a cache and starts its cleanup goroutine. Call Stop to release it.
func NewCache(ttl time.Duration) *Cache {
	cache := &Cache{
		data:    make(map[string]*cacheEntry),
		ttl:     ttl,
		cleanup: time.NewTicker(time.Minute),
		done:    make(chan struct{}),
	}

	go cache.cleanupLoop()

	return cache
}

func (c *Cache) Get(ref string) ([]byte, string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[ref]
	if !ok || time.Now().After(entry.expiration) {
		return nil, "", false
	}
	return entry.data, entry.imageType, true
}

func (c *Cache) Set(ref string, data []byte, imageType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[ref] = &cacheEntry{
		data:       data,
		imageType:  imageType,
		expiration: time.Now().Add(c.ttl),
	}
}

// Delete drops a single entry, e.g. after the image behind a URL was replaced.
func (c *Cache) Delete(ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, ref)
}

func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.data)
}

func (c *Cache) cleanupLoop() {
	for {
		select {
		case <-c.cleanup.C:
			c.removeExpired()
		case <-c.done:
			return
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.data {
		if now.After(entry.expiration) {
			delete(c.data, key)
		}
	}
}

func (c *Cache) Stop() {
	c.stop.Do(func() {
		c.cleanup.Stop()
		close(c.done)
	})
}
