package fetch

import (
	"sync"
	"time"
)

// pageCache keeps recently extracted pages so repeated intake of the same posting does not
// hit the network again.
type pageCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	page    Page
	expires time.Time
}

func newPageCache(ttl time.Duration) *pageCache {
	return &pageCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *pageCache) get(url string) (*Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[url]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, url)
		return nil, false
	}
	page := entry.page
	return &page, true
}

func (c *pageCache) put(url string, page *Page) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, key)
		}
	}
	c.entries[url] = cacheEntry{page: *page, expires: now.Add(c.ttl)}
}
