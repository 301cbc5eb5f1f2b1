package cmd

import (
	"sync"
	"time"

	"github.com/desktopqa/terminal-bdd/internal/model"
	"github.com/desktopqa/terminal-bdd/internal/platform"
)

// mcpCacheEntry holds a cached tree with its timestamp.
type mcpCacheEntry struct {
	root      *model.Node
	timestamp time.Time
}

// mcpTreeCache is a TTL cache of application trees, keyed by application
// name. Authoring sessions tend to issue several queries against the same
// tree in a row.
type mcpTreeCache struct {
	mu      sync.Mutex
	entries map[string]mcpCacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// newMCPTreeCache creates a new cache. A ttl of 0 disables caching.
func newMCPTreeCache(ttl time.Duration) *mcpTreeCache {
	return &mcpTreeCache{
		entries: make(map[string]mcpCacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// tree returns the cached tree of app if within TTL, otherwise reads fresh.
func (c *mcpTreeCache) tree(reader platform.Reader, app string) (*model.Node, error) {
	if c.ttl == 0 {
		return reader.Tree(app)
	}

	c.mu.Lock()
	if entry, ok := c.entries[app]; ok && c.now().Sub(entry.timestamp) < c.ttl {
		c.mu.Unlock()
		return entry.root, nil
	}
	c.mu.Unlock()

	root, err := reader.Tree(app)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[app] = mcpCacheEntry{root: root, timestamp: c.now()}
	c.mu.Unlock()
	return root, nil
}

// invalidateAll clears the entire cache.
func (c *mcpTreeCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]mcpCacheEntry)
}
