package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type localEntry struct {
	value     []byte
	expiresAt time.Time
}

// LocalCache is the single-instance fallback. Entries are evicted by LRU order
// or lazily on read once expired.
type LocalCache struct {
	mu    sync.Mutex
	items *lru.Cache[string, localEntry]
	now   func() time.Time
}

func NewLocalCache(capacity int) (*LocalCache, error) {
	if capacity <= 0 {
		capacity = 1024
	}
	items, err := lru.New[string, localEntry](capacity)
	if err != nil {
		return nil, err
	}
	return &LocalCache{items: items, now: time.Now}, nil
}

func (c *LocalCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	if !c.now().Before(entry.expiresAt) {
		c.items.Remove(key)
		return nil, ErrCacheMiss
	}
	return entry.value, nil
}

func (c *LocalCache) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items.Add(key, localEntry{value: value, expiresAt: c.now().Add(ttl)})
	return nil
}

func (c *LocalCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items.Remove(key)
	return nil
}

func (c *LocalCache) DeleteByPrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.items.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.items.Remove(key)
		}
	}
	return nil
}
