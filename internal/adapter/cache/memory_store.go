package cache

import (
	"sync"
	"time"

	"pagectx/internal/domain"
)

// MemoryStore is a bounded in-process vector store with LRU eviction and an
// optional TTL. It satisfies port.EmbeddingStore.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	vector    domain.Vector
	timestamp time.Time
}

// NewMemoryStore creates a store holding at most maxSize vectors. A ttl of
// zero keeps entries until they are evicted.
func NewMemoryStore(maxSize int, ttl time.Duration) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &MemoryStore{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryStore) Get(key string) (domain.Vector, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false, nil
	}

	if c.ttl > 0 && c.now().Sub(entry.timestamp) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false, nil
	}

	c.moveToEnd(key)
	return entry.vector, true, nil
}

func (c *MemoryStore) Put(key string, vector domain.Vector) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{
		vector:    vector,
		timestamp: c.now(),
	}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return nil
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = entry
	c.order = append(c.order, key)
	return nil
}

func (c *MemoryStore) Count() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), nil
}

func (c *MemoryStore) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *MemoryStore) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *MemoryStore) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
