package cache

import (
	"encoding/json"
	"sync"
	"time"

	"postboard/pkg/domain"
)

type memoryEntry struct {
	raw     []byte
	expires time.Time
}

// MemoryPostCache keeps post lists in-process (single instance only).
// Values are stored serialized so hits and misses behave like the Redis
// implementation.
type MemoryPostCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

// NewMemoryPostCache builds an in-memory post cache. ttl <= 0 falls back to
// DefaultTTL.
func NewMemoryPostCache(ttl time.Duration) *MemoryPostCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryPostCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

// Get returns the cached post list for the owner, or a miss. Expired entries
// are dropped on access.
func (c *MemoryPostCache) Get(ownerKey string) ([]domain.Post, bool, error) {
	c.mu.Lock()
	entry, ok := c.entries[ownerKey]
	if !ok {
		c.mu.Unlock()
		return nil, false, nil
	}
	if time.Now().After(entry.expires) {
		delete(c.entries, ownerKey)
		c.mu.Unlock()
		return nil, false, nil
	}
	c.mu.Unlock()

	var posts []domain.Post
	if err := json.Unmarshal(entry.raw, &posts); err != nil {
		return nil, false, err
	}
	return posts, true, nil
}

// Set stores the serialized post list and resets the entry's age.
func (c *MemoryPostCache) Set(ownerKey string, posts []domain.Post) error {
	raw, err := json.Marshal(posts)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[ownerKey] = memoryEntry{raw: raw, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

// Invalidate removes the owner's entry.
func (c *MemoryPostCache) Invalidate(ownerKey string) error {
	c.mu.Lock()
	delete(c.entries, ownerKey)
	c.mu.Unlock()
	return nil
}
