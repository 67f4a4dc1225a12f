package cache

import (
	"context"
	"sync"
	"time"

	"style-shopper/internal/types"
)

type memoryEntry struct {
	result    types.MatchResult
	expiresAt time.Time
}

// MemoryCache keeps match results in process memory until they expire
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an in-memory cache. ttl <= 0 keeps entries forever.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the cached result for key, dropping it if expired
func (c *MemoryCache) Get(ctx context.Context, key string) (*types.MatchResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	result := entry.result
	return &result, true, nil
}

// Set stores result under key
func (c *MemoryCache) Set(ctx context.Context, key string, result types.MatchResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := memoryEntry{result: result}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}
	c.entries[key] = entry
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close is a no-op
func (c *MemoryCache) Close() error {
	return nil
}
