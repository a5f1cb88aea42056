package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/doclink/internal/domain/lineage"
)

// traceEntry is a stored trace with its insertion time.
type traceEntry struct {
	result     *lineage.TraceResult
	insertedAt time.Time
}

// InMemoryTraceCache implements TraceCache with a process-lifetime map.
// Eviction is lazy: an expired entry is dropped when it is next read, not
// swept by a background goroutine. Suitable for single-instance deployments.
type InMemoryTraceCache struct {
	mu      sync.RWMutex
	entries map[string]traceEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryTraceCache creates an in-memory trace cache with the given TTL.
func NewInMemoryTraceCache(ttl time.Duration) *InMemoryTraceCache {
	if ttl <= 0 {
		ttl = DefaultTraceTTL
	}
	return &InMemoryTraceCache{
		entries: make(map[string]traceEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached trace for a key if it is still inside the TTL.
func (c *InMemoryTraceCache) Get(_ context.Context, key string) (*lineage.TraceResult, bool, error) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()
	if !exists {
		return nil, false, nil
	}
	if c.now().Sub(entry.insertedAt) >= c.ttl {
		c.mu.Lock()
		// Re-check: another goroutine may have replaced the entry.
		if current, ok := c.entries[key]; ok && current.insertedAt.Equal(entry.insertedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return entry.result, true, nil
}

// Put stores a trace under a key, replacing any previous entry.
func (c *InMemoryTraceCache) Put(_ context.Context, key string, result *lineage.TraceResult) error {
	c.mu.Lock()
	c.entries[key] = traceEntry{result: result, insertedAt: c.now()}
	c.mu.Unlock()
	return nil
}

// Close releases nothing; present to satisfy TraceCache.
func (c *InMemoryTraceCache) Close() error {
	return nil
}

// Size returns the number of entries, including not-yet-evicted expired
// ones (for testing/monitoring).
func (c *InMemoryTraceCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ TraceCache = (*InMemoryTraceCache)(nil)
