// Package cache provides a small in-memory TTL cache.
package cache

import (
	"sync"
	"time"
)

// Entry is a cached value and its expiry.
type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// IsExpired reports whether the entry has expired at now.
func (e *Entry[V]) IsExpired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Memory is an in-memory cache with per-entry TTL. Expired entries are
// dropped on read and by a background sweep.
type Memory[V any] struct {
	mu      sync.RWMutex
	entries map[string]*Entry[V]
	now     func() time.Time

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// New creates a cache and starts its sweep loop. Call Stop when done.
func New[V any]() *Memory[V] {
	c := &Memory[V]{
		entries:         make(map[string]*Entry[V]),
		now:             time.Now,
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get returns the value for key if present and not expired.
func (c *Memory[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if entry.IsExpired(c.now()) {
		c.Invalidate(key)
		return zero, false
	}
	return entry.Value, true
}

// Set stores value under key for ttl.
func (c *Memory[V]) Set(key string, value V, ttl time.Duration) {
	entry := &Entry[V]{Value: value, ExpiresAt: c.now().Add(ttl)}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Invalidate removes key.
func (c *Memory[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateAll empties the cache.
func (c *Memory[V]) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]*Entry[V])
	c.mu.Unlock()
}

func (c *Memory[V]) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *Memory[V]) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if entry.IsExpired(now) {
			delete(c.entries, key)
		}
	}
}

// Stop ends the sweep loop. Safe to call more than once.
func (c *Memory[V]) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCleanup)
	})
}

// Len returns the number of stored entries, expired or not.
func (c *Memory[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
