// Package cache keeps recent task results in memory.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/webagent/models"
)

// entry holds a cached result with its creation timestamp.
type entry struct {
	result    *models.AggregateResult
	createdAt time.Time
}

// Cache is an in-memory cache of task results. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	stop chan struct{}
	once sync.Once
}

// New creates a Cache holding up to maxEntries results for ttl. A background
// goroutine evicts expired entries every ttl/2 (at least once a minute)
// until Close is called. A zero ttl returns a Cache that stores nothing.
func New(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	if ttl > 0 && maxEntries > 0 {
		go c.cleanupLoop(min(ttl/2, time.Minute))
	}
	return c
}

// Key normalizes a task so trivially different spellings share an entry.
func Key(task string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(task)), " ")
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c != nil && c.ttl > 0 && c.maxEntries > 0
}

// TTL returns the configured freshness window; zero for a nil Cache.
func (c *Cache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

// Get returns a cached result younger than both maxAge and the cache TTL.
// maxAge <= 0 means the caller wants a fresh result.
func (c *Cache) Get(key string, maxAge time.Duration) (*models.AggregateResult, bool) {
	if !c.Enabled() || maxAge <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	age := c.now().Sub(e.createdAt)
	if age > maxAge || age > c.ttl {
		return nil, false
	}
	return e.result, true
}

// Set stores a result. If the cache is at capacity the oldest entry is evicted.
func (c *Cache) Set(key string, res *models.AggregateResult) {
	if !c.Enabled() || res == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.store {
			if oldestKey == "" || e.createdAt.Before(oldest) {
				oldestKey, oldest = k, e.createdAt
			}
		}
		delete(c.store, oldestKey)
	}

	c.store[key] = &entry{result: res, createdAt: c.now()}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache) evictExpired() {
	cutoff := c.now().Add(-c.ttl)
	c.mu.Lock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}
