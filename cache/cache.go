// Package cache is the in-memory record cache behind the HTTP API's
// max_age option.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/use-agent/linkstash/models"
)

// entry holds a cached record with its creation timestamp.
type entry struct {
	record    models.ScrapedRecord
	createdAt time.Time
}

// Cache is a simple in-memory cache for ingested records.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	done       chan struct{}
	once       sync.Once
}

// New creates a Cache holding at most maxEntries records. A background
// goroutine evicts entries older than ttl every five minutes until Stop.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Key generates a cache key from the URL and the content format.
func Key(url, contentFormat string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte("|"))
	h.Write([]byte(contentFormat))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a copy of the cached record if it exists and is younger than
// maxAgeMs milliseconds. maxAgeMs <= 0 disables the lookup.
func (c *Cache) Get(key string, maxAgeMs int) (models.ScrapedRecord, bool) {
	if maxAgeMs <= 0 {
		return models.ScrapedRecord{}, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return models.ScrapedRecord{}, false
	}

	if c.now().Sub(e.createdAt) > time.Duration(maxAgeMs)*time.Millisecond {
		return models.ScrapedRecord{}, false
	}
	return e.record, true
}

// Set stores a copy of rec. If the cache is at capacity, a random entry is
// evicted to make room.
func (c *Cache) Set(key string, rec models.ScrapedRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		// Map iteration order is random.
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = &entry{record: rec, createdAt: c.now()}
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Stop terminates the cleanup goroutine. It is safe to call more than once.
func (c *Cache) Stop() {
	c.once.Do(func() { close(c.done) })
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

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}
