package engine

import (
	"strings"
	"sync"
	"time"
)

// DomainMemory remembers hosts learned at runtime to need rendering: Direct
// Fetch was blocked or denied there and Rendering Fetch then succeeded.
// Entries expire after the configured TTL and are cleaned up periodically.
// Writes are idempotent and readers take no locks.
type DomainMemory struct {
	store sync.Map // host (string) -> expiry (time.Time)
	ttl   time.Duration
	done  chan struct{}
	once  sync.Once
}

// NewDomainMemory creates a DomainMemory with the given TTL and starts
// a background goroutine that prunes expired entries every hour.
func NewDomainMemory(ttl time.Duration) *DomainMemory {
	dm := &DomainMemory{
		ttl:  ttl,
		done: make(chan struct{}),
	}
	go dm.cleanupLoop()
	return dm
}

// Has reports whether host was learned and has not expired. A nil memory
// knows nothing.
func (dm *DomainMemory) Has(host string) bool {
	if dm == nil {
		return false
	}
	host = memoryKey(host)
	val, ok := dm.store.Load(host)
	if !ok {
		return false
	}
	if time.Now().After(val.(time.Time)) {
		dm.store.Delete(host)
		return false
	}
	return true
}

// Learn records that host needs rendering, refreshing its TTL.
func (dm *DomainMemory) Learn(host string) {
	if dm == nil || host == "" {
		return
	}
	dm.store.Store(memoryKey(host), time.Now().Add(dm.ttl))
}

// Forget removes host (e.g. after rendering stops working for it).
func (dm *DomainMemory) Forget(host string) {
	if dm == nil {
		return
	}
	dm.store.Delete(memoryKey(host))
}

// Len returns the number of unexpired entries.
func (dm *DomainMemory) Len() int {
	if dm == nil {
		return 0
	}
	now := time.Now()
	n := 0
	dm.store.Range(func(_, value any) bool {
		if !now.After(value.(time.Time)) {
			n++
		}
		return true
	})
	return n
}

// Stop terminates the background cleanup goroutine. It is safe to call
// more than once.
func (dm *DomainMemory) Stop() {
	if dm == nil {
		return
	}
	dm.once.Do(func() { close(dm.done) })
}

func memoryKey(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// cleanupLoop runs every hour, deleting expired entries.
func (dm *DomainMemory) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-dm.done:
			return
		case <-ticker.C:
			now := time.Now()
			dm.store.Range(func(key, value any) bool {
				if now.After(value.(time.Time)) {
					dm.store.Delete(key)
				}
				return true
			})
		}
	}
}
