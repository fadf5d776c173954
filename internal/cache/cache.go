// Package cache provides a bounded in-memory cache for completed analyses.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/yosoku-ai/yosoku/internal/model"
)

// AnalysisCache is a TTL and size bounded in-memory cache keyed by
// analysis ID. It serves repeat GET requests without touching the
// archive. Entries expire after the TTL; when the cache is full the
// least recently used entry is evicted first.
type AnalysisCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	maxSize int
	ttl     time.Duration
	done    chan struct{}
}

type cachedEntry struct {
	key       string
	result    *model.AnalysisResult
	expiresAt time.Time
}

// New creates a cache holding at most maxSize entries with the given TTL.
// Call Close to stop the background eviction goroutine.
func New(maxSize int, ttl time.Duration) *AnalysisCache {
	c := &AnalysisCache{
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go c.evictLoop()
	return c
}

// Get returns the cached analysis and true if a valid entry exists.
// Returns nil, false on miss or expiry.
func (c *AnalysisCache) Get(id string) (*model.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cachedEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeLocked(elem)
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return entry.result, true
}

// Set stores an analysis with the configured TTL, evicting the least
// recently used entry when the cache is full.
func (c *AnalysisCache) Set(id string, result *model.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[id]; ok {
		entry := elem.Value.(*cachedEntry)
		entry.result = result
		entry.expiresAt = time.Now().Add(c.ttl)
		c.lru.MoveToFront(elem)
		return
	}

	for c.lru.Len() >= c.maxSize {
		c.removeLocked(c.lru.Back())
	}
	elem := c.lru.PushFront(&cachedEntry{
		key:       id,
		result:    result,
		expiresAt: time.Now().Add(c.ttl),
	})
	c.entries[id] = elem
}

// Len reports the number of live entries, expired or not.
func (c *AnalysisCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Close stops the background eviction goroutine.
func (c *AnalysisCache) Close() {
	close(c.done)
}

func (c *AnalysisCache) removeLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	entry := elem.Value.(*cachedEntry)
	delete(c.entries, entry.key)
	c.lru.Remove(elem)
}

// evictLoop removes expired entries every minute.
func (c *AnalysisCache) evictLoop() {
	ticker := time.NewTicker(time.Minute)
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

func (c *AnalysisCache) evictExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	var next *list.Element
	for elem := c.lru.Front(); elem != nil; elem = next {
		next = elem.Next()
		if now.After(elem.Value.(*cachedEntry).expiresAt) {
			c.removeLocked(elem)
		}
	}
}
