// Package cache keeps recent operation responses in memory so callers that
// opt in with max_age can skip a browser session.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/shopwalk/models"
)

// entry holds a cached response with its creation timestamp.
type entry struct {
	response  models.OperationResponse
	createdAt time.Time
}

// Cache is a bounded in-memory response cache. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	now        func() time.Time
	done       chan struct{}
	closeOnce  sync.Once
}

// New creates a Cache holding at most maxEntries responses. A background
// goroutine evicts entries older than an hour every 5 minutes until Close.
func New(maxEntries int) *Cache {
	c := newCache(maxEntries, time.Now)
	go c.cleanupLoop(5*time.Minute, time.Hour)
	return c
}

func newCache(maxEntries int, now func() time.Time) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		now:        now,
		done:       make(chan struct{}),
	}
}

// Key derives a cache key from the operation and its normalised input.
// Queries differing only in case or surrounding space share a key.
func Key(op, input string) string {
	h := sha256.New()
	h.Write([]byte(op))
	h.Write([]byte("|"))
	h.Write([]byte(strings.ToLower(strings.TrimSpace(input))))
	return hex.EncodeToString(h.Sum(nil))
}

// SearchKey adds the listing bounds to Key.
func SearchKey(req models.SearchRequest) string {
	return Key(models.OpSearch, strings.Join([]string{
		req.Query,
		strconv.Itoa(req.TargetCount),
		strconv.Itoa(req.MaxScrollAttempts),
	}, "|"))
}

// Get returns a copy of the response stored under key when it is younger
// than maxAge seconds. maxAge <= 0 never hits.
func (c *Cache) Get(key string, maxAge int) (*models.OperationResponse, bool) {
	if maxAge <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.createdAt) > time.Duration(maxAge)*time.Second {
		return nil, false
	}
	resp := e.response
	return &resp, true
}

// Set stores a copy of resp. At capacity an arbitrary entry is evicted.
func (c *Cache) Set(key string, resp *models.OperationResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = &entry{response: *resp, createdAt: c.now()}
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Cache) cleanupLoop(every, ttl time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.evictOlderThan(ttl)
		}
	}
}

func (c *Cache) evictOlderThan(ttl time.Duration) {
	cutoff := c.now().Add(-ttl)
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
}
