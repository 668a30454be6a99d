package architecture

import (
	"sync"
	"time"
)

// ResultCache holds the most recent analysis result for a fixed TTL.
type ResultCache struct {
	mu         sync.RWMutex
	result     *AnalysisResult
	computedAt time.Time
	ttl        time.Duration
	now        func() time.Time
}

// NewResultCache creates a cache; now defaults to time.Now.
func NewResultCache(ttl time.Duration, now func() time.Time) *ResultCache {
	if now == nil {
		now = time.Now
	}
	return &ResultCache{ttl: ttl, now: now}
}

// Get returns the cached result while it is younger than the TTL.
func (c *ResultCache) Get() (*AnalysisResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.result == nil || c.now().Sub(c.computedAt) >= c.ttl {
		return nil, false
	}
	return c.result, true
}

// Set stores a result stamped with the current clock time.
func (c *ResultCache) Set(result *AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.result = result
	c.computedAt = c.now()
}

// Invalidate drops the cached result.
func (c *ResultCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.result = nil
}

// Age returns how long ago the cached result was computed.
func (c *ResultCache) Age() (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.result == nil {
		return 0, false
	}
	return c.now().Sub(c.computedAt), true
}
