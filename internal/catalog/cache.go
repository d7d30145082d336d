package catalog

import (
	"sync"
	"time"

	"github.com/signalsfoundry/constellation-tracker/model"
)

const defaultElementCacheTTL = 3600 * time.Second

type elementEntry struct {
	satellites []model.Satellite
	cachedAt   time.Time
}

// ElementCache holds the most recently materialized satellite set per
// scenario for a fixed TTL, avoiding a refetch or regeneration on every
// request. Cached sets are logically immutable, so entries are shared with
// readers rather than cloned. Expiry is whole-entry and time-based only;
// there is no negative caching.
type ElementCache struct {
	mu      sync.RWMutex
	entries map[string]elementEntry
	ttl     time.Duration
	now     func() time.Time

	hits   int64
	misses int64
}

// NewElementCache creates a cache with the provided TTL; zero or negative
// uses the one-hour default.
func NewElementCache(ttl time.Duration) *ElementCache {
	if ttl <= 0 {
		ttl = defaultElementCacheTTL
	}
	return &ElementCache{
		entries: make(map[string]elementEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// TTL returns the configured entry lifetime.
func (c *ElementCache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

// Get returns the cached satellite set for the scenario, or reports a miss
// when the entry is absent or older than the TTL.
func (c *ElementCache) Get(scenarioID string) ([]model.Satellite, bool) {
	if c == nil || scenarioID == "" {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[scenarioID]
	c.mu.RUnlock()
	if !ok || c.now().Sub(entry.cachedAt) >= c.ttl {
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	return entry.satellites, true
}

// Set unconditionally overwrites the scenario's entry with the current
// timestamp.
func (c *ElementCache) Set(scenarioID string, satellites []model.Satellite) {
	if c == nil || scenarioID == "" {
		return
	}
	c.mu.Lock()
	c.entries[scenarioID] = elementEntry{satellites: satellites, cachedAt: c.now()}
	c.mu.Unlock()
}

// Stats returns cumulative hit and miss counts.
func (c *ElementCache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	c.mu.RLock()
	hits, misses = c.hits, c.misses
	c.mu.RUnlock()
	return
}

func (c *ElementCache) recordHit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
}

func (c *ElementCache) recordMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}
