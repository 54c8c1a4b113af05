package dbprobe

import "sync"

// CachedAdapter wraps another Prober with a bounded cache, the way the
// source's tablebase lookup caches positions to cut down on repeated
// lookups of the same node across successive batches.
type CachedAdapter struct {
	inner   Prober
	cache   map[string]Result
	mu      sync.RWMutex
	maxSize int
	hits    uint64
	misses  uint64
}

// NewCachedAdapter wraps inner with a cache capped at maxSize entries.
func NewCachedAdapter(inner Prober, maxSize int) *CachedAdapter {
	return &CachedAdapter{
		inner:   inner,
		cache:   make(map[string]Result, maxSize),
		maxSize: maxSize,
	}
}

// Probe implements Prober, serving from the cache when possible.
func (c *CachedAdapter) Probe(fen string) (Result, error) {
	c.mu.RLock()
	if result, ok := c.cache[fen]; ok {
		c.mu.RUnlock()
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return result, nil
	}
	c.mu.RUnlock()

	result, err := c.inner.Probe(fen)
	if err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	c.misses++
	if len(c.cache) >= c.maxSize {
		// Simple eviction: drop half the cache (at least one entry) rather
		// than track LRU order.
		evict := c.maxSize / 2
		if evict < 1 {
			evict = 1
		}
		i := 0
		for k := range c.cache {
			if i >= evict {
				break
			}
			delete(c.cache, k)
			i++
		}
	}
	c.cache[fen] = result
	c.mu.Unlock()

	return result, nil
}

// HitRate returns the cache hit rate as a percentage.
func (c *CachedAdapter) HitRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total) * 100
}

// Size returns the current number of cached entries.
func (c *CachedAdapter) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
