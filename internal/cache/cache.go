// Package cache provides a TTL memoization layer for catalog scans,
// recommendations and search results.
//
// Entries are keyed by "prefix:JSON(params)". Each entry records its own
// write time and TTL; a read past expiry evicts the entry and misses.
// There are no invalidation hooks, so callers accept up to one TTL of
// staleness.
package cache

import (
	"sync"
	"time"

	"github.com/felixgeelhaar/practicum/internal/metrics"
)

// DefaultTTL is used when no TTL option is given
const DefaultTTL = 5 * time.Minute

type entry[T any] struct {
	value    T
	storedAt time.Time
	ttl      time.Duration
}

func (e entry[T]) expired(now time.Time) bool {
	return !now.Before(e.storedAt.Add(e.ttl))
}

// Stats reports cache efficiency
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
}

// HitRate returns hits / (hits + misses), or 0 with no lookups
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Option configures a Cache
type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL sets the default entry TTL
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock injects the time source, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Cache is a thread-safe TTL cache. A nil *Cache is valid and never hits.
type Cache[T any] struct {
	name    string
	mu      sync.Mutex
	entries map[string]entry[T]
	ttl     time.Duration
	now     func() time.Time
	stats   Stats
}

// New creates a cache. The name labels its metrics.
func New[T any](name string, opts ...Option) *Cache[T] {
	o := options{ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		name:    name,
		entries: make(map[string]entry[T]),
		ttl:     o.ttl,
		now:     o.now,
	}
}

// Get looks up the value memoized for (prefix, params)
func (c *Cache[T]) Get(prefix string, params any) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	key := GenerateKey(prefix, params)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		metrics.CacheMisses.WithLabelValues(c.name).Inc()
		return zero, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		c.stats.Evictions++
		c.stats.Misses++
		metrics.CacheEvictions.WithLabelValues(c.name).Inc()
		metrics.CacheMisses.WithLabelValues(c.name).Inc()
		return zero, false
	}

	c.stats.Hits++
	metrics.CacheHits.WithLabelValues(c.name).Inc()
	return e.value, true
}

// Set memoizes value for (prefix, params) with the default TTL
func (c *Cache[T]) Set(prefix string, params any, value T) {
	if c == nil {
		return
	}
	c.SetWithTTL(prefix, params, value, c.ttl)
}

// SetWithTTL memoizes value with an explicit TTL
func (c *Cache[T]) SetWithTTL(prefix string, params any, value T, ttl time.Duration) {
	if c == nil {
		return
	}
	key := GenerateKey(prefix, params)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[T]{value: value, storedAt: c.now(), ttl: ttl}
}

// GetOrCompute returns the memoized value or computes and stores it.
// Errors from compute are returned and nothing is stored.
func (c *Cache[T]) GetOrCompute(prefix string, params any, compute func() (T, error)) (T, error) {
	if v, ok := c.Get(prefix, params); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	c.Set(prefix, params, v)
	return v, nil
}

// Delete removes a single entry
func (c *Cache[T]) Delete(prefix string, params any) {
	if c == nil {
		return
	}
	key := GenerateKey(prefix, params)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every entry
func (c *Cache[T]) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
}

// Stats returns a snapshot of the cache counters
func (c *Cache[T]) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Entries = len(c.entries)
	return s
}
