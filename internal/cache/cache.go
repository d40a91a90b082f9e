// Package cache provides the process-wide TTL result cache that wraps
// market-data provider calls to bound call volume and absorb transient
// failures.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/perflens/perflens/internal/common"
)

// entry is an immutable (value, error, insertion time) triple. A stale entry
// is never mutated, only superseded by a fresh fetch under the same key.
type entry struct {
	value    any
	err      error
	storedAt time.Time
}

// Cache is a keyed TTL cache with lazy eviction. Lookups are
// read-check/fetch/write: the lock is not held across fetchFn, so two
// concurrent requests for the same cold key may both fetch once each. The
// provider calls are idempotent, so at-most-two-fetches-on-cold-cache is
// accepted over serializing fetches.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
	logger  *common.Logger
}

// New creates an empty cache.
func New(logger *common.Logger) *Cache {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
		logger:  logger,
	}
}

// Key builds a deterministic cache key from a data kind and the semantic
// arguments of the call (symbols, horizon).
func Key(kind string, parts ...string) string {
	return kind + ":" + strings.Join(parts, ":")
}

// GetOrFetch returns the live cached value for key, or invokes fetch and
// stores its result. Both successes and failures are stored, so repeated
// failing calls for the same key are absorbed until the TTL expires.
func (c *Cache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (any, error)) (any, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().Sub(e.storedAt) < ttl {
		return e.value, e.err
	}

	value, err := fetch(ctx)

	c.mu.Lock()
	c.entries[key] = entry{value: value, err: err, storedAt: c.now()}
	c.mu.Unlock()

	if err != nil {
		c.logger.Debug().Str("key", key).Err(err).Msg("Cached failure marker")
	}
	return value, err
}

// Evict removes the entry for key, if present. Used by tests and by
// force-refresh paths; normal expiry is lazy on lookup.
func (c *Cache) Evict(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, live or stale.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// SetClock injects a clock for deterministic TTL expiry in tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Fetch is the typed wrapper around Cache.GetOrFetch.
func Fetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	v, err := c.GetOrFetch(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if v == nil {
		var zero T
		return zero, err
	}
	return v.(T), err
}
