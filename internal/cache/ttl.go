package cache

import (
	"sort"
	"sync"
	"time"
)

// DefaultTTL is used when a cache is created without an explicit default.
const DefaultTTL = 5 * time.Minute

// Entry is a single cached value with its lifetime.
type Entry[V any] struct {
	Value     V
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Stats is a point-in-time summary of the cache table.
type Stats struct {
	Total   int      `json:"total_entries"`
	Valid   int      `json:"valid_entries"`
	Expired int      `json:"expired_entries"`
	Keys    []string `json:"keys"`
}

// TTL is a concurrency-safe key/value cache with per-entry expiry.
// Expired entries are only evicted when they are looked up.
type TTL[V any] struct {
	mu sync.Mutex

	entries    map[string]Entry[V]
	defaultTTL time.Duration
	now        func() time.Time
}

// Option configures a TTL cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New creates a cache whose Set uses defaultTTL. A non-positive defaultTTL
// falls back to DefaultTTL.
func New[V any](defaultTTL time.Duration, opts ...Option) *TTL[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &TTL[V]{
		entries:    make(map[string]Entry[V]),
		defaultTTL: defaultTTL,
		now:        o.now,
	}
}

// DefaultTTL returns the lifetime applied by Set.
func (c *TTL[V]) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Get returns the value for key if present and not expired.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !c.now().Before(entry.ExpiresAt) {
		delete(c.entries, key)
		return zero, false
	}
	return entry.Value, true
}

// Set stores value under key with the default TTL, replacing any previous entry.
func (c *TTL[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores value under key for ttl. A non-positive ttl uses the default.
func (c *TTL[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = Entry[V]{
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Clear removes a single key.
func (c *TTL[V]) Clear(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// ClearAll empties the cache.
func (c *TTL[V]) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry[V])
}

// Stats reports how many entries are held and how many of them are still live.
// It does not evict anything.
func (c *TTL[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	st := Stats{
		Total: len(c.entries),
		Keys:  make([]string, 0, len(c.entries)),
	}
	for key, entry := range c.entries {
		if now.Before(entry.ExpiresAt) {
			st.Valid++
		}
		st.Keys = append(st.Keys, key)
	}
	st.Expired = st.Total - st.Valid
	sort.Strings(st.Keys)
	return st
}
