// Package cache provides the shared memoization layer for recurrence
// expansion and holiday resolution results. It is the only mutable state
// shared between concurrent month builds; everything else in the aggregation
// core is stateless per call.
package cache

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrCorrupted is returned when a cached value violates an internal
// invariant, such as holding the wrong type for its key. Callers evict the
// entry and recompute; corruption never crashes the process.
var ErrCorrupted = errors.New("corrupted cache entry")

// Kind distinguishes the two families of cached values.
type Kind int

const (
	// KindExpansion caches expanded occurrence lists per event and range.
	KindExpansion Kind = iota
	// KindHolidays caches resolved holiday sets per country, year and locale.
	KindHolidays
)

// Key identifies one cached value. For expansions ID is the event id and
// RangeStart/RangeEnd the ISO dates of the request; for holidays ID is the
// country code and Year/Locale complete the key.
type Key struct {
	Kind       Kind
	ID         string
	Year       int
	RangeStart string
	RangeEnd   string
	Locale     string
}

// ExpansionKey builds the key for an expanded occurrence list.
func ExpansionKey(eventID string, rangeStart, rangeEnd time.Time) Key {
	return Key{
		Kind:       KindExpansion,
		ID:         eventID,
		RangeStart: rangeStart.Format(time.DateOnly),
		RangeEnd:   rangeEnd.Format(time.DateOnly),
	}
}

// HolidayKey builds the key for a resolved holiday set.
func HolidayKey(country string, year int, locale string) Key {
	return Key{Kind: KindHolidays, ID: country, Year: year, Locale: locale}
}

type entry struct {
	value      any
	version    uint64
	expiresAt  time.Time
	accessedAt time.Time
}

// Config tunes the cache.
type Config struct {
	TTL        time.Duration // how long entries stay valid
	MaxEntries int           // bound on stored entries; oldest-accessed evicted first
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	TTL:        15 * time.Minute,
	MaxEntries: 1000,
}

// Cache is a versioned, bounded, concurrency-safe memoization table.
// Invalidation bumps a monotonic version; a computation that started before
// an invalidation detects the mismatch when storing and discards its result
// instead of resurrecting stale data.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]*entry
	version atomic.Uint64

	ttl        time.Duration
	maxEntries int
	logger     *slog.Logger
	sweeper    *cron.Cron

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	discards  atomic.Uint64
}

// New creates a Cache. A nil logger falls back to slog.Default. The cache
// starts cold; nothing is persisted across processes.
func New(cfg Config, logger *slog.Logger) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig.TTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultConfig.MaxEntries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries:    make(map[Key]*entry),
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		logger:     logger,
	}
}

// GetOrCompute returns the cached value for key, computing and storing it on
// a miss. compute runs outside the lock, so concurrent misses on different
// keys do not serialize. The stored value is visible to readers fully
// constructed or not at all. hit reports whether the value came from the
// cache.
func (c *Cache) GetOrCompute(key Key, compute func() (any, error)) (value any, hit bool, err error) {
	now := time.Now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && now.Before(e.expiresAt) {
		c.hits.Add(1)
		c.mu.Lock()
		e.accessedAt = now
		c.mu.Unlock()
		return e.value, true, nil
	}
	c.misses.Add(1)

	snapshot := c.version.Load()
	value, err = compute()
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	if c.version.Load() == snapshot {
		c.entries[key] = &entry{
			value:      value,
			version:    snapshot,
			expiresAt:  now.Add(c.ttl),
			accessedAt: now,
		}
		if len(c.entries) > c.maxEntries {
			c.evictLocked()
		}
	} else {
		// An invalidation raced this computation; the result may be stale.
		c.discards.Add(1)
	}
	c.mu.Unlock()

	return value, false, nil
}

// Evict drops a single entry, used when a cached value turns out corrupted.
func (c *Cache) Evict(key Key) {
	c.mu.Lock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.evictions.Add(1)
	}
	c.mu.Unlock()
}

// Invalidate removes every entry matching pred and bumps the version so that
// in-flight computations of matching keys discard their results.
func (c *Cache) Invalidate(pred func(Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version.Add(1)
	for k := range c.entries {
		if pred(k) {
			delete(c.entries, k)
			c.evictions.Add(1)
		}
	}
}

// InvalidateEvent drops all expansion entries for one event, called when its
// definition or exceptions mutate.
func (c *Cache) InvalidateEvent(eventID string) {
	c.Invalidate(func(k Key) bool {
		return k.Kind == KindExpansion && k.ID == eventID
	})
}

// InvalidateHolidays drops all holiday entries, called on locale or country
// changes.
func (c *Cache) InvalidateHolidays() {
	c.Invalidate(func(k Key) bool { return k.Kind == KindHolidays })
}

// InvalidateYearsBefore drops holiday entries whose year has rolled over.
func (c *Cache) InvalidateYearsBefore(year int) {
	c.Invalidate(func(k Key) bool {
		return k.Kind == KindHolidays && k.Year < year
	})
}

// StartSweeper schedules the daily sweep that drops holiday entries for
// rolled-over years. now is injected for testability.
func (c *Cache) StartSweeper(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sweeper != nil {
		return
	}
	c.sweeper = cron.New()
	_, err := c.sweeper.AddFunc("@daily", func() {
		year := now().Year()
		c.logger.Debug("cache sweep", "year", year)
		c.InvalidateYearsBefore(year)
	})
	if err != nil {
		c.logger.Error("failed to schedule cache sweep", "error", err)
		c.sweeper = nil
		return
	}
	c.sweeper.Start()
}

// Close stops the sweeper and clears the cache.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sweeper != nil {
		c.sweeper.Stop()
		c.sweeper = nil
	}
	c.entries = make(map[Key]*entry)
}

// evictLocked removes expired entries, then the least recently accessed ones
// until the cache fits its bound. Callers hold the write lock.
func (c *Cache) evictLocked() {
	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			c.evictions.Add(1)
		}
	}
	for len(c.entries) > c.maxEntries {
		var oldestKey Key
		var oldest time.Time
		first := true
		for k, e := range c.entries {
			if first || e.accessedAt.Before(oldest) {
				oldestKey, oldest = k, e.accessedAt
				first = false
			}
		}
		delete(c.entries, oldestKey)
		c.evictions.Add(1)
	}
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Entries   int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Discards  uint64
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Entries:   entries,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Discards:  c.discards.Load(),
	}
}
