// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/cinebrain/internal/logging"
	"github.com/tomtom215/cinebrain/internal/metrics"
	"github.com/tomtom215/cinebrain/internal/models"
)

// storeTimeout bounds every call into the second-level store.
const storeTimeout = 500 * time.Millisecond

// Entry is a cached response: the normalized items and when they were stored.
type Entry struct {
	Items     []models.ContentItem `json:"items"`
	Timestamp time.Time            `json:"timestamp"`
}

// Age returns how old the entry is at now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// StaleAt reports whether the entry is older than window at now.
func (e Entry) StaleAt(now time.Time, window time.Duration) bool {
	return now.Sub(e.Timestamp) > window
}

// Clock returns the current time.
type Clock func() time.Time

// Cache is a thread-safe response cache with stale-while-revalidate
// semantics. Entries are never evicted because of age: a stale entry stays
// servable until it is overwritten or cleared.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     Clock
	store   Store

	statsMu sync.RWMutex
	stats   Stats
}

// Stats is a point-in-time copy of the cache counters.
type Stats struct {
	Hits        int64
	StoreHits   int64
	Misses      int64
	Puts        int64
	Clears      int64
	TotalKeys   int64
	LastCleared time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now. Used by tests to move time forward.
func WithClock(now Clock) Option {
	return func(c *Cache) { c.now = now }
}

// WithStore adds a shared second-level store. Put writes through to it and
// Get reads through it on a local miss.
func WithStore(s Store) Option {
	return func(c *Cache) { c.store = s }
}

// New creates an empty cache.
//
//	c := cache.New()
//	c.Put(key, items)
//	if entry, ok := c.Get(key); ok && !c.IsStale(key, 2*time.Minute) {
//	    return entry.Items
//	}
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the entry stored under key, fresh or stale.
func (c *Cache) Get(key string) (Entry, bool) {
	return c.GetContext(context.Background(), key)
}

// GetContext is Get with a context for the second-level lookup.
func (c *Cache) GetContext(ctx context.Context, key string) (Entry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.recordHit(false)
		metrics.CacheHits.WithLabelValues("local").Inc()
		return entry, true
	}

	if c.store != nil {
		sctx, cancel := context.WithTimeout(ctx, storeTimeout)
		defer cancel()
		entry, found, err := c.store.Get(sctx, key)
		if err != nil {
			logging.Warn().Err(err).Str("key", key).Msg("Cache store read failed")
		} else if found {
			c.mu.Lock()
			// A concurrent Put wins over the shared copy.
			if local, exists := c.entries[key]; exists {
				entry = local
			} else {
				c.entries[key] = entry
			}
			c.updateKeyCount()
			c.mu.Unlock()
			c.recordHit(true)
			metrics.CacheHits.WithLabelValues("redis").Inc()
			return entry, true
		}
	}

	c.recordMiss()
	metrics.CacheMisses.Inc()
	return Entry{}, false
}

// Put stores items under key, stamped with the current time.
func (c *Cache) Put(key string, items []models.ContentItem) {
	c.PutContext(context.Background(), key, items)
}

// PutContext is Put with a context for the second-level write.
func (c *Cache) PutContext(ctx context.Context, key string, items []models.ContentItem) {
	stored := make([]models.ContentItem, len(items))
	copy(stored, items)
	entry := Entry{Items: stored, Timestamp: c.now()}

	c.mu.Lock()
	c.entries[key] = entry
	c.updateKeyCount()
	c.mu.Unlock()

	c.statsMu.Lock()
	c.stats.Puts++
	c.statsMu.Unlock()

	if c.store != nil {
		sctx, cancel := context.WithTimeout(ctx, storeTimeout)
		defer cancel()
		if err := c.store.Put(sctx, key, entry); err != nil {
			logging.Warn().Err(err).Str("key", key).Msg("Cache store write failed")
		}
	}
}

// IsStale reports whether the entry under key is older than window. Absent
// keys are stale.
func (c *Cache) IsStale(key string, window time.Duration) bool {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return true
	}
	return entry.StaleAt(c.now(), window)
}

// Lookup combines Get and IsStale. Serving a stale entry is counted.
func (c *Cache) Lookup(ctx context.Context, key string, window time.Duration) (entry Entry, found, stale bool) {
	entry, found = c.GetContext(ctx, key)
	if !found {
		return Entry{}, false, true
	}
	stale = entry.StaleAt(c.now(), window)
	if stale {
		metrics.CacheStaleServed.Inc()
	}
	return entry, true, stale
}

// Delete removes one key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.updateKeyCount()
	c.mu.Unlock()

	if c.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := c.store.Delete(ctx, key); err != nil {
			logging.Warn().Err(err).Str("key", key).Msg("Cache store delete failed")
		}
	}
}

// Clear removes every entry. Called on authentication transitions.
func (c *Cache) Clear() {
	c.mu.Lock()
	removed := len(c.entries)
	c.entries = make(map[string]Entry)
	c.updateKeyCount()
	c.mu.Unlock()

	c.recordClear()
	metrics.CacheClears.WithLabelValues("all").Inc()

	if c.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := c.store.Clear(ctx); err != nil {
			logging.Warn().Err(err).Msg("Cache store clear failed")
		}
	}
	logging.Debug().Int("removed", removed).Msg("Response cache cleared")
}

// ClearMatching removes every entry whose key satisfies match and returns
// how many local entries were removed.
func (c *Cache) ClearMatching(match func(key string) bool) int {
	c.mu.Lock()
	removed := 0
	for key := range c.entries {
		if match(key) {
			delete(c.entries, key)
			removed++
		}
	}
	c.updateKeyCount()
	c.mu.Unlock()

	c.recordClear()
	metrics.CacheClears.WithLabelValues("matching").Inc()

	if c.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if _, err := c.store.DeleteMatching(ctx, match); err != nil {
			logging.Warn().Err(err).Msg("Cache store selective clear failed")
		}
	}
	return removed
}

// Len returns the number of local entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats returns a snapshot of the cache statistics.
func (c *Cache) GetStats() Stats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats
}

// HitRate returns the hit rate as a percentage.
func (c *Cache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.StoreHits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits+stats.StoreHits) / float64(total) * 100.0
}

// updateKeyCount must be called with c.mu held.
func (c *Cache) updateKeyCount() {
	n := int64(len(c.entries))
	c.statsMu.Lock()
	c.stats.TotalKeys = n
	c.statsMu.Unlock()
	metrics.CacheEntries.Set(float64(n))
}

func (c *Cache) recordHit(store bool) {
	c.statsMu.Lock()
	if store {
		c.stats.StoreHits++
	} else {
		c.stats.Hits++
	}
	c.statsMu.Unlock()
}

func (c *Cache) recordMiss() {
	c.statsMu.Lock()
	c.stats.Misses++
	c.statsMu.Unlock()
}

func (c *Cache) recordClear() {
	c.statsMu.Lock()
	c.stats.Clears++
	c.stats.LastCleared = c.now()
	c.statsMu.Unlock()
}
