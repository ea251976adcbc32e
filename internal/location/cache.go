package location

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"shipdesk/internal/config"
	"shipdesk/internal/logger"
	"shipdesk/internal/metrics"
)

// Category groups cache entries that share a default time-to-live.
type Category string

const (
	CategoryCountries    Category = "countries"
	CategoryStructure    Category = "country-structure"
	CategoryStates       Category = "states"
	CategoryCities       Category = "cities"
	CategoryServiceAreas Category = "service-areas"
	CategoryPostalCodes  Category = "postal-codes"
)

// Categories lists every cache category.
var Categories = []Category{
	CategoryCountries, CategoryStructure, CategoryStates,
	CategoryCities, CategoryServiceAreas, CategoryPostalCodes,
}

func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Entry is a cached payload. It is usable only while now - StoredAt < TTL.
type Entry struct {
	Category Category
	Key      string
	Payload  interface{}
	StoredAt time.Time
	TTL      time.Duration
}

func (e *Entry) fresh(now time.Time) bool {
	return now.Sub(e.StoredAt) < e.TTL
}

type entryKey struct {
	category Category
	key      string
}

// CacheOptions configures a Cache. Zero values fall back to the defaults.
type CacheOptions struct {
	TTLs       map[Category]time.Duration
	ErrorTTL   time.Duration
	MaxEntries int // <= 0 means unbounded
	Clock      func() time.Time
}

// Cache is a keyed, timestamped store with per-category expiry.
type Cache struct {
	mu         sync.RWMutex
	entries    map[entryKey]*Entry
	ttls       map[Category]time.Duration
	errorTTL   time.Duration
	maxEntries int
	now        func() time.Time

	// inflight collapses concurrent misses for the same key into one remote call
	inflight singleflight.Group
}

func NewCache(opts CacheOptions) *Cache {
	defaults := OptionsFromPolicy(config.DefaultLocationPolicy())
	ttls := make(map[Category]time.Duration, len(Categories))
	for cat, ttl := range defaults.TTLs {
		ttls[cat] = ttl
	}
	for cat, ttl := range opts.TTLs {
		if ttl > 0 {
			ttls[cat] = ttl
		}
	}

	errorTTL := opts.ErrorTTL
	if errorTTL <= 0 {
		errorTTL = defaults.ErrorTTL
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Cache{
		entries:    make(map[entryKey]*Entry),
		ttls:       ttls,
		errorTTL:   errorTTL,
		maxEntries: opts.MaxEntries,
		now:        clock,
	}
}

// OptionsFromPolicy converts the configured policy into cache options.
func OptionsFromPolicy(p config.LocationPolicy) CacheOptions {
	ttls := make(map[Category]time.Duration, len(p.TTLs))
	for name, ttl := range p.TTLs {
		if cat, ok := ParseCategory(name); ok {
			ttls[cat] = ttl
		}
	}
	return CacheOptions{TTLs: ttls, ErrorTTL: p.ErrorTTL, MaxEntries: p.MaxEntries}
}

// DefaultTTL returns the default time-to-live for category.
func (c *Cache) DefaultTTL(category Category) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ttls[category]
}

// ErrorTTL is the lifetime of cached failures; shorter than any success TTL.
func (c *Cache) ErrorTTL() time.Duration {
	return c.errorTTL
}

// Get returns the payload only if the entry has not expired.
func (c *Cache) Get(category Category, key string) (interface{}, bool) {
	k := entryKey{category, key}
	now := c.now()

	c.mu.RLock()
	entry, ok := c.entries[k]
	c.mu.RUnlock()

	if !ok {
		metrics.LocationCacheLookups.WithLabelValues(string(category), "miss").Inc()
		return nil, false
	}
	if !entry.fresh(now) {
		c.mu.Lock()
		// the entry may have been replaced while unlocked
		if current, ok := c.entries[k]; ok && current == entry {
			delete(c.entries, k)
			metrics.LocationCacheEvictions.WithLabelValues("expired").Inc()
			metrics.LocationCacheEntries.Set(float64(len(c.entries)))
		}
		c.mu.Unlock()
		metrics.LocationCacheLookups.WithLabelValues(string(category), "miss").Inc()
		return nil, false
	}

	metrics.LocationCacheLookups.WithLabelValues(string(category), "hit").Inc()
	return entry.Payload, true
}

// Set stores payload with the category default TTL. A category without one is kept
// for the error TTL.
func (c *Cache) Set(category Category, key string, payload interface{}) {
	ttl := c.DefaultTTL(category)
	if ttl <= 0 {
		logger.GetLogger("location").Debugf("no TTL configured for category %q, keeping %q for %s", category, key, c.errorTTL)
		ttl = c.errorTTL
	}
	c.SetWithTTL(category, key, payload, ttl)
}

// SetWithTTL stores payload with an explicit TTL, replacing any entry for the key.
func (c *Cache) SetWithTTL(category Category, key string, payload interface{}, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	k := entryKey{category, key}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[k]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.pruneLocked(now)
		for len(c.entries) >= c.maxEntries {
			c.evictOldestLocked()
		}
	}

	c.entries[k] = &Entry{
		Category: category,
		Key:      key,
		Payload:  payload,
		StoredAt: now,
		TTL:      ttl,
	}
	metrics.LocationCacheEntries.Set(float64(len(c.entries)))
}

// Delete removes one entry.
func (c *Cache) Delete(category Category, key string) {
	c.mu.Lock()
	delete(c.entries, entryKey{category, key})
	metrics.LocationCacheEntries.Set(float64(len(c.entries)))
	c.mu.Unlock()
}

// ClearCategory removes every entry of category.
func (c *Cache) ClearCategory(category Category) {
	c.mu.Lock()
	for k := range c.entries {
		if k.category == category {
			delete(c.entries, k)
		}
	}
	metrics.LocationCacheEntries.Set(float64(len(c.entries)))
	c.mu.Unlock()
}

// Clear removes everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[entryKey]*Entry)
	metrics.LocationCacheEntries.Set(0)
	c.mu.Unlock()
}

// Prune drops expired entries and returns how many were removed.
func (c *Cache) Prune() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := c.pruneLocked(now)
	metrics.LocationCacheEntries.Set(float64(len(c.entries)))
	return removed
}

func (c *Cache) pruneLocked(now time.Time) int {
	removed := 0
	for k, e := range c.entries {
		if !e.fresh(now) {
			delete(c.entries, k)
			removed++
		}
	}
	if removed > 0 {
		metrics.LocationCacheEvictions.WithLabelValues("expired").Add(float64(removed))
	}
	return removed
}

func (c *Cache) evictOldestLocked() {
	var oldestKey entryKey
	var oldest *Entry
	for k, e := range c.entries {
		if oldest == nil || e.StoredAt.Before(oldest.StoredAt) {
			oldestKey, oldest = k, e
		}
	}
	if oldest == nil {
		return
	}
	delete(c.entries, oldestKey)
	metrics.LocationCacheEvictions.WithLabelValues("capacity").Inc()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats counts stored entries per category.
func (c *Cache) Stats() map[Category]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := make(map[Category]int, len(Categories))
	for _, cat := range Categories {
		stats[cat] = 0
	}
	for k := range c.entries {
		stats[k.category]++
	}
	return stats
}
