package location

import (
	"encoding/json"
	"fmt"
	"time"

	"shipdesk/internal/metrics"
	"shipdesk/models"
)

// PersistentCategories change rarely enough to be worth keeping across restarts.
var PersistentCategories = []Category{CategoryCountries, CategoryStructure, CategoryStates}

func (r Result[T]) succeeded() bool {
	return r.Success
}

// Snapshots exports the fresh, successful entries of categories.
func (c *Cache) Snapshots(categories ...Category) ([]*models.LocationSnapshot, error) {
	wanted := make(map[Category]bool, len(categories))
	for _, cat := range categories {
		wanted[cat] = true
	}
	now := c.now()

	c.mu.RLock()
	entries := make([]Entry, 0, len(c.entries))
	for k, e := range c.entries {
		if wanted[k.category] && e.fresh(now) {
			entries = append(entries, *e)
		}
	}
	c.mu.RUnlock()

	snapshots := make([]*models.LocationSnapshot, 0, len(entries))
	for _, e := range entries {
		res, ok := e.Payload.(interface{ succeeded() bool })
		if !ok || !res.succeeded() {
			continue
		}
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s/%s: %w", e.Category, e.Key, err)
		}
		snapshots = append(snapshots, &models.LocationSnapshot{
			Category:  string(e.Category),
			Key:       e.Key,
			Payload:   payload,
			StoredAt:  e.StoredAt,
			ExpiresAt: e.StoredAt.Add(e.TTL),
		})
	}
	return snapshots, nil
}

// Warm loads snapshots back, keeping their original store time so they expire on
// schedule. Expired or undecodable snapshots are skipped, as are keys already cached and
// snapshots that no longer fit. It returns how many were loaded.
func (c *Cache) Warm(snapshots []*models.LocationSnapshot) int {
	now := c.now()
	loaded := 0
	for _, s := range snapshots {
		category, ok := ParseCategory(s.Category)
		if !ok || !now.Before(s.ExpiresAt) {
			continue
		}
		payload, err := decodeSnapshot(category, s.Payload)
		if err != nil {
			continue
		}
		if c.restore(category, s.Key, payload, s.StoredAt, s.ExpiresAt.Sub(s.StoredAt)) {
			loaded++
		}
	}
	metrics.LocationCacheEntries.Set(float64(c.Len()))
	return loaded
}

func (c *Cache) restore(category Category, key string, payload interface{}, storedAt time.Time, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := entryKey{category, key}
	if _, exists := c.entries[k]; exists {
		return false
	}
	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		return false
	}
	c.entries[k] = &Entry{Category: category, Key: key, Payload: payload, StoredAt: storedAt, TTL: ttl}
	return true
}

func decodeSnapshot(category Category, raw []byte) (interface{}, error) {
	switch category {
	case CategoryCountries:
		return decodeAs[[]Country](raw)
	case CategoryStructure:
		return decodeAs[CountryStructure](raw)
	case CategoryStates:
		return decodeAs[[]State](raw)
	case CategoryCities:
		return decodeAs[[]City](raw)
	case CategoryServiceAreas:
		return decodeAs[[]ServiceArea](raw)
	case CategoryPostalCodes:
		return decodeAs[[]PostalCode](raw)
	}
	return nil, fmt.Errorf("unknown category %q", category)
}

func decodeAs[T any](raw []byte) (interface{}, error) {
	var res Result[T]
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, err
	}
	res.Cached = false
	return res, nil
}
