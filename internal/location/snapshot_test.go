package location

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipdesk/models"
)

func TestCache_SnapshotsRoundTrip(t *testing.T) {
	clock := newFakeClock()
	cache := newTestCache(clock, CacheOptions{})

	countries := Result[[]Country]{Success: true, Data: []Country{{Code: "US", Name: "United States"}}}
	cache.Set(CategoryCountries, "all", countries)
	cache.Set(CategoryStructure, "us", Result[CountryStructure]{Success: true, Data: permissiveStructure("US")})
	cache.SetWithTTL(CategoryStates, "de", Result[[]State]{Data: []State{}, Error: "down"}, time.Minute)
	cache.Set(CategoryCities, "us|ca|", Result[[]City]{Success: true, Data: []City{{Name: "Fresno"}}})

	snaps, err := cache.Snapshots(PersistentCategories...)
	require.NoError(t, err)
	require.Len(t, snaps, 2, "failures and volatile categories are not exported")

	clock.Advance(time.Hour)
	restored := newTestCache(clock, CacheOptions{})
	assert.Equal(t, 2, restored.Warm(snaps))

	got, ok := restored.Get(CategoryCountries, "all")
	require.True(t, ok)
	assert.Equal(t, countries, got)

	clock.Advance(23*time.Hour + time.Minute)
	_, ok = restored.Get(CategoryCountries, "all")
	assert.False(t, ok, "a restored entry keeps its original expiry")
}

func TestCache_WarmSkipsBadSnapshots(t *testing.T) {
	clock := newFakeClock()
	cache := newTestCache(clock, CacheOptions{})
	now := clock.Now()

	loaded := cache.Warm([]*models.LocationSnapshot{
		{Category: "unknown", Key: "x", Payload: []byte(`{}`), StoredAt: now, ExpiresAt: now.Add(time.Hour)},
		{Category: string(CategoryStates), Key: "us", Payload: []byte(`{"success":true,"data":[]}`), StoredAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{Category: string(CategoryStates), Key: "de", Payload: []byte(`not json`), StoredAt: now, ExpiresAt: now.Add(time.Hour)},
		{Category: string(CategoryStates), Key: "fr", Payload: []byte(`{"success":true,"data":[{"code":"IDF","name":"Ile-de-France"}]}`), StoredAt: now, ExpiresAt: now.Add(time.Hour)},
	})

	assert.Equal(t, 1, loaded)
	got, ok := cache.Get(CategoryStates, "fr")
	require.True(t, ok)
	assert.Equal(t, []State{{Code: "IDF", Name: "Ile-de-France"}}, got.(Result[[]State]).Data)
}

func TestCache_WarmKeepsNewerEntries(t *testing.T) {
	clock := newFakeClock()
	cache := newTestCache(clock, CacheOptions{})
	now := clock.Now()
	live := Result[[]State]{Success: true, Data: []State{{Code: "BY", Name: "Bayern"}}}
	cache.Set(CategoryStates, "de", live)

	loaded := cache.Warm([]*models.LocationSnapshot{{
		Category: string(CategoryStates), Key: "de",
		Payload:  []byte(`{"success":true,"data":[]}`),
		StoredAt: now.Add(-time.Minute), ExpiresAt: now.Add(time.Hour),
	}})

	assert.Zero(t, loaded)
	got, _ := cache.Get(CategoryStates, "de")
	assert.Equal(t, live, got)
}

func TestCache_WarmCountsOnlyRestoredEntries(t *testing.T) {
	clock := newFakeClock()
	cache := newTestCache(clock, CacheOptions{MaxEntries: 2})
	now := clock.Now()
	cache.Set(CategoryStates, "de", Result[[]State]{Success: true})

	snapshot := func(key string) *models.LocationSnapshot {
		return &models.LocationSnapshot{
			Category: string(CategoryStates), Key: key,
			Payload:  []byte(`{"success":true,"data":[]}`),
			StoredAt: now.Add(-time.Minute), ExpiresAt: now.Add(time.Hour),
		}
	}
	loaded := cache.Warm([]*models.LocationSnapshot{snapshot("de"), snapshot("fr"), snapshot("it")})

	assert.Equal(t, 1, loaded, "existing key and the snapshot past capacity are not counted")
	assert.Equal(t, 2, cache.Len())
	_, ok := cache.Get(CategoryStates, "fr")
	assert.True(t, ok)
}
