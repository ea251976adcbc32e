package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"shipdesk/internal/carrier"
	"shipdesk/internal/config"
	"shipdesk/internal/eventlog"
	"shipdesk/internal/location"
	"shipdesk/internal/session"
	"shipdesk/internal/testutils"
	"shipdesk/models"
)

func TestDescribeSelection(t *testing.T) {
	assert.Equal(t, "origin: AE / Dubai / DXB / 00000",
		describeSelection("origin", location.Selection{CountryCode: "AE", City: "Dubai", ServiceAreaCode: "DXB", PostalCode: "00000"}))
	assert.Equal(t, "destination: US / NY / New York / 10001",
		describeSelection("destination", location.Selection{CountryCode: "US", StateCode: "NY", City: "New York", PostalCode: "10001"}))
}

func TestPolicyCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("error_ttl: 1m\nlarge_countries: [US]\n"), 0o600))
	t.Setenv("LOCATION_POLICY_FILE", path)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"policy"})
	require.NoError(t, cmd.Execute())

	var printed config.LocationPolicy
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &printed))
	assert.Equal(t, time.Minute, printed.ErrorTTL)
	assert.Equal(t, []string{"US"}, printed.LargeCountries)
	assert.Equal(t, config.DefaultLocationPolicy().MaxEntries, printed.MaxEntries)
}

func TestPersistAndWarmLocationCache(t *testing.T) {
	factory := testutils.SetupTestRepositoryFactory(t)
	repo := factory.NewLocationSnapshotRepository()
	dbManager := testutils.SetupTestDBManager(t)

	cache := location.NewCache(location.CacheOptions{})
	cache.Set(location.CategoryCountries, "all", location.Result[[]location.Country]{
		Success: true,
		Data:    []location.Country{{Code: "AE", Name: "United Arab Emirates"}},
	})
	cache.Set(location.CategoryStates, "US", location.Result[[]location.State]{Success: false, Error: "down"})
	cache.Set(location.CategoryCities, "AE", location.Result[[]location.City]{Success: true})

	persistLocationCache(cache, repo, dbManager)

	restarted := location.NewCache(location.CacheOptions{})
	warmLocationCache(restarted, repo)

	assert.Equal(t, 1, restarted.Len(), "only successful lookups of persistent categories survive")
	payload, ok := restarted.Get(location.CategoryCountries, "all")
	require.True(t, ok)
	countries := payload.(location.Result[[]location.Country])
	assert.Equal(t, "AE", countries.Data[0].Code)
}

func TestRunMaintenance(t *testing.T) {
	factory := testutils.SetupTestRepositoryFactory(t)
	dbManager := testutils.SetupTestDBManager(t)
	events := eventlog.NewEventLogService(factory.NewEventLogRepository(), dbManager)

	cache := location.NewCache(location.CacheOptions{})
	sessions := session.NewManager(carrier.NewClient("http://127.0.0.1:1", time.Second), cache,
		location.PolicyFromConfig(config.DefaultLocationPolicy()))
	sessions.Create(&carrier.LoginResponse{Token: "tok", User: carrier.Profile{Username: "ada"}})

	done := make(chan bool)
	stopped := make(chan struct{})
	go func() {
		runMaintenance(&maintenance{
			cache:        cache,
			sessions:     sessions,
			snapshots:    factory.NewLocationSnapshotRepository(),
			dbManager:    dbManager,
			events:       events,
			pruneEvery:   10 * time.Millisecond,
			idleTimeout:  time.Nanosecond,
			persistEvery: time.Hour,
		}, done)
		close(stopped)
	}()

	assert.Eventually(t, func() bool { return sessions.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	close(done)
	<-stopped

	logs, err := events.GetAllByUsername(context.Background(), "ada", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.SessionExpired, logs[0].Type)
}
