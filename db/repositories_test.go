package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipdesk/db"
	"shipdesk/internal/testutils"
	"shipdesk/models"
)

func TestLocationSnapshotRepository(t *testing.T) {
	ctx := context.Background()
	repo := testutils.SetupTestRepositoryFactory(t).NewLocationSnapshotRepository()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	snapshot := func(key, payload string, storedAt time.Time, ttl time.Duration) *models.LocationSnapshot {
		return &models.LocationSnapshot{
			Category:  "states",
			Key:       key,
			Payload:   []byte(payload),
			StoredAt:  storedAt,
			ExpiresAt: storedAt.Add(ttl),
		}
	}

	require.NoError(t, repo.Save(ctx, snapshot("AE", `{"v":1}`, now.Add(-time.Hour), 2*time.Hour)))
	require.NoError(t, repo.Save(ctx, snapshot("US", `{"v":1}`, now.Add(-3*time.Hour), 2*time.Hour)))
	// same category and key replaces the row
	require.NoError(t, repo.Save(ctx, snapshot("AE", `{"v":2}`, now.Add(-time.Minute), 2*time.Hour)))

	fresh, err := repo.FindFresh(ctx, now)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "AE", fresh[0].Key)
	assert.JSONEq(t, `{"v":2}`, string(fresh[0].Payload))
	assert.True(t, fresh[0].StoredAt.Equal(now.Add(-time.Minute)))

	deleted, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestEventLogRepository_NewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := testutils.SetupTestRepositoryFactory(t).NewEventLogRepository()
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	for i, tt := range []struct {
		username  string
		eventType models.EEventLogType
	}{
		{"ada", models.Login},
		{"bob", models.Login},
		{"ada", models.RateQuoted},
	} {
		created := base.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(ctx, &models.EventLog{
			Type:      tt.eventType,
			Username:  tt.username,
			CreatedAt: &created,
			UpdatedAt: &created,
		}))
	}

	all, err := repo.FindLatest(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ada, err := repo.FindLatestByUsername(ctx, "ada", 10)
	require.NoError(t, err)
	require.Len(t, ada, 2)
	assert.Equal(t, models.RateQuoted, ada[0].Type)
	assert.Equal(t, models.Login, ada[1].Type)

	limited, err := repo.FindLatestByUsername(ctx, "ada", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestAccountRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := testutils.SetupTestRepositoryFactory(t).NewAccountRepository()

	_, err := repo.FindByNumber(ctx, "ada", "706065602")
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "ada", "706065602"), db.ErrNotFound)

	require.NoError(t, repo.Create(ctx, &models.Account{Username: "ada", Number: "706065602"}))
	assert.ErrorIs(t, repo.Create(ctx, &models.Account{Username: "ada", Number: "706065602"}), db.ErrDuplicate)
}

func TestSettingsRepository(t *testing.T) {
	ctx := context.Background()
	repo := testutils.SetupTestRepositoryFactory(t).NewSettingsRepository()

	missing, err := repo.FindByUserID(ctx, "ada")
	require.NoError(t, err)
	assert.Nil(t, missing)

	now := time.Now()
	settings := &models.Settings{ID: db.GenerateID(), UserID: "ada", Units: "metric", CreatedAt: &now, UpdatedAt: &now}
	require.NoError(t, repo.Create(ctx, settings))

	settings.Units = "imperial"
	settings.DefaultCountry = "AE"
	require.NoError(t, repo.Update(ctx, settings))

	stored, err := repo.FindByUserID(ctx, "ada")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "imperial", stored.Units)
	assert.Equal(t, "AE", stored.DefaultCountry)
}
