package testutils

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"shipdesk/db"
	"shipdesk/internal/config"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func SetupTestDatabase(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	testDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=10000&_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { testDB.Close() })

	require.NoError(t, db.InitializeSchema(testDB))
	return testDB
}

func SetupTestRepositoryFactory(t *testing.T) *db.RepositoryFactory {
	return db.NewRepositoryFactory(SetupTestDatabase(t))
}

// SetupTestDBManager starts a DB manager that is stopped when the test ends.
func SetupTestDBManager(t *testing.T) *db.DBManager {
	m := db.NewDBManager()
	t.Cleanup(m.Stop)
	return m
}

func GetTestConfig(carrierURL string) *config.Config {
	return &config.Config{
		Port:               "0",
		JwtKey:             []byte("test_jwt_secret_key_for_testing_only"),
		SessionSecret:      "test_session_secret_for_testing_only",
		CarrierAPIURL:      carrierURL,
		CarrierAPITimeout:  5 * time.Second,
		SQLitePath:         ":memory:",
		DatabaseName:       "shipdesk_test",
		LogLevel:           "error",
		SessionIdleTimeout: time.Hour,
		Location:           config.DefaultLocationPolicy(),
	}
}
