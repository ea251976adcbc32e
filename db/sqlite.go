package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"shipdesk/internal/logger"

	_ "github.com/mattn/go-sqlite3"
)

// ConnectToSQLite initializes and returns a SQLite connection
func ConnectToSQLite(dbPath string) (*sql.DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for SQLite: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	logger.GetLogger("db").Infof("Connected to SQLite database at %s", dbPath)
	return db, nil
}

// InitializeSchema creates all the necessary tables if they don't exist
func InitializeSchema(db *sql.DB) error {
	// Create event_logs table
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS event_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		description TEXT NOT NULL,
		username TEXT NOT NULL,
		reference TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create event_logs table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_event_logs_username ON event_logs(username, created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create event_logs index: %w", err)
	}

	// Create accounts table
	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		number TEXT NOT NULL,
		label TEXT,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (username, number)
	)`)
	if err != nil {
		return fmt.Errorf("failed to create accounts table: %w", err)
	}

	// Create settings table
	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS settings (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		selected_account TEXT,
		default_country TEXT,
		units TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create settings table: %w", err)
	}

	// Create location_snapshots table
	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS location_snapshots (
		category TEXT NOT NULL,
		cache_key TEXT NOT NULL,
		payload BLOB NOT NULL,
		stored_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		PRIMARY KEY (category, cache_key)
	)`)
	if err != nil {
		return fmt.Errorf("failed to create location_snapshots table: %w", err)
	}

	logger.GetLogger("db").Info("Database schema initialized successfully")
	return nil
}
