package db

import (
	"context"
	"database/sql"
	"errors"
	"shipdesk/models"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicate      = errors.New("record already exists")
	ErrManagerStopped = errors.New("database manager stopped")
)

// Repository defines a common interface for all repositories
type Repository interface {
	Close() error
}

// EventLogRepository defines the interface for event log operations
type EventLogRepository interface {
	Repository
	Create(ctx context.Context, eventLog *models.EventLog) error
	FindLatest(ctx context.Context, limit int) ([]*models.EventLog, error)
	FindLatestByUsername(ctx context.Context, username string, limit int) ([]*models.EventLog, error)
}

// AccountRepository defines the interface for saved carrier account numbers
type AccountRepository interface {
	Repository
	Create(ctx context.Context, account *models.Account) error
	FindAllByUsername(ctx context.Context, username string) ([]*models.Account, error)
	FindByNumber(ctx context.Context, username, number string) (*models.Account, error)
	Delete(ctx context.Context, username, number string) error
}

// SettingsRepository defines the interface for operator preferences
type SettingsRepository interface {
	Repository
	FindByUserID(ctx context.Context, userID string) (*models.Settings, error)
	Create(ctx context.Context, settings *models.Settings) error
	Update(ctx context.Context, settings *models.Settings) error
}

// LocationSnapshotRepository persists long-lived location lookups across restarts
type LocationSnapshotRepository interface {
	Repository
	Save(ctx context.Context, snapshot *models.LocationSnapshot) error
	FindFresh(ctx context.Context, now time.Time) ([]*models.LocationSnapshot, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RepositoryFactory creates the SQLite repositories
type RepositoryFactory struct {
	SQLiteDB *sql.DB
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(sqliteDB *sql.DB) *RepositoryFactory {
	return &RepositoryFactory{SQLiteDB: sqliteDB}
}

func (f *RepositoryFactory) NewEventLogRepository() EventLogRepository {
	return NewSQLiteEventLogRepository(f.SQLiteDB)
}

func (f *RepositoryFactory) NewAccountRepository() AccountRepository {
	return NewSQLiteAccountRepository(f.SQLiteDB)
}

func (f *RepositoryFactory) NewSettingsRepository() SettingsRepository {
	return NewSQLiteSettingsRepository(f.SQLiteDB)
}

func (f *RepositoryFactory) NewLocationSnapshotRepository() LocationSnapshotRepository {
	return NewLocationSnapshotRepository(f.SQLiteDB)
}

// GenerateID generates a unique ID for a record
func GenerateID() string {
	return uuid.New().String()
}
