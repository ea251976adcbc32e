package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"shipdesk/internal/util"
	"shipdesk/models"
	"time"

	"github.com/mattn/go-sqlite3"
)

// SQLiteEventLogRepository implements the EventLogRepository interface for SQLite
type SQLiteEventLogRepository struct {
	db *sql.DB
}

// NewSQLiteEventLogRepository creates a new SQLiteEventLogRepository
func NewSQLiteEventLogRepository(db *sql.DB) *SQLiteEventLogRepository {
	return &SQLiteEventLogRepository{db: db}
}

// Close closes the database connection
func (r *SQLiteEventLogRepository) Close() error {
	return r.db.Close()
}

// Create creates a new event log
func (r *SQLiteEventLogRepository) Create(ctx context.Context, eventLog *models.EventLog) error {
	now := time.Now()
	if eventLog.CreatedAt == nil {
		eventLog.CreatedAt = &now
	}
	if eventLog.UpdatedAt == nil {
		eventLog.UpdatedAt = &now
	}

	query := `INSERT INTO event_logs (type, description, username, reference, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	return util.RetryOnLock(func() error {
		result, err := r.db.ExecContext(ctx, query,
			eventLog.Type, eventLog.Description, eventLog.Username, nullableString(eventLog.Reference),
			eventLog.CreatedAt, eventLog.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("error inserting event log: %w", err)
		}
		if id, err := result.LastInsertId(); err == nil {
			eventLog.ID = id
		}
		return nil
	})
}

// FindLatest finds the latest event logs of every operator
func (r *SQLiteEventLogRepository) FindLatest(ctx context.Context, limit int) ([]*models.EventLog, error) {
	query := `SELECT id, type, description, username, reference, created_at, updated_at
			  FROM event_logs ORDER BY created_at DESC, id DESC LIMIT ?`
	return r.query(ctx, query, limit)
}

// FindLatestByUsername finds the latest event logs of one operator
func (r *SQLiteEventLogRepository) FindLatestByUsername(ctx context.Context, username string, limit int) ([]*models.EventLog, error) {
	query := `SELECT id, type, description, username, reference, created_at, updated_at
			  FROM event_logs WHERE username = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	return r.query(ctx, query, username, limit)
}

func (r *SQLiteEventLogRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.EventLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying event logs: %w", err)
	}
	defer rows.Close()

	logs := []*models.EventLog{}
	for rows.Next() {
		var log models.EventLog
		var reference sql.NullString
		var createdAt, updatedAt sql.NullTime

		err := rows.Scan(&log.ID, &log.Type, &log.Description, &log.Username, &reference, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning event log: %w", err)
		}

		if reference.Valid {
			log.Reference = &reference.String
		}
		if createdAt.Valid {
			log.CreatedAt = &createdAt.Time
		}
		if updatedAt.Valid {
			log.UpdatedAt = &updatedAt.Time
		}

		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

// SQLiteAccountRepository implements the AccountRepository interface for SQLite
type SQLiteAccountRepository struct {
	db *sql.DB
}

// NewSQLiteAccountRepository creates a new SQLiteAccountRepository
func NewSQLiteAccountRepository(db *sql.DB) *SQLiteAccountRepository {
	return &SQLiteAccountRepository{db: db}
}

// Close closes the database connection
func (r *SQLiteAccountRepository) Close() error {
	return r.db.Close()
}

// Create stores a new account number; an existing number for the same operator is ErrDuplicate
func (r *SQLiteAccountRepository) Create(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = GenerateID()
	}
	if account.CreatedAt == nil {
		now := time.Now()
		account.CreatedAt = &now
	}

	query := `INSERT INTO accounts (id, username, number, label, created_at) VALUES (?, ?, ?, ?, ?)`

	return util.RetryOnLock(func() error {
		_, err := r.db.ExecContext(ctx, query,
			account.ID, account.Username, account.Number, account.Label, account.CreatedAt,
		)
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("error inserting account: %w", err)
		}
		return nil
	})
}

// FindAllByUsername lists the operator's accounts in the order they were added
func (r *SQLiteAccountRepository) FindAllByUsername(ctx context.Context, username string) ([]*models.Account, error) {
	query := `SELECT id, username, number, label, created_at FROM accounts
			  WHERE username = ? ORDER BY created_at, number`

	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("error querying accounts: %w", err)
	}
	defer rows.Close()

	accounts := []*models.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// FindByNumber returns ErrNotFound when the operator has no such account
func (r *SQLiteAccountRepository) FindByNumber(ctx context.Context, username, number string) (*models.Account, error) {
	query := `SELECT id, username, number, label, created_at FROM accounts
			  WHERE username = ? AND number = ?`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, username, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return account, err
}

// Delete removes an account; deleting an unknown account is ErrNotFound
func (r *SQLiteAccountRepository) Delete(ctx context.Context, username, number string) error {
	return util.RetryOnLock(func() error {
		result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE username = ? AND number = ?`, username, number)
		if err != nil {
			return fmt.Errorf("error deleting account: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	var label sql.NullString
	var createdAt sql.NullTime

	if err := row.Scan(&account.ID, &account.Username, &account.Number, &label, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("error scanning account: %w", err)
	}
	account.Label = label.String
	if createdAt.Valid {
		account.CreatedAt = &createdAt.Time
	}
	return &account, nil
}

// SQLiteSettingsRepository implements the SettingsRepository interface for SQLite
type SQLiteSettingsRepository struct {
	db *sql.DB
}

// NewSQLiteSettingsRepository creates a new SQLiteSettingsRepository
func NewSQLiteSettingsRepository(db *sql.DB) *SQLiteSettingsRepository {
	return &SQLiteSettingsRepository{db: db}
}

// Close closes the database connection
func (r *SQLiteSettingsRepository) Close() error {
	return r.db.Close()
}

// FindByUserID finds settings by user ID
func (r *SQLiteSettingsRepository) FindByUserID(ctx context.Context, userID string) (*models.Settings, error) {
	query := `SELECT id, user_id, selected_account, default_country, units, created_at, updated_at
			  FROM settings WHERE user_id = ?`
	row := r.db.QueryRowContext(ctx, query, userID)

	var settings models.Settings
	var selectedAccount, defaultCountry sql.NullString
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(&settings.ID, &settings.UserID, &selectedAccount, &defaultCountry, &settings.Units,
		&createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No settings found for this user
		}
		return nil, fmt.Errorf("error scanning settings: %w", err)
	}

	settings.SelectedAccount = selectedAccount.String
	settings.DefaultCountry = defaultCountry.String
	if createdAt.Valid {
		settings.CreatedAt = &createdAt.Time
	}
	if updatedAt.Valid {
		settings.UpdatedAt = &updatedAt.Time
	}

	return &settings, nil
}

// Create creates new settings
func (r *SQLiteSettingsRepository) Create(ctx context.Context, settings *models.Settings) error {
	query := `INSERT INTO settings (id, user_id, selected_account, default_country, units, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	return util.RetryOnLock(func() error {
		_, err := r.db.ExecContext(ctx, query, settings.ID, settings.UserID, settings.SelectedAccount,
			settings.DefaultCountry, settings.Units, settings.CreatedAt, settings.UpdatedAt)
		if err != nil {
			return fmt.Errorf("error creating settings: %w", err)
		}
		return nil
	})
}

// Update updates existing settings
func (r *SQLiteSettingsRepository) Update(ctx context.Context, settings *models.Settings) error {
	query := `UPDATE settings SET selected_account = ?, default_country = ?, units = ?, updated_at = ?
			  WHERE id = ?`

	return util.RetryOnLock(func() error {
		_, err := r.db.ExecContext(ctx, query, settings.SelectedAccount, settings.DefaultCountry,
			settings.Units, settings.UpdatedAt, settings.ID)
		if err != nil {
			return fmt.Errorf("error updating settings: %w", err)
		}
		return nil
	})
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}
