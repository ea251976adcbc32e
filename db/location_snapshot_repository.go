package db

import (
	"context"
	"database/sql"
	"fmt"
	"shipdesk/internal/util"
	"shipdesk/models"
	"time"
)

type SQLiteLocationSnapshotRepository struct {
	db *sql.DB
}

func NewLocationSnapshotRepository(db *sql.DB) *SQLiteLocationSnapshotRepository {
	return &SQLiteLocationSnapshotRepository{db: db}
}

// Save stores a snapshot, replacing any previous one for the same category and key
func (r *SQLiteLocationSnapshotRepository) Save(ctx context.Context, snapshot *models.LocationSnapshot) error {
	query := `
		INSERT INTO location_snapshots (category, cache_key, payload, stored_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(category, cache_key) DO UPDATE SET
			payload = excluded.payload,
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at
	`

	return util.RetryOnLock(func() error {
		_, err := r.db.ExecContext(ctx, query,
			snapshot.Category, snapshot.Key, snapshot.Payload, snapshot.StoredAt, snapshot.ExpiresAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save location snapshot: %w", err)
		}
		return nil
	})
}

// FindFresh returns every snapshot that has not expired at now
func (r *SQLiteLocationSnapshotRepository) FindFresh(ctx context.Context, now time.Time) ([]*models.LocationSnapshot, error) {
	query := `
		SELECT category, cache_key, payload, stored_at, expires_at
		FROM location_snapshots
		WHERE expires_at > ?
		ORDER BY stored_at
	`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query location snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.LocationSnapshot
	for rows.Next() {
		var s models.LocationSnapshot
		if err := rows.Scan(&s.Category, &s.Key, &s.Payload, &s.StoredAt, &s.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan location snapshot: %w", err)
		}
		snapshots = append(snapshots, &s)
	}
	return snapshots, rows.Err()
}

// DeleteExpired removes expired snapshots
func (r *SQLiteLocationSnapshotRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM location_snapshots WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired location snapshots: %w", err)
	}
	return result.RowsAffected()
}

// Close is a no-op; the connection is owned by the main DB instance
func (r *SQLiteLocationSnapshotRepository) Close() error {
	return nil
}
