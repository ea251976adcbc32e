package util

import (
	"errors"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"shipdesk/internal/logger"
)

const (
	lockRetries   = 3
	lockBaseDelay = 100 * time.Millisecond
)

// RetryOnLock retries operation while SQLite reports the database as busy or locked.
// Delays double each attempt: 100ms, 200ms, 400ms.
func RetryOnLock(operation func() error) error {
	_, err := RetryOnLockWithResult(func() (struct{}, error) {
		return struct{}{}, operation()
	})
	return err
}

// RetryOnLockWithResult is RetryOnLock for operations that return a value.
func RetryOnLockWithResult[T any](operation func() (T, error)) (T, error) {
	var result T
	var err error

	for i := 0; i < lockRetries; i++ {
		result, err = operation()
		if err == nil || !IsLockError(err) {
			return result, err
		}
		delay := lockBaseDelay * time.Duration(1<<i)
		logger.GetLogger("db").Warnf("Database locked, retrying in %v...", delay)
		time.Sleep(delay)
	}

	return result, err
}

// IsLockError reports whether err is a SQLite busy/locked condition.
func IsLockError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return err != nil && strings.Contains(err.Error(), "database is locked")
}
