package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryOnLock(t *testing.T) {
	t.Run("retries lock errors until success", func(t *testing.T) {
		calls := 0
		err := RetryOnLock(func() error {
			calls++
			if calls < 2 {
				return errors.New("database is locked")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("returns other errors immediately", func(t *testing.T) {
		calls := 0
		boom := errors.New("constraint failed")
		err := RetryOnLock(func() error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		calls := 0
		err := RetryOnLock(func() error {
			calls++
			return fmt.Errorf("insert: %w", sqlite3.Error{Code: sqlite3.ErrBusy})
		})
		require.Error(t, err)
		assert.Equal(t, lockRetries, calls)
	})
}

func TestRetryOnLockWithResult(t *testing.T) {
	calls := 0
	got, err := RetryOnLockWithResult(func() (int, error) {
		calls++
		if calls == 1 {
			return 0, sqlite3.Error{Code: sqlite3.ErrLocked}
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestIsLockError(t *testing.T) {
	assert.False(t, IsLockError(nil))
	assert.False(t, IsLockError(errors.New("no such table")))
	assert.True(t, IsLockError(errors.New("database is locked")))
	assert.True(t, IsLockError(sqlite3.Error{Code: sqlite3.ErrBusy}))
}
