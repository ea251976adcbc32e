package db

import (
	"context"
	"shipdesk/internal/logger"
	"shipdesk/models"
	"sync"
)

// Operation represents a database operation that needs to be executed
type Operation struct {
	Execute func() error
	Result  chan error
}

// OperationWithResult represents a database operation that returns a result
type OperationWithResult struct {
	Execute func() (interface{}, error)
	Result  chan OperationResult
}

// OperationResult contains the result of an operation
type OperationResult struct {
	Data  interface{}
	Error error
}

// DBManager serializes writes to SQLite through a single worker
type DBManager struct {
	opQueue       chan Operation
	resultOpQueue chan OperationWithResult
	stopping      chan struct{}
	done          chan struct{}
	stopOnce      sync.Once
}

// NewDBManager creates a new database manager
func NewDBManager() *DBManager {
	m := &DBManager{
		opQueue:       make(chan Operation, 100),
		resultOpQueue: make(chan OperationWithResult, 100),
		stopping:      make(chan struct{}),
		done:          make(chan struct{}),
	}

	// Start the worker goroutine
	go m.worker()
	logger.GetLogger("db").Debug("Database access manager started")

	return m
}

// worker processes operations one at a time
func (m *DBManager) worker() {
	defer close(m.done)
	for {
		select {
		case op := <-m.opQueue:
			op.Result <- op.Execute()
		case op := <-m.resultOpQueue:
			data, err := op.Execute()
			op.Result <- OperationResult{Data: data, Error: err}
		case <-m.stopping:
			return
		}
	}
}

// ExecuteOperation queues execute and waits for its result
func (m *DBManager) ExecuteOperation(execute func() error) error {
	resultChan := make(chan error, 1)
	select {
	case m.opQueue <- Operation{Execute: execute, Result: resultChan}:
	case <-m.stopping:
		return ErrManagerStopped
	}
	select {
	case err := <-resultChan:
		return err
	case <-m.done:
		return ErrManagerStopped
	}
}

// ExecuteOperationWithResult queues execute and waits for its result
func (m *DBManager) ExecuteOperationWithResult(execute func() (interface{}, error)) (interface{}, error) {
	resultChan := make(chan OperationResult, 1)
	select {
	case m.resultOpQueue <- OperationWithResult{Execute: execute, Result: resultChan}:
	case <-m.stopping:
		return nil, ErrManagerStopped
	}
	select {
	case result := <-resultChan:
		return result.Data, result.Error
	case <-m.done:
		return nil, ErrManagerStopped
	}
}

// Stop stops the worker and waits for it to exit
func (m *DBManager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopping)
	})
	<-m.done
}

// Methods for specific repository operations

// CreateEventLog serializes access to event log creation
func (m *DBManager) CreateEventLog(repo EventLogRepository, ctx context.Context, eventLog *models.EventLog) error {
	return m.ExecuteOperation(func() error {
		return repo.Create(ctx, eventLog)
	})
}

// CreateAccount serializes account creation
func (m *DBManager) CreateAccount(repo AccountRepository, ctx context.Context, account *models.Account) error {
	return m.ExecuteOperation(func() error {
		return repo.Create(ctx, account)
	})
}

// DeleteAccount serializes account removal
func (m *DBManager) DeleteAccount(repo AccountRepository, ctx context.Context, username, number string) error {
	return m.ExecuteOperation(func() error {
		return repo.Delete(ctx, username, number)
	})
}

// SaveSettings serializes settings writes
func (m *DBManager) SaveSettings(repo SettingsRepository, ctx context.Context, settings *models.Settings, create bool) error {
	return m.ExecuteOperation(func() error {
		if create {
			return repo.Create(ctx, settings)
		}
		return repo.Update(ctx, settings)
	})
}

// SaveLocationSnapshots writes a batch of snapshots in one queued operation
func (m *DBManager) SaveLocationSnapshots(repo LocationSnapshotRepository, ctx context.Context, snapshots []*models.LocationSnapshot) (int, error) {
	result, err := m.ExecuteOperationWithResult(func() (interface{}, error) {
		saved := 0
		for _, s := range snapshots {
			if err := repo.Save(ctx, s); err != nil {
				return saved, err
			}
			saved++
		}
		return saved, nil
	})
	saved, _ := result.(int)
	return saved, err
}
