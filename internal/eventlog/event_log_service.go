package eventlog

import (
	"context"
	"fmt"
	"shipdesk/db"
	"shipdesk/internal/logger"
	"shipdesk/models"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultLimit = 20
	MaxLimit     = 200
)

type EventLogService struct {
	Repository db.EventLogRepository
	dbManager  *db.DBManager
	log        *zap.SugaredLogger
}

func NewEventLogService(repo db.EventLogRepository, dbManager *db.DBManager) *EventLogService {
	return &EventLogService{
		Repository: repo,
		dbManager:  dbManager,
		log:        logger.GetLogger("eventlog"),
	}
}

// GetAll returns the newest entries of every operator
func (s *EventLogService) GetAll(limit int) ([]*models.EventLog, error) {
	return s.Repository.FindLatest(context.Background(), ClampLimit(limit))
}

// GetAllByUsername returns the newest entries of one operator
func (s *EventLogService) GetAllByUsername(ctx context.Context, username string, limit int) ([]*models.EventLog, error) {
	return s.Repository.FindLatestByUsername(ctx, username, ClampLimit(limit))
}

// CreateOne stores an entry, filling the description from the type and reference
func (s *EventLogService) CreateOne(eventLog *models.EventLog) error {
	now := time.Now()

	eventLog.CreatedAt = &now
	eventLog.UpdatedAt = &now
	if eventLog.Description == "" {
		eventLog.Description = GenerateDescription(eventLog.Type, eventLog.Reference)
	}

	return s.dbManager.CreateEventLog(s.Repository, context.Background(), eventLog)
}

// Record logs an event and only reports failures; the activity log never fails a request
func (s *EventLogService) Record(username string, eventType models.EEventLogType, reference string) {
	if s == nil {
		return
	}
	eventLog := &models.EventLog{Type: eventType, Username: username}
	if reference != "" {
		eventLog.Reference = &reference
	}
	if err := s.CreateOne(eventLog); err != nil {
		s.log.Errorf("Failed to record %q event for %s: %v", eventType, username, err)
	}
}

// ClampLimit applies the default and maximum page size
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

func GenerateDescription(eventType models.EEventLogType, reference *string) string {
	ref := "unknown"
	if reference != nil && *reference != "" {
		ref = *reference
	}

	switch eventType {
	case models.Login:
		return "Operator logged in"
	case models.Logout:
		return "Operator logged out"
	case models.SessionExpired:
		return "Carrier session expired, operator logged out"
	case models.AccountAdded:
		return fmt.Sprintf("Account [%s] added", ref)
	case models.AccountRemoved:
		return fmt.Sprintf("Account [%s] removed", ref)
	case models.RateQuoted:
		return fmt.Sprintf("Rates quoted for account [%s]", ref)
	case models.ContentTypesCompared:
		return fmt.Sprintf("Content types compared for account [%s]", ref)
	case models.ShipmentCreated:
		return fmt.Sprintf("Shipment [%s] created", ref)
	case models.PickupScheduled:
		return fmt.Sprintf("Pickup [%s] scheduled", ref)
	case models.ContactCreated:
		return fmt.Sprintf("Contact [%s] created", ref)
	case models.ContactDeleted:
		return fmt.Sprintf("Contact [%s] deleted", ref)
	case models.LocationResolved:
		return fmt.Sprintf("Location [%s] resolved", ref)
	case models.LocationCacheCleared:
		return fmt.Sprintf("Location cache [%s] cleared", ref)
	case models.PreferencesUpdated:
		return "Preferences updated"
	case models.Warning:
		return fmt.Sprintf("Warning: %s", ref)
	default:
		return "Event occurred"
	}
}
