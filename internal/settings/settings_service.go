package settings

import (
	"context"
	"errors"
	"fmt"
	"shipdesk/db"
	"shipdesk/internal/logger"
	"shipdesk/models"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrUnknownAccount = errors.New("selected account is not saved")

// AccountChecker tells whether an operator saved an account number
type AccountChecker interface {
	Exists(ctx context.Context, username, number string) (bool, error)
}

// SettingsService handles the operator preferences
type SettingsService struct {
	repo      db.SettingsRepository
	dbManager *db.DBManager
	accounts  AccountChecker
}

// NewSettingsService creates a new settings service
func NewSettingsService(repo db.SettingsRepository, dbManager *db.DBManager, accounts AccountChecker) *SettingsService {
	return &SettingsService{
		repo:      repo,
		dbManager: dbManager,
		accounts:  accounts,
	}
}

// GetUserSettings retrieves settings for a specific user
func (s *SettingsService) GetUserSettings(ctx context.Context, userID string) (*models.Settings, error) {
	settings, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// If no settings exist for user, create default settings
	if settings == nil {
		settings = models.DefaultSettings()
		settings.UserID = userID
		settings.ID = uuid.New().String()
		now := time.Now()
		settings.CreatedAt = &now
		settings.UpdatedAt = &now

		if err := s.dbManager.SaveSettings(s.repo, ctx, settings, true); err != nil {
			logger.GetLogger("settings").Warnf("Error creating default settings for user %s: %v", userID, err)
			return settings, nil // Return defaults even if save fails
		}
		return settings, nil
	}

	// the selected account may have been removed since
	if settings.SelectedAccount != "" {
		exists, err := s.accounts.Exists(ctx, userID, settings.SelectedAccount)
		if err == nil && !exists {
			settings.SelectedAccount = ""
		}
	}

	return settings, nil
}

// UpdateUserSettings applies a partial update
func (s *SettingsService) UpdateUserSettings(ctx context.Context, userID string, updates map[string]interface{}) (*models.Settings, error) {
	settings, err := s.GetUserSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	for key, value := range updates {
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be a string", key)
		}
		str = strings.TrimSpace(str)

		switch key {
		case "selected_account":
			if str != "" {
				exists, err := s.accounts.Exists(ctx, userID, str)
				if err != nil {
					return nil, err
				}
				if !exists {
					return nil, ErrUnknownAccount
				}
			}
			settings.SelectedAccount = str
		case "default_country":
			str = strings.ToUpper(str)
			if str != "" && len(str) != 2 {
				return nil, errors.New("default_country must be a two-letter ISO code")
			}
			settings.DefaultCountry = str
		case "units":
			if str != "metric" && str != "imperial" {
				return nil, errors.New("units must be metric or imperial")
			}
			settings.Units = str
		default:
			return nil, errors.New("unknown setting: " + key)
		}
	}

	now := time.Now()
	settings.UpdatedAt = &now

	if err := s.dbManager.SaveSettings(s.repo, ctx, settings, false); err != nil {
		return nil, err
	}

	return settings, nil
}
