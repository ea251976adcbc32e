package models

import (
	"time"
)

// Settings holds the per-operator console preferences
type Settings struct {
	ID              string     `json:"id" db:"id"`
	UserID          string     `json:"user_id" db:"user_id"`
	SelectedAccount string     `json:"selected_account" db:"selected_account"`
	DefaultCountry  string     `json:"default_country" db:"default_country"`
	Units           string     `json:"units" db:"units"`
	CreatedAt       *time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultSettings returns default settings for new users
func DefaultSettings() *Settings {
	return &Settings{
		Units: "metric",
	}
}
