package models

import (
	"time"
)

// EventLog is one entry of the operator activity log
type EventLog struct {
	ID          int64         `json:"id"`
	Type        EEventLogType `json:"type"`
	Description string        `json:"description"`
	Username    string        `json:"username"`
	Reference   *string       `json:"reference,omitempty"`
	CreatedAt   *time.Time    `json:"created_at,omitempty"`
	UpdatedAt   *time.Time    `json:"updated_at,omitempty"`
}
