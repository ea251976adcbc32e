package models

import (
	"time"
)

// LocationSnapshot stores a cached location lookup so the cache survives restarts
type LocationSnapshot struct {
	Category  string    `db:"category" json:"category"`
	Key       string    `db:"cache_key" json:"key"`
	Payload   []byte    `db:"payload" json:"payload"`
	StoredAt  time.Time `db:"stored_at" json:"stored_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}
