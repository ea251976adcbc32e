package models

import "time"

// Account is a carrier account number saved by an operator
type Account struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Number    string     `json:"number"`
	Label     string     `json:"label,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}
