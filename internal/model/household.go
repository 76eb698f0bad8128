package model

import "time"

// Household is the tenant boundary. Every other record carries its ID.
type Household struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	PasscodeHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
