package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Alert is a user's saved rental search plus notification preferences.
// The engine only ever mutates LastChecked; everything else belongs to
// the web app that created the alert.
type Alert struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	Name           string     `json:"name" db:"name"`
	Neighborhoods  []string   `json:"neighborhoods" db:"neighborhoods"`
	MinPrice       *int       `json:"min_price" db:"min_price"`
	MaxPrice       *int       `json:"max_price" db:"max_price"`
	MinBeds        *int       `json:"min_beds" db:"min_beds"`
	MaxBeds        *int       `json:"max_beds" db:"max_beds"`
	MinBaths       *float64   `json:"min_baths" db:"min_baths"`
	NoFeeOnly      bool       `json:"no_fee_only" db:"no_fee_only"`
	StabilizedOnly bool       `json:"stabilized_only" db:"stabilized_only"`
	NotifyEmail    bool       `json:"notify_email" db:"notify_email"`
	NotifySMS      bool       `json:"notify_sms" db:"notify_sms"`
	NewOnly        bool       `json:"new_only" db:"new_only"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	LastChecked    *time.Time `json:"last_checked" db:"last_checked"`
	Frequency      string     `json:"frequency" db:"frequency"` // mirrors the tier identifier
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Validate reports stored-data integrity problems. These should be
// unreachable given creation-time checks in the web app, but the engine
// refuses to process an alert that fails them.
func (a *Alert) Validate() error {
	if len(a.Neighborhoods) == 0 {
		return fmt.Errorf("alert %s: no neighborhoods", a.ID)
	}
	if !a.NotifyEmail && !a.NotifySMS {
		return fmt.Errorf("alert %s: no notification channel enabled", a.ID)
	}
	if a.MinPrice != nil && a.MaxPrice != nil && *a.MinPrice > *a.MaxPrice {
		return fmt.Errorf("alert %s: min_price > max_price", a.ID)
	}
	if a.MinBeds != nil && a.MaxBeds != nil && *a.MinBeds > *a.MaxBeds {
		return fmt.Errorf("alert %s: min_beds > max_beds", a.ID)
	}
	return nil
}

// WantsNeighborhood reports whether the alert covers the given neighborhood.
func (a *Alert) WantsNeighborhood(name string) bool {
	for _, n := range a.Neighborhoods {
		if n == name {
			return true
		}
	}
	return false
}

// User is the slice of the account record the engine needs for dispatch.
// Owned by the web app; read-only here.
type User struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Email string    `json:"email" db:"email"`
	Phone string    `json:"phone" db:"phone"` // may be empty
}
