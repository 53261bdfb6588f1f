package models

import (
	"time"

	"github.com/google/uuid"
)

// Tier identifiers. These mirror the checkout product IDs; the engine
// only cares about the checking interval each one buys.
const (
	TierFree = "free"
	TierPlus = "plus"
	TierPro  = "pro"
)

// EntitlementPeriod is one purchased (or granted) stretch of a paid tier.
// A user may hold several overlapping periods; the effective tier is the
// one with the fastest cadence among those not yet expired. Produced by
// the checkout system, consumed read-only here.
type EntitlementPeriod struct {
	ID        int64     `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Tier      string    `json:"tier" db:"tier"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Active reports whether the period is unexpired at the given instant.
func (p *EntitlementPeriod) Active(now time.Time) bool {
	return p.ExpiresAt.After(now)
}
