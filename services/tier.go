package services

import (
	"time"

	"padwatch/models"
)

// Checking cadence per tier. Unknown tiers fail closed to the slowest
// cadence rather than granting paid-level frequency.
var tierIntervals = map[string]time.Duration{
	models.TierFree: time.Hour,
	models.TierPlus: 30 * time.Minute,
	models.TierPro:  15 * time.Minute,
}

// TierInterval returns the checking interval a tier buys.
func TierInterval(tier string) time.Duration {
	if d, ok := tierIntervals[tier]; ok {
		return d
	}
	return tierIntervals[models.TierFree]
}

// EffectiveTier resolves a user's current tier from their entitlement
// periods: the fastest cadence among unexpired periods wins, free when
// none are active. Expiry needs no event; an expired period simply stops
// counting.
func EffectiveTier(periods []models.EntitlementPeriod, now time.Time) string {
	best := models.TierFree
	bestInterval := TierInterval(best)

	for i := range periods {
		p := &periods[i]
		if !p.Active(now) {
			continue
		}
		interval, ok := tierIntervals[p.Tier]
		if !ok {
			continue
		}
		if interval < bestInterval {
			best = p.Tier
			bestInterval = interval
		}
	}
	return best
}

// IsDue reports whether an alert should be checked now given its tier's
// cadence. A never-checked alert is always due.
func IsDue(alert *models.Alert, tier string, now time.Time) bool {
	if alert.LastChecked == nil {
		return true
	}
	return now.Sub(*alert.LastChecked) >= TierInterval(tier)
}
