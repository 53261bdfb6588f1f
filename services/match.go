package services

import "padwatch/models"

const probableThreshold = 0.70

// MatchesFields checks every alert criterion that needs nothing beyond
// the listing row itself. Stabilization is checked separately because it
// may require a registry lookup first.
func MatchesFields(a *models.Alert, l *models.Listing) bool {
	if !a.WantsNeighborhood(l.Neighborhood) {
		return false
	}
	if a.MinPrice != nil && l.Price < *a.MinPrice {
		return false
	}
	if a.MaxPrice != nil && l.Price > *a.MaxPrice {
		return false
	}
	if a.MinBeds != nil && l.Bedrooms < *a.MinBeds {
		return false
	}
	if a.MaxBeds != nil && l.Bedrooms > *a.MaxBeds {
		return false
	}
	if a.MinBaths != nil && l.Bathrooms < *a.MinBaths {
		return false
	}
	if a.NoFeeOnly && !l.NoFee {
		return false
	}
	return true
}

// MatchesStabilization applies the stabilized-only criterion. It fails
// closed: a listing the engine couldn't evaluate (unknown) never matches
// a stabilized-only alert, so users aren't notified on guesses.
func MatchesStabilization(a *models.Alert, l *models.Listing) bool {
	if !a.StabilizedOnly {
		return true
	}

	switch l.StabilizationStatus {
	case models.StabilizationConfirmed:
		return true
	case models.StabilizationProbable:
		return l.StabilizationProbability != nil && *l.StabilizationProbability >= probableThreshold
	default:
		return false
	}
}

// Matches is the full criteria check, fields plus stabilization.
func Matches(a *models.Alert, l *models.Listing) bool {
	return MatchesFields(a, l) && MatchesStabilization(a, l)
}
