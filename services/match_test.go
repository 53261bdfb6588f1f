package services

import (
	"testing"

	"padwatch/models"
)

func intPtr(v int) *int             { return &v }
func float64Ptr(v float64) *float64 { return &v }

func baseListing() *models.Listing {
	return &models.Listing{
		Neighborhood: "East Village",
		Price:        3200,
		Bedrooms:     1,
		Bathrooms:    1,
		NoFee:        true,
	}
}

func baseAlert() *models.Alert {
	return &models.Alert{
		Neighborhoods: []string{"East Village", "Lower East Side"},
	}
}

func TestMatchesFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(a *models.Alert, l *models.Listing)
		want   bool
	}{
		{"no criteria beyond neighborhood", func(a *models.Alert, l *models.Listing) {}, true},
		{"wrong neighborhood", func(a *models.Alert, l *models.Listing) {
			l.Neighborhood = "Astoria"
		}, false},
		{"price within range", func(a *models.Alert, l *models.Listing) {
			a.MinPrice = intPtr(2000)
			a.MaxPrice = intPtr(3500)
		}, true},
		{"price at max boundary", func(a *models.Alert, l *models.Listing) {
			a.MaxPrice = intPtr(3200)
		}, true},
		{"price above max", func(a *models.Alert, l *models.Listing) {
			a.MaxPrice = intPtr(3000)
		}, false},
		{"price below min", func(a *models.Alert, l *models.Listing) {
			a.MinPrice = intPtr(3500)
		}, false},
		{"beds within range", func(a *models.Alert, l *models.Listing) {
			a.MinBeds = intPtr(1)
			a.MaxBeds = intPtr(2)
		}, true},
		{"studio fails min beds", func(a *models.Alert, l *models.Listing) {
			a.MinBeds = intPtr(1)
			l.Bedrooms = 0
		}, false},
		{"too many beds", func(a *models.Alert, l *models.Listing) {
			a.MaxBeds = intPtr(1)
			l.Bedrooms = 3
		}, false},
		{"baths at min", func(a *models.Alert, l *models.Listing) {
			a.MinBaths = float64Ptr(1.0)
		}, true},
		{"baths below min", func(a *models.Alert, l *models.Listing) {
			a.MinBaths = float64Ptr(1.5)
		}, false},
		{"no-fee required, listing has fee", func(a *models.Alert, l *models.Listing) {
			a.NoFeeOnly = true
			l.NoFee = false
		}, false},
		{"no-fee required, listing no-fee", func(a *models.Alert, l *models.Listing) {
			a.NoFeeOnly = true
		}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a := baseAlert()
			l := baseListing()
			c.mutate(a, l)
			if got := MatchesFields(a, l); got != c.want {
				t.Fatalf("MatchesFields = %v, want %v", got, c.want)
			}
		})
	}
}

func TestMatchesStabilization(t *testing.T) {
	cases := []struct {
		name   string
		only   bool
		status models.StabilizationStatus
		prob   *float64
		want   bool
	}{
		{"not stabilized-only ignores status", false, models.StabilizationUnknown, nil, true},
		{"confirmed passes", true, models.StabilizationConfirmed, float64Ptr(0.95), true},
		{"probable at threshold passes", true, models.StabilizationProbable, float64Ptr(0.70), true},
		{"probable above threshold passes", true, models.StabilizationProbable, float64Ptr(0.75), true},
		{"probable below threshold fails", true, models.StabilizationProbable, float64Ptr(0.60), false},
		{"probable without probability fails", true, models.StabilizationProbable, nil, false},
		{"unknown fails closed", true, models.StabilizationUnknown, nil, false},
		{"unlikely fails", true, models.StabilizationUnlikely, float64Ptr(0.05), false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a := baseAlert()
			a.StabilizedOnly = c.only
			l := baseListing()
			l.StabilizationStatus = c.status
			l.StabilizationProbability = c.prob
			if got := MatchesStabilization(a, l); got != c.want {
				t.Fatalf("MatchesStabilization = %v, want %v", got, c.want)
			}
		})
	}
}

func TestMatchesCombined(t *testing.T) {
	a := baseAlert()
	a.StabilizedOnly = true
	a.MaxPrice = intPtr(3500)

	l := baseListing()
	l.StabilizationStatus = models.StabilizationConfirmed

	if !Matches(a, l) {
		t.Fatalf("expected stabilized listing within price to match")
	}

	l.Price = 4000
	if Matches(a, l) {
		t.Fatalf("expected over-budget listing to fail even when stabilized")
	}
}
