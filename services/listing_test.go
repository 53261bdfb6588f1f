package services

import (
	"context"
	"testing"
	"time"

	"padwatch/models"
)

// fakeListingStore upserts in memory, keyed like the real unique index.
// Timestamps round-trip truncated to microseconds, matching timestamptz
// precision.
type fakeListingStore struct {
	rows map[string]*models.Listing
}

func newFakeListingStore() *fakeListingStore {
	return &fakeListingStore{rows: make(map[string]*models.Listing)}
}

func (f *fakeListingStore) UpsertListing(_ context.Context, l *models.Listing) (bool, error) {
	key := l.Source + "/" + l.ExternalID
	if existing, ok := f.rows[key]; ok {
		l.ID = existing.ID
		l.FirstSeen = existing.FirstSeen
		l.StabilizationStatus = existing.StabilizationStatus
		l.StabilizationProbability = existing.StabilizationProbability
		existing.Price = l.Price
		existing.LastSeen = l.LastSeen
		return false, nil
	}
	stored := *l
	stored.FirstSeen = stored.FirstSeen.Truncate(time.Microsecond)
	stored.LastSeen = stored.LastSeen.Truncate(time.Microsecond)
	f.rows[key] = &stored
	l.FirstSeen = stored.FirstSeen
	l.LastSeen = stored.LastSeen
	return true, nil
}

func TestIngest(t *testing.T) {
	store := newFakeListingStore()
	svc := NewListingService(store)

	raws := []models.RawListing{
		{ExternalID: "a1", Address: "339 East 5th Street", Unit: "2F", Price: 3200, Bedrooms: 1, Bathrooms: 1, SqFt: 550},
		{ExternalID: "", Address: "somewhere", Price: 2000},       // no external ID
		{ExternalID: "a2", Address: "", Price: 2500},              // no address
		{ExternalID: "a3", Address: "117 Avenue C", Price: 0},     // no price
		{ExternalID: "a4", Address: "117 Avenue C", Price: 4150, Bedrooms: 2, Bathrooms: 1.5},
	}

	listings, stats, err := svc.Ingest(context.Background(), "streeteasy", raws)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if stats.Received != 5 {
		t.Fatalf("expected 5 received, got %d", stats.Received)
	}
	if stats.Invalid != 3 {
		t.Fatalf("expected 3 invalid, got %d", stats.Invalid)
	}
	if stats.Ingested != 2 || stats.New != 2 {
		t.Fatalf("expected 2 ingested and new, got %d/%d", stats.Ingested, stats.New)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}

	first := listings[0]
	if first.Source != "streeteasy" {
		t.Fatalf("expected source streeteasy, got %s", first.Source)
	}
	if first.Fingerprint == "" {
		t.Fatalf("expected fingerprint to be set")
	}
	if first.StabilizationStatus != models.StabilizationUnknown {
		t.Fatalf("expected new listing to start unknown, got %s", first.StabilizationStatus)
	}
	if first.SqFt == nil || *first.SqFt != 550 {
		t.Fatalf("expected sqft 550, got %v", first.SqFt)
	}
	if listings[1].SqFt != nil {
		t.Fatalf("expected nil sqft when source omits it")
	}
}

func TestIngestReobservation(t *testing.T) {
	store := newFakeListingStore()
	svc := NewListingService(store)

	raw := models.RawListing{ExternalID: "a1", Address: "339 East 5th Street", Price: 3200, Bedrooms: 1, Bathrooms: 1}

	firstPass, _, err := svc.Ingest(context.Background(), "streeteasy", []models.RawListing{raw})
	if err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}

	time.Sleep(2 * time.Millisecond)

	raw.Price = 3300
	secondPass, stats, err := svc.Ingest(context.Background(), "streeteasy", []models.RawListing{raw})
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if stats.New != 0 {
		t.Fatalf("expected reobservation not to count as new, got %d", stats.New)
	}
	if secondPass[0].ID != firstPass[0].ID {
		t.Fatalf("expected stable listing identity across observations")
	}
	if !secondPass[0].FirstSeen.Equal(firstPass[0].FirstSeen) {
		t.Fatalf("expected first_seen preserved on reobservation")
	}
}
