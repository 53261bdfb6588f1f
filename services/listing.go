package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"padwatch/identity"
	"padwatch/models"
)

// ListingStore is the slice of storage the ingest path needs. UpsertListing
// reports whether the row was newly inserted; the stored first_seen comes
// back timestamp-truncated, so newness can't be inferred from it.
type ListingStore interface {
	UpsertListing(ctx context.Context, l *models.Listing) (inserted bool, err error)
}

// ListingService normalizes raw source payloads into listing rows.
type ListingService struct {
	store ListingStore
}

func NewListingService(store ListingStore) *ListingService {
	return &ListingService{store: store}
}

// IngestStats summarizes one source fetch's ingest.
type IngestStats struct {
	Received int
	Ingested int
	New      int
	Invalid  int
}

// Ingest persists raw listings from one source fetch. Invalid rows are
// skipped and counted, not fatal; a single bad payload item shouldn't
// sink the rest of the page.
func (s *ListingService) Ingest(ctx context.Context, sourceID string, raws []models.RawListing) ([]models.Listing, IngestStats, error) {
	now := time.Now().UTC()
	stats := IngestStats{Received: len(raws)}

	var listings []models.Listing
	for i := range raws {
		raw := &raws[i]
		if err := validateRaw(raw); err != nil {
			log.Printf("Warning: [%s] skipping listing: %v", sourceID, err)
			stats.Invalid++
			continue
		}

		listing := normalize(sourceID, raw, now)
		inserted, err := s.store.UpsertListing(ctx, &listing)
		if err != nil {
			return listings, stats, fmt.Errorf("upsert listing %s/%s: %w", sourceID, raw.ExternalID, err)
		}

		if inserted {
			stats.New++
		}
		stats.Ingested++
		listings = append(listings, listing)
	}

	return listings, stats, nil
}

func validateRaw(raw *models.RawListing) error {
	if raw.ExternalID == "" {
		return fmt.Errorf("missing external ID")
	}
	if raw.Address == "" {
		return fmt.Errorf("listing %s: missing address", raw.ExternalID)
	}
	if raw.Price <= 0 {
		return fmt.Errorf("listing %s: non-positive price %d", raw.ExternalID, raw.Price)
	}
	return nil
}

func normalize(sourceID string, raw *models.RawListing, now time.Time) models.Listing {
	listing := models.Listing{
		ID:                  uuid.New(),
		Source:              sourceID,
		ExternalID:          raw.ExternalID,
		Fingerprint:         identity.Fingerprint(raw),
		Address:             raw.Address,
		Unit:                raw.Unit,
		Neighborhood:        raw.Neighborhood,
		Price:               raw.Price,
		Bedrooms:            raw.Bedrooms,
		Bathrooms:           raw.Bathrooms,
		NoFee:               raw.NoFee,
		URL:                 raw.URL,
		ImageURL:            raw.ImageURL,
		Lat:                 raw.Lat,
		Lng:                 raw.Lng,
		StabilizationStatus: models.StabilizationUnknown,
		FirstSeen:           now,
		LastSeen:            now,
		IsActive:            true,
	}
	if raw.SqFt > 0 {
		sqft := raw.SqFt
		listing.SqFt = &sqft
	}
	return listing
}
