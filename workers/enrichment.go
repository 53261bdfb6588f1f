package workers

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"padwatch/buildings"
	"padwatch/models"
)

// EnrichmentStore is the storage slice the stabilization backfill needs.
type EnrichmentStore interface {
	GetStabilizationPending(ctx context.Context, limit int) ([]models.Listing, error)
	UpdateListingStabilization(ctx context.Context, id uuid.UUID, status models.StabilizationStatus, probability *float64, buildingID *string, checkedAt time.Time) error
	IncrementStabilizationAttempts(ctx context.Context, id uuid.UUID) error
}

type Resolver interface {
	Resolve(ctx context.Context, lat, lng float64) (*models.BuildingRecord, error)
}

// EnrichmentWorker backfills stabilization scores for listings the check
// pipeline hasn't evaluated yet, so stabilized-only alerts stop missing
// them. Listings that keep failing lookup are abandoned after three
// attempts; the pending query filters those out.
type EnrichmentWorker struct {
	store    EnrichmentStore
	resolver Resolver
	trigger  chan struct{}
}

func NewEnrichmentWorker(store EnrichmentStore, resolver Resolver) *EnrichmentWorker {
	return &EnrichmentWorker{
		store:    store,
		resolver: resolver,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an immediate batch outside the regular interval.
func (w *EnrichmentWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

func (w *EnrichmentWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	log.Printf("Enrichment worker started (batch: %d, interval: %s)", batchSize, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.processBatch(ctx, batchSize)
		case <-w.trigger:
			log.Println("Enrichment worker triggered manually")
			w.processBatch(ctx, batchSize)
		case <-ctx.Done():
			log.Println("Enrichment worker stopped")
			return
		}
	}
}

func (w *EnrichmentWorker) processBatch(ctx context.Context, batchSize int) {
	listings, err := w.store.GetStabilizationPending(ctx, batchSize)
	if err != nil {
		log.Printf("Enrichment: failed to load pending listings: %v", err)
		return
	}
	if len(listings) == 0 {
		return
	}

	log.Printf("Enrichment: scoring %d listings", len(listings))
	scored := 0

	for i := range listings {
		listing := &listings[i]
		if ctx.Err() != nil {
			return
		}

		building, err := w.resolver.Resolve(ctx, *listing.Lat, *listing.Lng)
		if err != nil {
			log.Printf("Warning: enrichment lookup failed for %s: %v", listing.ID, err)
			if err := w.store.IncrementStabilizationAttempts(ctx, listing.ID); err != nil {
				log.Printf("Warning: failed to bump attempts for %s: %v", listing.ID, err)
			}
			continue
		}

		status, probability := buildings.Score(building)
		var buildingID *string
		if building != nil {
			buildingID = &building.BIN
		} else {
			// A clean miss leaves the status unknown; count it as an
			// attempt so the listing doesn't cycle forever.
			if err := w.store.IncrementStabilizationAttempts(ctx, listing.ID); err != nil {
				log.Printf("Warning: failed to bump attempts for %s: %v", listing.ID, err)
			}
		}

		if err := w.store.UpdateListingStabilization(ctx, listing.ID, status, probability, buildingID, time.Now().UTC()); err != nil {
			log.Printf("Warning: failed to persist score for %s: %v", listing.ID, err)
			continue
		}
		scored++
	}

	log.Printf("Enrichment: scored %d/%d listings", scored, len(listings))
}
