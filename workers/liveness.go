package workers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"padwatch/models"
)

// LivenessStore is the storage slice the liveness sweep needs.
type LivenessStore interface {
	GetStaleActiveListings(ctx context.Context, staleDuration time.Duration, limit int) ([]models.Listing, error)
	MarkListingInactive(ctx context.Context, id uuid.UUID) error
	TouchListing(ctx context.Context, id uuid.UUID, seenAt time.Time) error
}

const staleAfter = 24 * time.Hour

// LivenessWorker HEAD-checks listings that haven't shown up in a fresh
// fetch lately and retires the ones whose pages are gone. Sources drop
// listings silently; this is the only delisting signal we get.
type LivenessWorker struct {
	store   LivenessStore
	client  *http.Client
	trigger chan struct{}
}

func NewLivenessWorker(store LivenessStore, client *http.Client) *LivenessWorker {
	return &LivenessWorker{
		store:   store,
		client:  client,
		trigger: make(chan struct{}, 1),
	}
}

func (w *LivenessWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

func (w *LivenessWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	log.Printf("Liveness worker started (batch: %d, interval: %s)", batchSize, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.processBatch(ctx, batchSize)
		case <-w.trigger:
			log.Println("Liveness worker triggered manually")
			w.processBatch(ctx, batchSize)
		case <-ctx.Done():
			log.Println("Liveness worker stopped")
			return
		}
	}
}

func (w *LivenessWorker) processBatch(ctx context.Context, batchSize int) {
	listings, err := w.store.GetStaleActiveListings(ctx, staleAfter, batchSize)
	if err != nil {
		log.Printf("Liveness: failed to load stale listings: %v", err)
		return
	}

	for i := range listings {
		listing := &listings[i]
		if ctx.Err() != nil {
			return
		}
		if listing.URL == "" {
			// Nothing to probe; keep cycling it.
			w.touch(ctx, listing.ID)
			continue
		}
		w.checkListing(ctx, listing)
	}
}

func (w *LivenessWorker) checkListing(ctx context.Context, listing *models.Listing) {
	req, err := http.NewRequestWithContext(ctx, "HEAD", listing.URL, nil)
	if err != nil {
		log.Printf("Liveness: bad URL for %s: %v", listing.ID, err)
		w.touch(ctx, listing.ID)
		return
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := w.client.Do(req)
	if err != nil {
		log.Printf("Liveness %s: request failed: %v", listing.ID, err)
		w.touch(ctx, listing.ID) // bump anyway to cycle through
		return
	}
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		w.touch(ctx, listing.ID)
	case http.StatusNotFound, http.StatusMovedPermanently, http.StatusFound:
		// Gone or redirected away: the listing was taken down.
		log.Printf("Liveness %s: delisted (%d)", listing.ID, resp.StatusCode)
		if err := w.store.MarkListingInactive(ctx, listing.ID); err != nil {
			log.Printf("Warning: failed to mark %s inactive: %v", listing.ID, err)
		}
	default:
		log.Printf("Liveness %s: unexpected status %d", listing.ID, resp.StatusCode)
		w.touch(ctx, listing.ID)
	}
}

func (w *LivenessWorker) touch(ctx context.Context, id uuid.UUID) {
	if err := w.store.TouchListing(ctx, id, time.Now().UTC()); err != nil {
		log.Printf("Warning: failed to touch listing %s: %v", id, err)
	}
}
