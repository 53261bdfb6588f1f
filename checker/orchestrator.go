package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"padwatch/buildings"
	"padwatch/models"
	"padwatch/services"
	"padwatch/sources"
)

// Store is the slice of the domain store the checker needs.
type Store interface {
	ListActiveAlerts(ctx context.Context) ([]models.Alert, error)
	GetAlertByID(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	ClaimAlertCheck(ctx context.Context, id uuid.UUID, prev *time.Time, now time.Time) (bool, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetActiveEntitlements(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.EntitlementPeriod, error)
	HasNotified(ctx context.Context, alertID, listingID uuid.UUID) (bool, error)
	MarkNotified(ctx context.Context, rec *models.NotificationRecord) (bool, error)
	UpdateListingStabilization(ctx context.Context, id uuid.UUID, status models.StabilizationStatus, probability *float64, buildingID *string, checkedAt time.Time) error
	CreateCheckRun(ctx context.Context, run *models.CheckRun) error
	UpdateCheckRun(ctx context.Context, run *models.CheckRun) error
	CreateCheckLog(ctx context.Context, l *models.CheckLog) error
}

// OpsStore records run history and per-source health locally.
type OpsStore interface {
	RecordSourceFetch(sourceID string, listings int, fetchErr error) error
	GetSourceFailureRate(sourceID string) (float64, error)
	SaveRunSummary(runID int64, startedAt time.Time, finishedAt *time.Time, status models.RunStatus, stats json.RawMessage) error
}

// Source is one configured listing feed, already bound to its handler.
type Source interface {
	ID() string
	// AreaFor translates a canonical neighborhood to the source's own
	// area ID; false means the source doesn't cover that neighborhood.
	AreaFor(neighborhood string) (string, bool)
	Fetch(ctx context.Context, area sources.Area) ([]models.RawListing, error)
}

type Ingester interface {
	Ingest(ctx context.Context, sourceID string, raws []models.RawListing) ([]models.Listing, services.IngestStats, error)
}

type Resolver interface {
	Resolve(ctx context.Context, lat, lng float64) (*models.BuildingRecord, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, alert *models.Alert, user *models.User, listing *models.Listing) models.DispatchOutcome
}

// Checker runs the full alert pipeline: due-ness, fetch, ingest, match,
// stabilization enrichment, dispatch, dedup.
type Checker struct {
	store       Store
	ops         OpsStore
	sources     []Source
	ingester    Ingester
	resolver    Resolver
	dispatcher  Dispatcher
	concurrency int
	runBudget   time.Duration
}

func New(store Store, ops OpsStore, srcs []Source, ingester Ingester, resolver Resolver, dispatcher Dispatcher, concurrency int, runBudget time.Duration) *Checker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Checker{
		store:       store,
		ops:         ops,
		sources:     srcs,
		ingester:    ingester,
		resolver:    resolver,
		dispatcher:  dispatcher,
		concurrency: concurrency,
		runBudget:   runBudget,
	}
}

// Run executes one full check pass over every active alert and always
// returns stats, even when the pass itself failed to start.
func (c *Checker) Run(ctx context.Context) *models.RunStats {
	stats := &models.RunStats{}
	started := time.Now().UTC()

	if c.runBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.runBudget)
		defer cancel()
	}

	run := &models.CheckRun{StartedAt: started, Status: models.RunStatusRunning}
	if err := c.store.CreateCheckRun(ctx, run); err != nil {
		log.Printf("Warning: failed to create check run record: %v", err)
	}

	alerts, err := c.store.ListActiveAlerts(ctx)
	if err != nil {
		stats.AddError(fmt.Sprintf("list alerts: %v", err))
		c.finishRun(ctx, run, stats, models.RunStatusFailed)
		return stats
	}

	log.Printf("Check run %d: %d active alerts", run.ID, len(alerts))

	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup
	for i := range alerts {
		alert := alerts[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			c.checkAlert(ctx, &alert, stats, false)
		}()
	}
	wg.Wait()

	status := models.RunStatusCompleted
	if ctx.Err() != nil {
		stats.AddError(fmt.Sprintf("run budget exceeded: %v", ctx.Err()))
		status = models.RunStatusFailed
	}
	c.finishRun(context.WithoutCancel(ctx), run, stats, status)

	snap := stats.Snapshot()
	log.Printf("Check run %d done: %d processed, %d skipped, %d fetched, %d matched, %d sent, %d errors",
		run.ID, snap.AlertsProcessed, snap.AlertsSkipped, snap.ListingsFetched,
		snap.ListingsMatched, snap.NotificationsSent, snap.Errors)

	return stats
}

func (c *Checker) finishRun(ctx context.Context, run *models.CheckRun, stats *models.RunStats, status models.RunStatus) {
	finished := time.Now().UTC()
	snap := stats.Snapshot()

	run.FinishedAt = &finished
	run.Status = status
	run.AlertsProcessed = snap.AlertsProcessed
	run.AlertsSkipped = snap.AlertsSkipped
	run.ListingsFetched = snap.ListingsFetched
	run.ListingsMatched = snap.ListingsMatched
	run.NotificationsSent = snap.NotificationsSent
	run.ErrorsCount = snap.Errors
	if samples, err := json.Marshal(snap.ErrorSamples); err == nil {
		run.ErrorSamples = string(samples)
	}

	if err := c.store.UpdateCheckRun(ctx, run); err != nil {
		log.Printf("Warning: failed to update check run record: %v", err)
	}
	for _, sample := range snap.ErrorSamples {
		l := &models.CheckLog{
			RunID:     &run.ID,
			Timestamp: finished,
			Level:     models.LogLevelError,
			Message:   sample,
		}
		if err := c.store.CreateCheckLog(ctx, l); err != nil {
			log.Printf("Warning: failed to persist check log: %v", err)
			break
		}
	}
	if c.ops != nil {
		if err := c.ops.SaveRunSummary(run.ID, run.StartedAt, run.FinishedAt, status, stats.ToJSON()); err != nil {
			log.Printf("Warning: failed to save run summary: %v", err)
		}
	}
}

// RunAlert checks a single alert on demand, ignoring due-ness but still
// claiming it so a scheduled run can't double-process.
func (c *Checker) RunAlert(ctx context.Context, alertID uuid.UUID) *models.RunStats {
	stats := &models.RunStats{}

	alert, err := c.store.GetAlertByID(ctx, alertID)
	if err != nil {
		stats.AddError(fmt.Sprintf("alert %s: load: %v", alertID, err))
		return stats
	}
	if alert == nil {
		stats.AddError(fmt.Sprintf("alert %s: not found", alertID))
		return stats
	}
	if !alert.IsActive {
		stats.AddSkipped()
		return stats
	}

	c.checkAlert(ctx, alert, stats, true)
	return stats
}

// checkAlert runs the pipeline for a single alert. Errors on one alert
// never propagate to others; they're counted and sampled in stats.
// force skips the cadence check for on-demand runs.
func (c *Checker) checkAlert(ctx context.Context, alert *models.Alert, stats *models.RunStats, force bool) {
	if err := alert.Validate(); err != nil {
		log.Printf("Warning: skipping invalid alert: %v", err)
		stats.AddInvalid()
		return
	}

	now := time.Now().UTC()

	periods, err := c.store.GetActiveEntitlements(ctx, alert.UserID, now)
	if err != nil {
		stats.AddError(fmt.Sprintf("alert %s: entitlements: %v", alert.ID, err))
		return
	}
	tier := services.EffectiveTier(periods, now)

	if !force && !services.IsDue(alert, tier, now) {
		stats.AddSkipped()
		return
	}

	// Claim before doing any work so an overlapping run can't double-
	// process this alert. LastChecked advances at run start: a crashed
	// run costs one skipped cycle, never a duplicate notification.
	prevChecked := alert.LastChecked
	claimed, err := c.store.ClaimAlertCheck(ctx, alert.ID, prevChecked, now)
	if err != nil {
		stats.AddError(fmt.Sprintf("alert %s: claim: %v", alert.ID, err))
		return
	}
	if !claimed {
		stats.AddSkipped()
		return
	}

	listings := c.fetchListings(ctx, alert, stats)
	stats.AddProcessed()

	matched := 0
	for i := range listings {
		listing := &listings[i]
		if !services.MatchesFields(alert, listing) {
			continue
		}

		// New-only alerts ignore listings already on file before the
		// previous check; the first-ever check sees everything.
		if alert.NewOnly && prevChecked != nil && listing.FirstSeen.Before(*prevChecked) {
			continue
		}

		// Dedup applies to every alert regardless of new_only: a pair
		// that has been notified once is never re-sent.
		seen, err := c.store.HasNotified(ctx, alert.ID, listing.ID)
		if err != nil {
			stats.AddError(fmt.Sprintf("alert %s: dedup check: %v", alert.ID, err))
			continue
		}
		if seen {
			continue
		}

		c.enrichStabilization(ctx, alert, listing, stats)
		if !services.MatchesStabilization(alert, listing) {
			continue
		}

		matched++
		c.dispatch(ctx, alert, listing, now, stats)
	}
	stats.AddMatched(matched)
}

// fetchListings pulls the alert's neighborhoods from every source that
// covers them. A failing source degrades the check, it doesn't kill it.
func (c *Checker) fetchListings(ctx context.Context, alert *models.Alert, stats *models.RunStats) []models.Listing {
	var listings []models.Listing

	for _, src := range c.sources {
		var raws []models.RawListing
		var fetchErr error

		for _, neighborhood := range alert.Neighborhoods {
			areaID, ok := src.AreaFor(neighborhood)
			if !ok {
				continue
			}
			batch, err := src.Fetch(ctx, sources.Area{Neighborhood: neighborhood, AreaID: areaID})
			if err != nil {
				fetchErr = err
				stats.AddError(fmt.Sprintf("alert %s: source %s: %v", alert.ID, src.ID(), err))
				break
			}
			raws = append(raws, batch...)
		}

		if c.ops != nil {
			if err := c.ops.RecordSourceFetch(src.ID(), len(raws), fetchErr); err != nil {
				log.Printf("Warning: failed to record source stats for %s: %v", src.ID(), err)
			}
			if fetchErr != nil {
				if rate, err := c.ops.GetSourceFailureRate(src.ID()); err == nil && rate > 0.5 {
					log.Printf("Warning: source %s is failing %.0f%% of fetches", src.ID(), rate*100)
				}
			}
		}
		if len(raws) == 0 {
			continue
		}

		ingested, ingestStats, err := c.ingester.Ingest(ctx, src.ID(), raws)
		if err != nil {
			stats.AddError(fmt.Sprintf("alert %s: ingest %s: %v", alert.ID, src.ID(), err))
		}
		stats.AddFetched(ingestStats.Ingested)
		listings = append(listings, ingested...)
	}

	return listings
}

// enrichStabilization scores a listing against the building registry when
// the alert actually cares and the listing hasn't been scored yet.
func (c *Checker) enrichStabilization(ctx context.Context, alert *models.Alert, listing *models.Listing, stats *models.RunStats) {
	if !alert.StabilizedOnly {
		return
	}
	if listing.StabilizationStatus != models.StabilizationUnknown {
		return
	}
	if !listing.HasCoordinates() {
		return
	}

	building, err := c.resolver.Resolve(ctx, *listing.Lat, *listing.Lng)
	if err != nil {
		// Stays unknown and fails closed at match time; the backfill
		// worker retries later.
		stats.AddError(fmt.Sprintf("alert %s: registry lookup for %s: %v", alert.ID, listing.ID, err))
		return
	}

	status, probability := buildings.Score(building)
	checkedAt := time.Now().UTC()

	var buildingID *string
	if building != nil {
		buildingID = &building.BIN
	}
	if err := c.store.UpdateListingStabilization(ctx, listing.ID, status, probability, buildingID, checkedAt); err != nil {
		stats.AddError(fmt.Sprintf("alert %s: persist stabilization for %s: %v", alert.ID, listing.ID, err))
		return
	}

	listing.StabilizationStatus = status
	listing.StabilizationProbability = probability
	listing.StabilizationCheckedAt = &checkedAt
	listing.BuildingID = buildingID
}

func (c *Checker) dispatch(ctx context.Context, alert *models.Alert, listing *models.Listing, now time.Time, stats *models.RunStats) {
	user, err := c.store.GetUser(ctx, alert.UserID)
	if err != nil {
		stats.AddError(fmt.Sprintf("alert %s: load user: %v", alert.ID, err))
		return
	}
	if user == nil {
		stats.AddError(fmt.Sprintf("alert %s: user %s not found", alert.ID, alert.UserID))
		return
	}

	outcome := c.dispatcher.Dispatch(ctx, alert, user, listing)

	if !outcome.Attempted() {
		// Every enabled channel was skipped (no contact info or channel
		// disabled). Don't record the pair: when the user fixes their
		// contact details the listing can still go out.
		stats.AddNoContact()
		return
	}

	rec := &models.NotificationRecord{
		AlertID:   alert.ID,
		ListingID: listing.ID,
		Channels:  outcome.ChannelsSummary(),
		SentAt:    now,
	}
	if _, err := c.store.MarkNotified(ctx, rec); err != nil {
		stats.AddError(fmt.Sprintf("alert %s: mark notified: %v", alert.ID, err))
	}

	if outcome.Sent() {
		stats.AddSent()
	} else {
		stats.AddDispatchFailed()
	}
}
