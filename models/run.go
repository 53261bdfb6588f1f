package models

import (
	"encoding/json"
	"sync"
	"time"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// CheckRun is one execution record of the alert-checking engine.
type CheckRun struct {
	ID                int64      `json:"id" db:"id"`
	StartedAt         time.Time  `json:"started_at" db:"started_at"`
	FinishedAt        *time.Time `json:"finished_at" db:"finished_at"`
	Status            RunStatus  `json:"status" db:"status"`
	AlertsProcessed   int        `json:"alerts_processed" db:"alerts_processed"`
	AlertsSkipped     int        `json:"alerts_skipped" db:"alerts_skipped"`
	ListingsFetched   int        `json:"listings_fetched" db:"listings_fetched"`
	ListingsMatched   int        `json:"listings_matched" db:"listings_matched"`
	NotificationsSent int        `json:"notifications_sent" db:"notifications_sent"`
	ErrorsCount       int        `json:"errors_count" db:"errors_count"`
	ErrorSamples      string     `json:"error_samples" db:"error_samples"`
}

const maxErrorSamples = 10

// RunStats aggregates per-alert outcomes for one run. Alerts are checked
// concurrently, so all mutation goes through the locked methods.
type RunStats struct {
	mu sync.Mutex

	AlertsProcessed   int      `json:"alerts_processed"`
	AlertsSkipped     int      `json:"alerts_skipped"`
	AlertsInvalid     int      `json:"alerts_invalid"`
	ListingsFetched   int      `json:"listings_fetched"`
	ListingsMatched   int      `json:"listings_matched"`
	NotificationsSent int      `json:"notifications_sent"`
	DispatchFailed    int      `json:"dispatch_failed"`
	SkippedNoContact  int      `json:"skipped_no_contact"`
	Errors            int      `json:"errors"`
	ErrorSamples      []string `json:"error_samples"`
}

func (s *RunStats) AddProcessed()  { s.mu.Lock(); s.AlertsProcessed++; s.mu.Unlock() }
func (s *RunStats) AddSkipped()    { s.mu.Lock(); s.AlertsSkipped++; s.mu.Unlock() }
func (s *RunStats) AddInvalid()    { s.mu.Lock(); s.AlertsInvalid++; s.mu.Unlock() }
func (s *RunStats) AddFetched(n int) {
	s.mu.Lock()
	s.ListingsFetched += n
	s.mu.Unlock()
}
func (s *RunStats) AddMatched(n int) {
	s.mu.Lock()
	s.ListingsMatched += n
	s.mu.Unlock()
}
func (s *RunStats) AddSent()       { s.mu.Lock(); s.NotificationsSent++; s.mu.Unlock() }
func (s *RunStats) AddDispatchFailed() {
	s.mu.Lock()
	s.DispatchFailed++
	s.mu.Unlock()
}
func (s *RunStats) AddNoContact() { s.mu.Lock(); s.SkippedNoContact++; s.mu.Unlock() }

// AddError counts an error and keeps a bounded sample of messages.
func (s *RunStats) AddError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors++
	if len(s.ErrorSamples) < maxErrorSamples {
		s.ErrorSamples = append(s.ErrorSamples, msg)
	}
}

// RunSnapshot is a point-in-time copy of RunStats, safe to read and
// marshal without the lock.
type RunSnapshot struct {
	AlertsProcessed   int      `json:"alerts_processed"`
	AlertsSkipped     int      `json:"alerts_skipped"`
	AlertsInvalid     int      `json:"alerts_invalid"`
	ListingsFetched   int      `json:"listings_fetched"`
	ListingsMatched   int      `json:"listings_matched"`
	NotificationsSent int      `json:"notifications_sent"`
	DispatchFailed    int      `json:"dispatch_failed"`
	SkippedNoContact  int      `json:"skipped_no_contact"`
	Errors            int      `json:"errors"`
	ErrorSamples      []string `json:"error_samples"`
}

// Snapshot returns a copy safe to read without the lock.
func (s *RunStats) Snapshot() RunSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := RunSnapshot{
		AlertsProcessed:   s.AlertsProcessed,
		AlertsSkipped:     s.AlertsSkipped,
		AlertsInvalid:     s.AlertsInvalid,
		ListingsFetched:   s.ListingsFetched,
		ListingsMatched:   s.ListingsMatched,
		NotificationsSent: s.NotificationsSent,
		DispatchFailed:    s.DispatchFailed,
		SkippedNoContact:  s.SkippedNoContact,
		Errors:            s.Errors,
	}
	out.ErrorSamples = append(out.ErrorSamples, s.ErrorSamples...)
	return out
}

// ToJSON returns JSON-serializable metadata for run records.
func (s *RunStats) ToJSON() json.RawMessage {
	snap := s.Snapshot()
	data, _ := json.Marshal(&snap)
	return data
}
