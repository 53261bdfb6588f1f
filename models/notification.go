package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationRecord is the dedup unit: one row per (alert, listing) pair,
// created the first time the pair is dispatched and never updated. Its
// presence is the sole "already notified" signal.
type NotificationRecord struct {
	AlertID   uuid.UUID `json:"alert_id" db:"alert_id"`
	ListingID uuid.UUID `json:"listing_id" db:"listing_id"`
	Channels  string    `json:"channels" db:"channels"` // e.g. "email", "email+sms"
	SentAt    time.Time `json:"sent_at" db:"sent_at"`
}

// Notification channels.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// ChannelResult is the outcome of one channel's send attempt.
type ChannelResult struct {
	Channel   string `json:"channel"`
	Attempted bool   `json:"attempted"`
	Sent      bool   `json:"sent"`
	MessageID string `json:"message_id,omitempty"`
	Reason    string `json:"reason,omitempty"` // failure or skip reason
}

// DispatchOutcome aggregates the independent per-channel results for one
// (alert, listing) dispatch.
type DispatchOutcome struct {
	Results []ChannelResult `json:"results"`
}

// Attempted reports whether at least one channel send was attempted.
// One attempt is enough to record the pair as notified.
func (o DispatchOutcome) Attempted() bool {
	for _, r := range o.Results {
		if r.Attempted {
			return true
		}
	}
	return false
}

// Sent reports whether at least one channel succeeded.
func (o DispatchOutcome) Sent() bool {
	for _, r := range o.Results {
		if r.Sent {
			return true
		}
	}
	return false
}

// ChannelsSummary renders the successfully sent channels for the
// notifications row, e.g. "email+sms". Empty when nothing went out.
func (o DispatchOutcome) ChannelsSummary() string {
	s := ""
	for _, r := range o.Results {
		if !r.Sent {
			continue
		}
		if s != "" {
			s += "+"
		}
		s += r.Channel
	}
	return s
}
