package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StabilizationStatus is the engine's judgment on whether a unit is
// rent stabilized. It is a claim strength, not a legal determination.
type StabilizationStatus string

const (
	StabilizationUnknown   StabilizationStatus = "unknown"
	StabilizationUnlikely  StabilizationStatus = "unlikely"
	StabilizationProbable  StabilizationStatus = "probable"
	StabilizationConfirmed StabilizationStatus = "confirmed"
)

// Listing is a normalized rental unit observation. Created on first
// observation, updated (LastSeen, price, IsActive) on every subsequent
// one; never deleted, only marked inactive.
type Listing struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Source       string    `json:"source" db:"source"`
	ExternalID   string    `json:"external_id" db:"external_id"` // source-stable
	Fingerprint  string    `json:"fingerprint" db:"fingerprint"`
	Address      string    `json:"address" db:"address"`
	Unit         string    `json:"unit" db:"unit"`
	Neighborhood string    `json:"neighborhood" db:"neighborhood"`
	Price        int       `json:"price" db:"price"`
	Bedrooms     int       `json:"bedrooms" db:"bedrooms"`
	Bathrooms    float64   `json:"bathrooms" db:"bathrooms"`
	SqFt         *int      `json:"sqft" db:"sqft"`
	NoFee        bool      `json:"no_fee" db:"no_fee"`
	URL          string    `json:"url" db:"url"`
	ImageURL     string    `json:"image_url" db:"image_url"`
	Lat          *float64  `json:"lat" db:"lat"`
	Lng          *float64  `json:"lng" db:"lng"`

	StabilizationStatus      StabilizationStatus `json:"stabilization_status" db:"stabilization_status"`
	StabilizationProbability *float64            `json:"stabilization_probability" db:"stabilization_probability"`
	StabilizationCheckedAt   *time.Time          `json:"stabilization_checked_at" db:"stabilization_checked_at"`
	StabilizationAttempts    int                 `json:"stabilization_attempts" db:"stabilization_attempts"`
	BuildingID               *string             `json:"building_id" db:"building_id"`

	FirstSeen time.Time `json:"first_seen" db:"first_seen"`
	LastSeen  time.Time `json:"last_seen" db:"last_seen"`
	IsActive  bool      `json:"is_active" db:"is_active"`
}

// HasCoordinates reports whether the listing can be geocoded against the
// building registry.
func (l *Listing) HasCoordinates() bool {
	return l.Lat != nil && l.Lng != nil
}

// RawListing is what a source adapter hands back before normalization.
type RawListing struct {
	ExternalID   string          `json:"external_id"`
	Address      string          `json:"address"`
	Unit         string          `json:"unit"`
	Neighborhood string          `json:"neighborhood"`
	Price        int             `json:"price"`
	Bedrooms     int             `json:"bedrooms"`
	Bathrooms    float64         `json:"bathrooms"`
	SqFt         int             `json:"sqft"`
	NoFee        bool            `json:"no_fee"`
	URL          string          `json:"url"`
	ImageURL     string          `json:"image_url"`
	Lat          *float64        `json:"lat"`
	Lng          *float64        `json:"lng"`
	Data         json.RawMessage `json:"data"`
}

// BuildingRecord is a public-registry building row. Not owned by the
// engine; fetched on demand and cached by coordinate bucket.
type BuildingRecord struct {
	BIN              string   `json:"bin"`
	Address          string   `json:"address"`
	ResidentialUnits int      `json:"residential_units"`
	YearBuilt        int      `json:"year_built"`
	BuildingClass    string   `json:"building_class"`
	ZipCode          string   `json:"zip_code"`
	Lat              *float64 `json:"lat"`
	Lng              *float64 `json:"lng"`
}
