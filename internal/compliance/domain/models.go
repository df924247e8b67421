package domain

import (
	"errors"
	"time"
)

// Severity is the triage tier attached to a violation at generation time.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ViolationKind tags the rule that produced a violation. Carrying the kind
// and severity as data keeps triage independent of message wording.
type ViolationKind string

const (
	KindGeoFencing        ViolationKind = "geo_fencing"
	KindSeasonal          ViolationKind = "seasonal"
	KindQualityMissing    ViolationKind = "quality_missing"
	KindQualityPurity     ViolationKind = "quality_purity"
	KindQualityMoisture   ViolationKind = "quality_moisture"
	KindQualityAsh        ViolationKind = "quality_ash"
	KindQualityHeavyMetal ViolationKind = "quality_heavy_metal"
	KindSpecies           ViolationKind = "species"
)

// Violation is a single failed rule with a human-readable message.
type Violation struct {
	Kind     ViolationKind `json:"kind"`
	Severity Severity      `json:"severity"`
	Message  string        `json:"message"`
}

// Status is the point-in-time compliance verdict for a batch. It is
// recomputed fresh on every evaluation and never partially updated.
type Status struct {
	GeoFencing  bool        `json:"geo_fencing"`
	Seasonal    bool        `json:"seasonal"`
	Quality     bool        `json:"quality"`
	Species     bool        `json:"species"`
	Overall     bool        `json:"overall"`
	LastChecked time.Time   `json:"last_checked"`
	Violations  []Violation `json:"violations"`
}

// Snapshot is the slice of batch state the rule evaluator inspects.
type Snapshot struct {
	Species     string
	HarvestDate time.Time
	Latitude    float64
	Longitude   float64

	HasQualityMetrics bool
	Purity            *float64
	Moisture          *float64
	AshContent        *float64
	HeavyMetals       map[string]float64
}

var (
	ErrNotFound         = errors.New("not_found")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
