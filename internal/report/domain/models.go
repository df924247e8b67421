package domain

import (
	"context"
	"errors"
	"time"

	batchdomain "github.com/herbtrace/herbtrace/internal/batch/domain"
	compliancedomain "github.com/herbtrace/herbtrace/internal/compliance/domain"
)

// Recommendation is a prioritized remediation hint derived from the
// compliance snapshot.
type Recommendation struct {
	Priority compliancedomain.Severity `json:"priority"`
	Message  string                    `json:"message"`
}

// Report is the full compliance picture for one batch. Apart from
// GeneratedAt it is a pure function of stored state, so rebuilding a report
// for an unchanged batch yields identical content.
type Report struct {
	BatchID     string    `json:"batch_id"`
	Species     string    `json:"species"`
	FarmerID    string    `json:"farmer_id"`
	Status      string    `json:"status"`
	Quantity    float64   `json:"quantity"`
	Unit        string    `json:"unit"`
	HarvestDate time.Time `json:"harvest_date"`
	GeneratedAt time.Time `json:"generated_at"`

	Compliance      compliancedomain.Status     `json:"compliance"`
	Timeline        []batchdomain.TimelineEntry `json:"timeline"`
	LedgerReceipts  []batchdomain.LedgerReceipt `json:"ledger_receipts"`
	Recommendations []Recommendation            `json:"recommendations"`
}

type Service interface {
	Build(ctx context.Context, batchID string) (Report, error)
}

var (
	ErrNotFound     = errors.New("not_found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)
