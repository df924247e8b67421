package domain

import (
	"context"
	"errors"
	"time"

	"github.com/herbtrace/herbtrace/pkg/db/pagination"
)

// CheckResult is the outcome of an on-demand compliance recomputation.
type CheckResult struct {
	BatchID string `json:"batch_id"`
	Species string `json:"species"`
	Status  Status `json:"compliance"`
}

// ViolationRow is one open violation in the cross-batch listing.
type ViolationRow struct {
	BatchID    string    `json:"batch_id"`
	Species    string    `json:"species"`
	FarmerID   string    `json:"farmer_id"`
	Kind       string    `json:"kind"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	Status     string    `json:"status"`
	DetectedAt time.Time `json:"detected_at"`
}

type ListViolationsRequest struct {
	pagination.Pagination
	Severity string
}

type ListViolationsResponse struct {
	pagination.PageInfo
	Violations []ViolationRow `json:"violations"`
}

type Service interface {
	// Check recomputes the verdict for one batch from current state and
	// persists the refreshed snapshot. It is the only recompute trigger
	// besides event appends.
	Check(ctx context.Context, batchID string) (CheckResult, error)
	ListViolations(ctx context.Context, req ListViolationsRequest) (ListViolationsResponse, error)
}

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidSeverity = errors.New("invalid_severity")
)
