package domain

import (
	"context"
	"errors"
	"time"

	"github.com/herbtrace/herbtrace/pkg/db/pagination"
)

type CreateBatchRequest struct {
	BatchID     string
	Species     string
	Quantity    float64
	Unit        string
	Latitude    float64
	Longitude   float64
	Address     string
	HarvestDate time.Time
	Description string
}

type AppendEventRequest struct {
	BatchID         string
	EventType       string
	Description     string
	Latitude        *float64
	Longitude       *float64
	Address         string
	QualityData     map[string]any
	CertificateHash string
}

type UpdateEventRequest struct {
	EventID     string
	Description string
	QualityData map[string]any
}

type GetBatchRequest struct {
	BatchID string
}

type ListBatchRequest struct {
	pagination.Pagination
	Species string
	Status  string
}

type ListBatchResponse struct {
	pagination.PageInfo
	Batches []Batch `json:"batches"`
}

type Service interface {
	Create(ctx context.Context, req CreateBatchRequest) (Batch, error)
	AppendEvent(ctx context.Context, req AppendEventRequest) (Batch, error)
	UpdateEvent(ctx context.Context, req UpdateEventRequest) (Event, error)
	GetByBatchID(ctx context.Context, req GetBatchRequest) (Batch, error)
	List(ctx context.Context, req ListBatchRequest) (ListBatchResponse, error)
	Timeline(ctx context.Context, batchID string) ([]TimelineEntry, error)
	Delete(ctx context.Context, batchID string) error
}

var (
	ErrNotFound         = errors.New("not_found")
	ErrEventNotFound    = errors.New("event_not_found")
	ErrConflict         = errors.New("conflict")
	ErrVersionConflict  = errors.New("version_conflict")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidEventType = errors.New("invalid_event_type")

	ErrInvalidBatchID     = errors.New("invalid_batch_id")
	ErrInvalidSpecies     = errors.New("invalid_species")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInvalidUnit        = errors.New("invalid_unit")
	ErrInvalidLocation    = errors.New("invalid_location")
	ErrInvalidHarvestDate = errors.New("invalid_harvest_date")
	ErrInvalidDescription = errors.New("invalid_description")
	ErrInvalidPageToken   = errors.New("invalid_page_token")
)
