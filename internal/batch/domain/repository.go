package domain

import (
	"context"

	"github.com/herbtrace/herbtrace/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows batch listings.
type ListFilter struct {
	FarmerID string
	Species  string
	Status   BatchStatus
}

type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, batch *Batch) error
	FindByBatchID(ctx context.Context, db *gorm.DB, batchID string) (*Batch, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Batch, error)
	DeleteBatch(ctx context.Context, db *gorm.DB, batchID string) error

	InsertEvent(ctx context.Context, db *gorm.DB, event *Event) error
	FindEventByEventID(ctx context.Context, db *gorm.DB, eventID string) (*Event, error)
	UpdateEvent(ctx context.Context, db *gorm.DB, event *Event) error

	// UpdateDerivedState persists status, quality metrics and the compliance
	// snapshot, bumping Version; a stale Version yields ErrVersionConflict.
	UpdateDerivedState(ctx context.Context, db *gorm.DB, batch *Batch) error

	InsertReceipt(ctx context.Context, db *gorm.DB, receipt *LedgerReceipt) error

	// ListNonCompliant returns batches whose latest verdict failed, for the
	// violations listing.
	ListNonCompliant(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*Batch, error)
}
