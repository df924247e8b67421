package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/herbtrace/herbtrace/internal/batch/domain"
	"github.com/herbtrace/herbtrace/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, batch *domain.Batch) error {
	return db.WithContext(ctx).Create(batch).Error
}

func (r *repo) FindByBatchID(ctx context.Context, db *gorm.DB, batchID string) (*domain.Batch, error) {
	var batch domain.Batch
	err := db.WithContext(ctx).
		Preload("Events").
		Preload("Receipts").
		Where("batch_id = ?", batchID).
		First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Batch, error) {
	stmt := db.WithContext(ctx).Model(&domain.Batch{})

	if farmerID := strings.TrimSpace(filter.FarmerID); farmerID != "" {
		stmt = stmt.Where("farmer_id = ?", farmerID)
	}
	if species := strings.TrimSpace(filter.Species); species != "" {
		stmt = stmt.Where("species = ?", species)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

	stmt, err := applyCursor(stmt, page)
	if err != nil {
		return nil, err
	}

	var batches []*domain.Batch
	if err := stmt.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *repo) DeleteBatch(ctx context.Context, db *gorm.DB, batchID string) error {
	// Events and receipts go with the batch; no soft delete here.
	if err := db.WithContext(ctx).Where("batch_id = ?", batchID).Delete(&domain.Event{}).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Where("batch_id = ?", batchID).Delete(&domain.LedgerReceipt{}).Error; err != nil {
		return err
	}
	res := db.WithContext(ctx).Where("batch_id = ?", batchID).Delete(&domain.Batch{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) FindEventByEventID(ctx context.Context, db *gorm.DB, eventID string) (*domain.Event, error) {
	var event domain.Event
	err := db.WithContext(ctx).Where("event_id = ?", eventID).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (r *repo) UpdateEvent(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	event.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("event_id = ?", event.EventID).
		Updates(map[string]any{
			"description":  event.Description,
			"quality_data": event.QualityData,
			"updated_at":   event.UpdatedAt,
		}).Error
}

func (r *repo) UpdateDerivedState(ctx context.Context, db *gorm.DB, batch *domain.Batch) error {
	previousVersion := batch.Version
	now := time.Now().UTC()

	res := db.WithContext(ctx).
		Model(&domain.Batch{}).
		Where("batch_id = ? AND version = ?", batch.BatchID, previousVersion).
		Updates(map[string]any{
			"status":         batch.Status,
			"purity":         batch.Purity,
			"moisture":       batch.Moisture,
			"ash_content":    batch.AshContent,
			"heavy_metals":   batch.HeavyMetals,
			"lab_tested":     batch.LabTested,
			"geo_fencing_ok": batch.GeoFencingOK,
			"seasonal_ok":    batch.SeasonalOK,
			"quality_ok":     batch.QualityOK,
			"species_ok":     batch.SpeciesOK,
			"overall_ok":     batch.OverallOK,
			"last_checked":   batch.LastChecked,
			"violations":     batch.Violations,
			"version":        previousVersion + 1,
			"updated_at":     now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}
	batch.Version = previousVersion + 1
	batch.UpdatedAt = now
	return nil
}

func (r *repo) InsertReceipt(ctx context.Context, db *gorm.DB, receipt *domain.LedgerReceipt) error {
	return db.WithContext(ctx).Create(receipt).Error
}

func (r *repo) ListNonCompliant(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*domain.Batch, error) {
	stmt := db.WithContext(ctx).Model(&domain.Batch{}).
		Where("last_checked IS NOT NULL AND overall_ok = ?", false)

	stmt, err := applyCursor(stmt, page)
	if err != nil {
		return nil, err
	}

	var batches []*domain.Batch
	if err := stmt.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// applyCursor translates a page token into keyset conditions and fetches one
// extra row so callers can detect another page.
func applyCursor(stmt *gorm.DB, page pagination.Pagination) (*gorm.DB, error) {
	limit := page.PageSize
	if limit <= 0 {
		limit = 10
	}
	if limit > 250 {
		limit = 250
	}

	if token := strings.TrimSpace(page.PageToken); token != "" {
		decoded, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339, decoded.CreatedAt)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return nil, domain.ErrInvalidPageToken
		}
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, id)
	}

	return stmt.Order("created_at desc, id desc").Limit(limit + 1), nil
}
