package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/herbtrace/herbtrace/internal/actorctx"
	auditdomain "github.com/herbtrace/herbtrace/internal/audit/domain"
	"github.com/herbtrace/herbtrace/internal/batch/domain"
	compliancedomain "github.com/herbtrace/herbtrace/internal/compliance/domain"
	"github.com/herbtrace/herbtrace/internal/compliance/evaluator"
	ledgerdomain "github.com/herbtrace/herbtrace/internal/ledgeranchor/domain"
	"github.com/herbtrace/herbtrace/internal/locking"
	"github.com/herbtrace/herbtrace/internal/observability/metrics"
	"github.com/herbtrace/herbtrace/pkg/db"
	"github.com/herbtrace/herbtrace/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Ledger  ledgerdomain.Client
	Locker  locking.Locker
	Audit   auditdomain.Service
	Rules   compliancedomain.RuleSet
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	ledger  ledgerdomain.Client
	locker  locking.Locker
	audit   auditdomain.Service
	rules   compliancedomain.RuleSet
	metrics *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("batch.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		ledger:  p.Ledger,
		locker:  p.Locker,
		audit:   p.Audit,
		rules:   p.Rules,
		metrics: p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateBatchRequest) (domain.Batch, error) {
	actor, ok := actorctx.ActorFromContext(ctx)
	if !ok {
		return domain.Batch{}, domain.ErrUnauthorized
	}
	if actor.Role != actorctx.RoleFarmer && !actor.HasPermission("batch:create") {
		return domain.Batch{}, domain.ErrForbidden
	}

	if err := validateCreate(&req); err != nil {
		return domain.Batch{}, err
	}

	now := time.Now().UTC()
	batch := domain.Batch{
		ID:          s.genID.Generate(),
		BatchID:     req.BatchID,
		Species:     req.Species,
		HarvestDate: req.HarvestDate,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Address:     req.Address,
		FarmerID:    actor.ID,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		Status:      domain.StatusHarvested,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	status := evaluator.Evaluate(batch.ComplianceSnapshot(), s.rules, now)
	batch.SetComplianceStatus(status)
	s.metrics.RecordComplianceCheck(status.Overall)

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Harvested %.2f %s of %s", req.Quantity, req.Unit, req.Species)
	}
	event := domain.Event{
		ID:          s.genID.Generate(),
		EventID:     "evt-" + uuid.NewString(),
		BatchID:     batch.BatchID,
		EventType:   domain.EventHarvest,
		Timestamp:   now,
		Latitude:    &req.Latitude,
		Longitude:   &req.Longitude,
		Address:     req.Address,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	passed := status.Overall
	event.CompliancePassed = &passed
	event.ComplianceCheckedAt = &now
	event.ComplianceCheckedBy = "rule-engine"

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertBatch(ctx, tx, &batch); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrConflict
			}
			return err
		}
		if err := s.repo.InsertEvent(ctx, tx, &event); err != nil {
			return err
		}
		if err := s.anchor(ctx, tx, &batch, ledgerdomain.OpCreateBatch, map[string]any{
			"batchId":     batch.BatchID,
			"species":     batch.Species,
			"farmerId":    batch.FarmerID,
			"harvestDate": batch.HarvestDate.Format(time.RFC3339),
			"compliant":   status.Overall,
		}); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, "batch.create", "batch", batch.BatchID, map[string]any{
			"species":   batch.Species,
			"quantity":  batch.Quantity,
			"compliant": status.Overall,
		})
	})
	if err != nil {
		return domain.Batch{}, err
	}

	s.metrics.RecordEventAppended(string(domain.EventHarvest))
	s.log.Info("batch created",
		zap.String("batch_id", batch.BatchID),
		zap.String("species", batch.Species),
		zap.Bool("compliant", status.Overall),
	)

	batch.Events = []domain.Event{event}
	return batch, nil
}

func (s *Service) AppendEvent(ctx context.Context, req domain.AppendEventRequest) (domain.Batch, error) {
	actor, ok := actorctx.ActorFromContext(ctx)
	if !ok {
		return domain.Batch{}, domain.ErrUnauthorized
	}

	req.BatchID = strings.TrimSpace(req.BatchID)
	if req.BatchID == "" {
		return domain.Batch{}, domain.ErrInvalidBatchID
	}
	eventType := domain.EventType(strings.TrimSpace(req.EventType))
	newStatus, err := domain.StatusForEvent(eventType)
	if err != nil {
		return domain.Batch{}, err
	}
	if !actor.HasPermission("event:" + string(eventType)) {
		return domain.Batch{}, domain.ErrForbidden
	}
	if strings.TrimSpace(req.Description) == "" {
		return domain.Batch{}, domain.ErrInvalidDescription
	}
	if err := validateOptionalLocation(req.Latitude, req.Longitude); err != nil {
		return domain.Batch{}, err
	}

	release, err := s.locker.Acquire(ctx, "batch:"+req.BatchID)
	if err != nil {
		return domain.Batch{}, err
	}
	defer release()

	batch, err := s.repo.FindByBatchID(ctx, s.db, req.BatchID)
	if err != nil {
		return domain.Batch{}, err
	}

	now := time.Now().UTC()
	event := domain.Event{
		ID:          s.genID.Generate(),
		EventID:     "evt-" + uuid.NewString(),
		BatchID:     batch.BatchID,
		EventType:   eventType,
		Timestamp:   now,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Address:     req.Address,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if len(req.QualityData) > 0 {
		event.QualityData = datatypes.JSONMap(req.QualityData)
	}
	if req.CertificateHash != "" {
		event.CertificateHash = strings.TrimSpace(req.CertificateHash)
	}

	batch.Status = newStatus
	if eventType == domain.EventQualityTest {
		applyQualityData(batch, req.QualityData)
	}

	status := evaluator.Evaluate(batch.ComplianceSnapshot(), s.rules, now)
	batch.SetComplianceStatus(status)
	s.metrics.RecordComplianceCheck(status.Overall)

	passed := status.Overall
	event.CompliancePassed = &passed
	event.ComplianceCheckedAt = &now
	event.ComplianceCheckedBy = "rule-engine"

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertEvent(ctx, tx, &event); err != nil {
			return err
		}
		if err := s.repo.UpdateDerivedState(ctx, tx, batch); err != nil {
			return err
		}
		if err := s.anchor(ctx, tx, batch, ledgerdomain.OpAddEvent, map[string]any{
			"batchId":   batch.BatchID,
			"eventId":   event.EventID,
			"eventType": string(eventType),
			"actorId":   actor.ID,
			"compliant": status.Overall,
		}); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, "batch.append_event", "event", event.EventID, map[string]any{
			"batch_id":   batch.BatchID,
			"event_type": string(eventType),
			"compliant":  status.Overall,
		})
	})
	if err != nil {
		return domain.Batch{}, err
	}

	s.metrics.RecordEventAppended(string(eventType))
	s.log.Info("event appended",
		zap.String("batch_id", batch.BatchID),
		zap.String("event_type", string(eventType)),
		zap.String("status", string(batch.Status)),
	)

	batch.Events = append(batch.Events, event)
	return *batch, nil
}

func (s *Service) UpdateEvent(ctx context.Context, req domain.UpdateEventRequest) (domain.Event, error) {
	actor, ok := actorctx.ActorFromContext(ctx)
	if !ok {
		return domain.Event{}, domain.ErrUnauthorized
	}

	req.EventID = strings.TrimSpace(req.EventID)
	if req.EventID == "" {
		return domain.Event{}, domain.ErrEventNotFound
	}

	event, err := s.repo.FindEventByEventID(ctx, s.db, req.EventID)
	if err != nil {
		return domain.Event{}, err
	}
	if event.ActorID != actor.ID && actor.Role != actorctx.RoleAdmin {
		return domain.Event{}, domain.ErrForbidden
	}

	// Identity, type and timestamp are immutable; only the narrative and
	// attached measurements can be corrected.
	if description := strings.TrimSpace(req.Description); description != "" {
		event.Description = description
	}
	if req.QualityData != nil {
		event.QualityData = datatypes.JSONMap(req.QualityData)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateEvent(ctx, tx, event); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, "batch.update_event", "event", event.EventID, map[string]any{
			"batch_id": event.BatchID,
		})
	})
	if err != nil {
		return domain.Event{}, err
	}
	return *event, nil
}

func (s *Service) GetByBatchID(ctx context.Context, req domain.GetBatchRequest) (domain.Batch, error) {
	actor, ok := actorctx.ActorFromContext(ctx)
	if !ok {
		return domain.Batch{}, domain.ErrUnauthorized
	}

	batch, err := s.repo.FindByBatchID(ctx, s.db, strings.TrimSpace(req.BatchID))
	if err != nil {
		return domain.Batch{}, err
	}
	if actor.Role == actorctx.RoleFarmer && batch.FarmerID != actor.ID {
		return domain.Batch{}, domain.ErrForbidden
	}
	return *batch, nil
}

func (s *Service) List(ctx context.Context, req domain.ListBatchRequest) (domain.ListBatchResponse, error) {
	actor, ok := actorctx.ActorFromContext(ctx)
	if !ok {
		return domain.ListBatchResponse{}, domain.ErrUnauthorized
	}

	filter := domain.ListFilter{
		Species: req.Species,
		Status:  domain.BatchStatus(strings.TrimSpace(req.Status)),
	}
	if actor.Role == actorctx.RoleFarmer {
		filter.FarmerID = actor.ID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	if pageSize > 250 {
		pageSize = 250
	}

	items, err := s.repo.List(ctx, s.db, filter, req.Pagination)
	if err != nil {
		return domain.ListBatchResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.Batch) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	batches := make([]domain.Batch, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		batches = append(batches, *item)
	}

	resp := domain.ListBatchResponse{Batches: batches}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Timeline(ctx context.Context, batchID string) ([]domain.TimelineEntry, error) {
	batch, err := s.GetByBatchID(ctx, domain.GetBatchRequest{BatchID: batchID})
	if err != nil {
		return nil, err
	}
	return batch.Timeline(), nil
}

func (s *Service) Delete(ctx context.Context, batchID string) error {
	actor, ok := actorctx.ActorFromContext(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}
	if actor.Role != actorctx.RoleAdmin {
		return domain.ErrForbidden
	}

	batchID = strings.TrimSpace(batchID)
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeleteBatch(ctx, tx, batchID); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, "batch.delete", "batch", batchID, nil)
	})
}

// anchor submits the mutation to the ledger inside the caller's transaction
// and stores the receipt. A ledger failure aborts the whole transaction, so
// the database never records state the ledger refused.
func (s *Service) anchor(ctx context.Context, tx *gorm.DB, batch *domain.Batch, operation string, payload map[string]any) error {
	receipt, err := s.ledger.Submit(ctx, operation, payload)
	if err != nil {
		s.log.Warn("ledger anchoring failed",
			zap.String("batch_id", batch.BatchID),
			zap.String("operation", operation),
			zap.Error(err),
		)
		return err
	}

	return s.repo.InsertReceipt(ctx, tx, &domain.LedgerReceipt{
		ID:            s.genID.Generate(),
		BatchID:       batch.BatchID,
		Operation:     operation,
		TransactionID: receipt.TransactionID,
		BlockNumber:   receipt.BlockNumber,
		Status:        receipt.Status,
		Synthetic:     receipt.Synthetic,
		Timestamp:     receipt.Timestamp,
		CreatedAt:     time.Now().UTC(),
	})
}

func validateCreate(req *domain.CreateBatchRequest) error {
	req.BatchID = strings.TrimSpace(req.BatchID)
	req.Species = strings.TrimSpace(req.Species)
	req.Unit = strings.TrimSpace(req.Unit)
	req.Address = strings.TrimSpace(req.Address)

	if req.BatchID == "" || strings.ContainsAny(req.BatchID, " \t\n") {
		return domain.ErrInvalidBatchID
	}
	if req.Species == "" {
		return domain.ErrInvalidSpecies
	}
	if req.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if req.Unit == "" {
		return domain.ErrInvalidUnit
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return domain.ErrInvalidLocation
	}
	if req.HarvestDate.IsZero() || req.HarvestDate.After(time.Now().UTC().Add(24*time.Hour)) {
		return domain.ErrInvalidHarvestDate
	}
	return nil
}

func validateOptionalLocation(lat, lon *float64) error {
	if lat == nil && lon == nil {
		return nil
	}
	if lat == nil || lon == nil {
		return domain.ErrInvalidLocation
	}
	if *lat < -90 || *lat > 90 || *lon < -180 || *lon > 180 {
		return domain.ErrInvalidLocation
	}
	return nil
}

// applyQualityData folds lab measurements from a quality_test event into the
// batch so the evaluator sees them.
func applyQualityData(batch *domain.Batch, data map[string]any) {
	if len(data) == 0 {
		return
	}
	batch.LabTested = true

	if v, ok := floatField(data, "purity"); ok {
		batch.Purity = &v
	}
	if v, ok := floatField(data, "moisture"); ok {
		batch.Moisture = &v
	}
	if v, ok := floatField(data, "ash_content"); ok {
		batch.AshContent = &v
	}
	if metals, ok := data["heavy_metals"].(map[string]any); ok && len(metals) > 0 {
		merged := datatypes.JSONMap{}
		for metal, value := range batch.HeavyMetals {
			merged[metal] = value
		}
		for metal, value := range metals {
			merged[metal] = value
		}
		batch.HeavyMetals = merged
	}
}

func floatField(data map[string]any, key string) (float64, bool) {
	value, ok := data[key]
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
