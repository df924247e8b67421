package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/herbtrace/herbtrace/internal/actorctx"
	auditdomain "github.com/herbtrace/herbtrace/internal/audit/domain"
	batchdomain "github.com/herbtrace/herbtrace/internal/batch/domain"
	"github.com/herbtrace/herbtrace/internal/compliance/domain"
	"github.com/herbtrace/herbtrace/internal/compliance/evaluator"
	"github.com/herbtrace/herbtrace/internal/observability/metrics"
	"github.com/herbtrace/herbtrace/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Batches batchdomain.Repository
	Audit   auditdomain.Service
	Rules   domain.RuleSet
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	batches batchdomain.Repository
	audit   auditdomain.Service
	rules   domain.RuleSet
	metrics *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("compliance.service"),
		batches: p.Batches,
		audit:   p.Audit,
		rules:   p.Rules,
		metrics: p.Metrics,
	}
}

func (s *Service) Check(ctx context.Context, batchID string) (domain.CheckResult, error) {
	actor, ok := actorctx.ActorFromContext(ctx)
	if !ok {
		return domain.CheckResult{}, domain.ErrUnauthorized
	}

	batchID = strings.TrimSpace(batchID)
	batch, err := s.batches.FindByBatchID(ctx, s.db, batchID)
	if err != nil {
		if errors.Is(err, batchdomain.ErrNotFound) {
			return domain.CheckResult{}, domain.ErrNotFound
		}
		return domain.CheckResult{}, err
	}
	if actor.Role == actorctx.RoleFarmer && batch.FarmerID != actor.ID {
		return domain.CheckResult{}, domain.ErrForbidden
	}

	now := time.Now().UTC()
	status := evaluator.Evaluate(batch.ComplianceSnapshot(), s.rules, now)
	batch.SetComplianceStatus(status)
	s.metrics.RecordComplianceCheck(status.Overall)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.batches.UpdateDerivedState(ctx, tx, batch); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, "compliance.check", "batch", batch.BatchID, map[string]any{
			"overall":    status.Overall,
			"violations": len(status.Violations),
		})
	})
	if err != nil {
		return domain.CheckResult{}, err
	}

	s.log.Info("compliance recomputed",
		zap.String("batch_id", batch.BatchID),
		zap.Bool("overall", status.Overall),
		zap.Int("violations", len(status.Violations)),
	)

	return domain.CheckResult{
		BatchID: batch.BatchID,
		Species: batch.Species,
		Status:  status,
	}, nil
}

func (s *Service) ListViolations(ctx context.Context, req domain.ListViolationsRequest) (domain.ListViolationsResponse, error) {
	actor, ok := actorctx.ActorFromContext(ctx)
	if !ok {
		return domain.ListViolationsResponse{}, domain.ErrUnauthorized
	}
	if !actor.CanSeeAllBatches() {
		return domain.ListViolationsResponse{}, domain.ErrForbidden
	}

	severity, err := parseSeverity(req.Severity)
	if err != nil {
		return domain.ListViolationsResponse{}, err
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	if pageSize > 250 {
		pageSize = 250
	}

	batches, err := s.batches.ListNonCompliant(ctx, s.db, req.Pagination)
	if err != nil {
		if errors.Is(err, batchdomain.ErrInvalidPageToken) {
			return domain.ListViolationsResponse{}, domain.ErrInvalidPageToken
		}
		return domain.ListViolationsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(batches, pageSize, func(item *batchdomain.Batch) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(batches) > pageSize {
		batches = batches[:pageSize]
	}

	rows := make([]domain.ViolationRow, 0, len(batches))
	for _, batch := range batches {
		if batch == nil {
			continue
		}
		status := batch.ComplianceStatus()
		for _, violation := range status.Violations {
			if severity != "" && violation.Severity != severity {
				continue
			}
			rows = append(rows, domain.ViolationRow{
				BatchID:    batch.BatchID,
				Species:    batch.Species,
				FarmerID:   batch.FarmerID,
				Kind:       string(violation.Kind),
				Severity:   violation.Severity,
				Message:    violation.Message,
				Status:     "open",
				DetectedAt: status.LastChecked,
			})
		}
	}

	resp := domain.ListViolationsResponse{Violations: rows}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func parseSeverity(raw string) (domain.Severity, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch domain.Severity(raw) {
	case "", domain.SeverityCritical, domain.SeverityHigh, domain.SeverityMedium, domain.SeverityLow:
		return domain.Severity(raw), nil
	default:
		return "", domain.ErrInvalidSeverity
	}
}
