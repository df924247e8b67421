package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/herbtrace/herbtrace/internal/actorctx"
	batchdomain "github.com/herbtrace/herbtrace/internal/batch/domain"
	compliancedomain "github.com/herbtrace/herbtrace/internal/compliance/domain"
	"github.com/herbtrace/herbtrace/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Batches batchdomain.Repository
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	batches batchdomain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("report.service"),
		batches: p.Batches,
	}
}

// Build assembles the report from the stored snapshot without recomputing
// compliance; recomputation is an explicit, separate operation.
func (s *Service) Build(ctx context.Context, batchID string) (domain.Report, error) {
	actor, ok := actorctx.ActorFromContext(ctx)
	if !ok {
		return domain.Report{}, domain.ErrUnauthorized
	}

	batch, err := s.batches.FindByBatchID(ctx, s.db, strings.TrimSpace(batchID))
	if err != nil {
		if errors.Is(err, batchdomain.ErrNotFound) {
			return domain.Report{}, domain.ErrNotFound
		}
		return domain.Report{}, err
	}
	if actor.Role == actorctx.RoleFarmer && batch.FarmerID != actor.ID {
		return domain.Report{}, domain.ErrForbidden
	}

	status := batch.ComplianceStatus()
	return domain.Report{
		BatchID:         batch.BatchID,
		Species:         batch.Species,
		FarmerID:        batch.FarmerID,
		Status:          string(batch.Status),
		Quantity:        batch.Quantity,
		Unit:            batch.Unit,
		HarvestDate:     batch.HarvestDate,
		GeneratedAt:     time.Now().UTC(),
		Compliance:      status,
		Timeline:        batch.Timeline(),
		LedgerReceipts:  batch.Receipts,
		Recommendations: buildRecommendations(batch, status),
	}, nil
}

func buildRecommendations(batch *batchdomain.Batch, status compliancedomain.Status) []domain.Recommendation {
	if status.Overall {
		return []domain.Recommendation{{
			Priority: compliancedomain.SeverityLow,
			Message:  "Batch is fully compliant; no action required",
		}}
	}

	recommendations := make([]domain.Recommendation, 0, 4)
	if !status.Species {
		recommendations = append(recommendations, domain.Recommendation{
			Priority: compliancedomain.SeverityCritical,
			Message:  fmt.Sprintf("Species %q is not approved for harvesting; halt distribution and notify the regulator", batch.Species),
		})
	}
	if !status.GeoFencing {
		recommendations = append(recommendations, domain.Recommendation{
			Priority: compliancedomain.SeverityHigh,
			Message:  "Harvest location falls outside approved zones; verify collection coordinates and sourcing contracts",
		})
	}
	if !status.Quality {
		if batch.LabTested {
			recommendations = append(recommendations, domain.Recommendation{
				Priority: compliancedomain.SeverityHigh,
				Message:  "Quality thresholds not met; quarantine the batch pending re-testing",
			})
		} else {
			recommendations = append(recommendations, domain.Recommendation{
				Priority: compliancedomain.SeverityHigh,
				Message:  "No laboratory results on record; schedule quality testing before further processing",
			})
		}
	}
	if !status.Seasonal {
		recommendations = append(recommendations, domain.Recommendation{
			Priority: compliancedomain.SeverityMedium,
			Message:  "Harvest falls outside the approved season; review harvest scheduling for this species",
		})
	}
	return recommendations
}
