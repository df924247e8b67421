package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	sqlite "github.com/glebarez/sqlite"
	"github.com/herbtrace/herbtrace/internal/actorctx"
	batchdomain "github.com/herbtrace/herbtrace/internal/batch/domain"
	batchrepository "github.com/herbtrace/herbtrace/internal/batch/repository"
	compliancedomain "github.com/herbtrace/herbtrace/internal/compliance/domain"
	"github.com/herbtrace/herbtrace/internal/compliance/evaluator"
	"github.com/herbtrace/herbtrace/internal/report/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&batchdomain.Batch{},
		&batchdomain.Event{},
		&batchdomain.LedgerReceipt{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:      gdb,
		Log:     zap.NewNop(),
		Batches: batchrepository.Provide(),
	})
	return svc, gdb, node
}

func regulatorCtx() context.Context {
	return actorctx.WithActor(context.Background(), actorctx.Actor{
		ID:   "reg-1",
		Role: actorctx.RoleRegulator,
	})
}

func seedEvaluatedBatch(t *testing.T, gdb *gorm.DB, node *snowflake.Node, mutate func(*batchdomain.Batch)) *batchdomain.Batch {
	t.Helper()
	batch := &batchdomain.Batch{
		ID:          node.Generate(),
		BatchID:     "BATCH300",
		Species:     "Brahmi",
		HarvestDate: time.Date(2026, time.May, 20, 0, 0, 0, 0, time.UTC),
		Latitude:    12.9716,
		Longitude:   77.5946,
		FarmerID:    "farmer-1",
		Quantity:    12,
		Unit:        "kg",
		Status:      batchdomain.StatusHarvested,
		Version:     1,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if mutate != nil {
		mutate(batch)
	}
	status := evaluator.Evaluate(batch.ComplianceSnapshot(), compliancedomain.DefaultRuleSet(), time.Now().UTC())
	batch.SetComplianceStatus(status)
	require.NoError(t, gdb.Create(batch).Error)
	return batch
}

func TestBuild_ReportShape(t *testing.T) {
	svc, gdb, node := newTestService(t)
	batch := seedEvaluatedBatch(t, gdb, node, nil)

	now := time.Now().UTC()
	require.NoError(t, gdb.Create(&batchdomain.Event{
		ID:          node.Generate(),
		EventID:     "evt-1",
		BatchID:     batch.BatchID,
		EventType:   batchdomain.EventHarvest,
		Timestamp:   now,
		ActorID:     "farmer-1",
		ActorRole:   actorctx.RoleFarmer,
		Description: "harvested",
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error)
	require.NoError(t, gdb.Create(&batchdomain.LedgerReceipt{
		ID:            node.Generate(),
		BatchID:       batch.BatchID,
		Operation:     "createBatch",
		TransactionID: "local-abc",
		Status:        "success",
		Synthetic:     true,
		Timestamp:     now,
		CreatedAt:     now,
	}).Error)

	report, err := svc.Build(regulatorCtx(), batch.BatchID)
	require.NoError(t, err)

	assert.Equal(t, "BATCH300", report.BatchID)
	assert.Equal(t, "Brahmi", report.Species)
	assert.Equal(t, "farmer-1", report.FarmerID)
	assert.Equal(t, string(batchdomain.StatusHarvested), report.Status)
	assert.False(t, report.GeneratedAt.IsZero())
	require.Len(t, report.Timeline, 1)
	require.Len(t, report.LedgerReceipts, 1)
	assert.True(t, report.LedgerReceipts[0].Synthetic)
	assert.NotEmpty(t, report.Recommendations)
}

func TestBuild_IdempotentApartFromGeneratedAt(t *testing.T) {
	svc, gdb, node := newTestService(t)
	batch := seedEvaluatedBatch(t, gdb, node, nil)

	first, err := svc.Build(regulatorCtx(), batch.BatchID)
	require.NoError(t, err)
	second, err := svc.Build(regulatorCtx(), batch.BatchID)
	require.NoError(t, err)

	first.GeneratedAt = time.Time{}
	second.GeneratedAt = time.Time{}
	assert.Equal(t, first, second)
}

func TestBuild_RecommendationPriorities(t *testing.T) {
	svc, gdb, node := newTestService(t)
	// Unapproved species, outside every zone, off-season, no lab results.
	seedEvaluatedBatch(t, gdb, node, func(b *batchdomain.Batch) {
		b.Species = "Ginseng"
		b.Latitude = 28.6139
		b.Longitude = 77.2090
		b.HarvestDate = time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	})

	report, err := svc.Build(regulatorCtx(), "BATCH300")
	require.NoError(t, err)
	require.Len(t, report.Recommendations, 4)

	assert.Equal(t, compliancedomain.SeverityCritical, report.Recommendations[0].Priority)
	assert.Equal(t, compliancedomain.SeverityHigh, report.Recommendations[1].Priority)
	assert.Equal(t, compliancedomain.SeverityHigh, report.Recommendations[2].Priority)
	assert.Equal(t, compliancedomain.SeverityMedium, report.Recommendations[3].Priority)
}

func TestBuild_FullyCompliantSingleRecommendation(t *testing.T) {
	svc, gdb, node := newTestService(t)
	purity := 98.0
	seedEvaluatedBatch(t, gdb, node, func(b *batchdomain.Batch) {
		b.Purity = &purity
		b.LabTested = true
	})

	report, err := svc.Build(regulatorCtx(), "BATCH300")
	require.NoError(t, err)
	assert.True(t, report.Compliance.Overall)
	require.Len(t, report.Recommendations, 1)
	assert.Equal(t, compliancedomain.SeverityLow, report.Recommendations[0].Priority)
}

func TestBuild_FarmerVisibility(t *testing.T) {
	svc, gdb, node := newTestService(t)
	seedEvaluatedBatch(t, gdb, node, nil)

	other := actorctx.WithActor(context.Background(), actorctx.Actor{ID: "farmer-9", Role: actorctx.RoleFarmer})
	_, err := svc.Build(other, "BATCH300")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	owner := actorctx.WithActor(context.Background(), actorctx.Actor{ID: "farmer-1", Role: actorctx.RoleFarmer})
	_, err = svc.Build(owner, "BATCH300")
	assert.NoError(t, err)
}

func TestBuild_UnknownBatch(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Build(regulatorCtx(), "MISSING")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
