package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	batchdomain "github.com/herbtrace/herbtrace/internal/batch/domain"
	"github.com/herbtrace/herbtrace/pkg/db/pagination"
)

type createBatchRequest struct {
	BatchID     string  `json:"batch_id"`
	Species     string  `json:"species"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Address     string  `json:"address"`
	HarvestDate string  `json:"harvest_date"`
	Description string  `json:"description"`
}

func (s *Server) CreateBatch(c *gin.Context) {
	var body createBatchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	harvestDate, err := time.Parse(time.RFC3339, strings.TrimSpace(body.HarvestDate))
	if err != nil {
		// Date-only input is common from field apps.
		harvestDate, err = time.Parse("2006-01-02", strings.TrimSpace(body.HarvestDate))
		if err != nil {
			AbortWithError(c, newValidationError("harvest_date", "invalid_harvest_date", "invalid harvest_date"))
			return
		}
	}

	batch, err := s.batchSvc.Create(c.Request.Context(), batchdomain.CreateBatchRequest{
		BatchID:     body.BatchID,
		Species:     body.Species,
		Quantity:    body.Quantity,
		Unit:        body.Unit,
		Latitude:    body.Latitude,
		Longitude:   body.Longitude,
		Address:     body.Address,
		HarvestDate: harvestDate.UTC(),
		Description: body.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": batchView(batch)})
}

type listBatchesQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
	Species   string `form:"species"`
	Status    string `form:"status"`
}

func (s *Server) ListBatches(c *gin.Context) {
	var query listBatchesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.batchSvc.List(c.Request.Context(), batchdomain.ListBatchRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Species: strings.TrimSpace(query.Species),
		Status:  strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]gin.H, 0, len(resp.Batches))
	for _, batch := range resp.Batches {
		views = append(views, batchView(batch))
	}
	c.JSON(http.StatusOK, gin.H{"data": views, "page_info": resp.PageInfo})
}

func (s *Server) GetBatch(c *gin.Context) {
	batch, err := s.batchSvc.GetByBatchID(c.Request.Context(), batchdomain.GetBatchRequest{
		BatchID: c.Param("batchId"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if eventType := strings.TrimSpace(c.Query("event_type")); eventType != "" {
		if !batchdomain.ValidEventType(batchdomain.EventType(eventType)) {
			AbortWithError(c, batchdomain.ErrInvalidEventType)
			return
		}
		batch.Events = batch.EventsByType(batchdomain.EventType(eventType))
	}
	if actorID := strings.TrimSpace(c.Query("actor_id")); actorID != "" {
		batch.Events = batch.EventsByActor(actorID)
	}

	c.JSON(http.StatusOK, gin.H{"data": batchView(batch)})
}

func (s *Server) GetBatchTimeline(c *gin.Context) {
	entries, err := s.batchSvc.Timeline(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (s *Server) DeleteBatch(c *gin.Context) {
	if err := s.batchSvc.Delete(c.Request.Context(), c.Param("batchId")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// batchView shapes the API response, surfacing the compliance snapshot
// alongside the batch fields.
func batchView(batch batchdomain.Batch) gin.H {
	view := gin.H{
		"batch_id":     batch.BatchID,
		"species":      batch.Species,
		"harvest_date": batch.HarvestDate,
		"latitude":     batch.Latitude,
		"longitude":    batch.Longitude,
		"address":      batch.Address,
		"farmer_id":    batch.FarmerID,
		"quantity":     batch.Quantity,
		"unit":         batch.Unit,
		"status":       batch.Status,
		"lab_tested":   batch.LabTested,
		"compliance":   batch.ComplianceStatus(),
		"created_at":   batch.CreatedAt,
		"updated_at":   batch.UpdatedAt,
	}
	if len(batch.Events) > 0 {
		view["events"] = batch.Events
	}
	if len(batch.Receipts) > 0 {
		view["ledger_receipts"] = batch.Receipts
	}
	if batch.Purity != nil {
		view["purity"] = *batch.Purity
	}
	if batch.Moisture != nil {
		view["moisture"] = *batch.Moisture
	}
	if batch.AshContent != nil {
		view["ash_content"] = *batch.AshContent
	}
	if len(batch.HeavyMetals) > 0 {
		view["heavy_metals"] = batch.HeavyMetals
	}
	return view
}
