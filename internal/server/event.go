package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	batchdomain "github.com/herbtrace/herbtrace/internal/batch/domain"
)

type appendEventRequest struct {
	BatchID         string         `json:"batch_id"`
	EventType       string         `json:"event_type"`
	Description     string         `json:"description"`
	Latitude        *float64       `json:"latitude"`
	Longitude       *float64       `json:"longitude"`
	Address         string         `json:"address"`
	QualityData     map[string]any `json:"quality_data"`
	CertificateHash string         `json:"certificate_hash"`
}

func (s *Server) AppendEvent(c *gin.Context) {
	var body appendEventRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	batch, err := s.batchSvc.AppendEvent(c.Request.Context(), batchdomain.AppendEventRequest{
		BatchID:         body.BatchID,
		EventType:       body.EventType,
		Description:     body.Description,
		Latitude:        body.Latitude,
		Longitude:       body.Longitude,
		Address:         body.Address,
		QualityData:     body.QualityData,
		CertificateHash: body.CertificateHash,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": batchView(batch)})
}

type updateEventRequest struct {
	Description string         `json:"description"`
	QualityData map[string]any `json:"quality_data"`
}

func (s *Server) UpdateEvent(c *gin.Context) {
	var body updateEventRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	event, err := s.batchSvc.UpdateEvent(c.Request.Context(), batchdomain.UpdateEventRequest{
		EventID:     c.Param("eventId"),
		Description: body.Description,
		QualityData: body.QualityData,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": event})
}
