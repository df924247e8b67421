package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	compliancedomain "github.com/herbtrace/herbtrace/internal/compliance/domain"
	"github.com/herbtrace/herbtrace/pkg/db/pagination"
)

type checkComplianceRequest struct {
	BatchID string `json:"batch_id"`
}

func (s *Server) CheckCompliance(c *gin.Context) {
	var body checkComplianceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(body.BatchID) == "" {
		AbortWithError(c, newValidationError("batch_id", "invalid_batch_id", "invalid batch_id"))
		return
	}

	result, err := s.complianceSvc.Check(c.Request.Context(), body.BatchID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

type listViolationsQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
	Severity  string `form:"severity"`
}

func (s *Server) ListViolations(c *gin.Context) {
	var query listViolationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.complianceSvc.ListViolations(c.Request.Context(), compliancedomain.ListViolationsRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Severity: strings.TrimSpace(query.Severity),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Violations, "page_info": resp.PageInfo})
}
