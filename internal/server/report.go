package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetComplianceReport(c *gin.Context) {
	report, err := s.reportSvc.Build(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}
