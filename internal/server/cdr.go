package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	usagedomain "github.com/ratecell/ratecell/internal/usage/domain"
)

func (s *Server) IngestCDR(c *gin.Context) {
	var req usagedomain.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	result, err := s.usageSvc.Ingest(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) GetRatedEvent(c *gin.Context) {
	result, err := s.usageSvc.GetRatedEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) ListUsageRecords(c *gin.Context) {
	pageSize, err := parseOptionalInt64(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "invalid value"))
		return
	}

	req := usagedomain.ListUsageRequest{
		MSISDN:    c.Query("msisdn"),
		CallType:  c.Query("call_type"),
		PageToken: c.Query("page_token"),
	}
	if pageSize != nil {
		req.PageSize = int32(*pageSize)
	}

	resp, err := s.usageSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
