package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	tariffdomain "github.com/ratecell/ratecell/internal/tariff/domain"
)

func (s *Server) ListPlans(c *gin.Context) {
	plans, err := s.tariffSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (s *Server) CreatePlan(c *gin.Context) {
	var req tariffdomain.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	plan, err := s.tariffSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, plan)
}
