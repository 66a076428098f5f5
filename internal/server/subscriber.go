package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	subscriberdomain "github.com/ratecell/ratecell/internal/subscriber/domain"
)

func (s *Server) ListSubscribers(c *gin.Context) {
	pageSize, err := parseOptionalInt64(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "invalid value"))
		return
	}

	req := subscriberdomain.ListSubscriberRequest{
		PageToken: c.Query("page_token"),
	}
	if pageSize != nil {
		req.PageSize = int32(*pageSize)
	}

	resp, err := s.subscriberSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetSubscriber(c *gin.Context) {
	resolution, err := s.subscriberSvc.GetByMSISDN(c.Request.Context(), c.Param("msisdn"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resolution)
}

func (s *Server) GetUsageSummary(c *gin.Context) {
	from, err := parseOptionalTime(c.Query("from_ts"), false)
	if err != nil {
		AbortWithError(c, newValidationError("from_ts", "invalid_time", "invalid value"))
		return
	}
	to, err := parseOptionalTime(c.Query("to_ts"), true)
	if err != nil {
		AbortWithError(c, newValidationError("to_ts", "invalid_time", "invalid value"))
		return
	}

	// An open end defaults to now; an open start covers all history.
	fromTS := time.Time{}
	if from != nil {
		fromTS = *from
	}
	toTS := s.clock.Now()
	if to != nil {
		toTS = *to
	}

	summary, err := s.usageSvc.Summarize(c.Request.Context(), c.Param("msisdn"), fromTS, toTS)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
