package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	jobdomain "github.com/bldragon101/worklog-sub001/internal/job/domain"
)

func (s *Server) CreateJob(c *gin.Context) {
	var req jobdomain.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.jobSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

type listJobsQuery struct {
	DriverID   string `form:"driver_id"`
	WeekEnding string `form:"week_ending"`
	Unassigned bool   `form:"unassigned"`
}

func (s *Server) ListJobs(c *gin.Context) {
	var query listJobsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := jobdomain.ListJobRequest{Unassigned: query.Unassigned}
	if raw := strings.TrimSpace(query.DriverID); raw != "" {
		driverID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("driver_id", "invalid_driver_id", "invalid driver id"))
			return
		}
		req.DriverID = &driverID
	}
	if raw := strings.TrimSpace(query.WeekEnding); raw != "" {
		weekEnding, err := parseDate(raw)
		if err != nil {
			AbortWithError(c, newValidationError("week_ending", "invalid_week_ending", "invalid week ending"))
			return
		}
		req.WeekEnding = &weekEnding
	}

	jobs, err := s.jobSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": jobs})
}
