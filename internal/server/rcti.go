package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	rctidomain "github.com/bldragon101/worklog-sub001/internal/rcti/domain"
)

func (s *Server) CreateRcti(c *gin.Context) {
	var req rctidomain.CreateRctiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.rctiSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

type listRctisQuery struct {
	DriverID   string `form:"driver_id"`
	Status     string `form:"status"`
	WeekEnding string `form:"week_ending"`
}

func (s *Server) ListRctis(c *gin.Context) {
	var query listRctisQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := rctidomain.ListRctiRequest{}
	if raw := strings.TrimSpace(query.DriverID); raw != "" {
		driverID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("driver_id", "invalid_driver_id", "invalid driver id"))
			return
		}
		req.DriverID = &driverID
	}
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status := rctidomain.Status(raw)
		switch status {
		case rctidomain.StatusDraft, rctidomain.StatusFinalised, rctidomain.StatusPaid:
			req.Status = &status
		default:
			AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
			return
		}
	}
	if raw := strings.TrimSpace(query.WeekEnding); raw != "" {
		weekEnding, err := parseDate(raw)
		if err != nil {
			AbortWithError(c, newValidationError("week_ending", "invalid_week_ending", "invalid week ending"))
			return
		}
		req.WeekEnding = &weekEnding
	}

	rctis, err := s.rctiSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rctis})
}

func (s *Server) GetRctiByID(c *gin.Context) {
	detail, err := s.rctiSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

type addJobLinesRequest struct {
	JobIDs []string `json:"jobIds"`
}

func (s *Server) AddRctiJobLines(c *gin.Context) {
	var req addJobLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	lines, err := s.rctiSvc.AddJobLines(c.Request.Context(), c.Param("id"), req.JobIDs, actor(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"lines": lines}})
}

func (s *Server) AddRctiManualLine(c *gin.Context) {
	var input rctidomain.ManualLineInput
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	line, err := s.rctiSvc.AddManualLine(c.Request.Context(), c.Param("id"), input, actor(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"line": line}})
}

func (s *Server) RemoveRctiLine(c *gin.Context) {
	err := s.rctiSvc.RemoveLine(c.Request.Context(), c.Param("id"), c.Param("lineId"), actor(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{}})
}

type finalizeRctiRequest struct {
	DeductionOverrides map[string]any `json:"deductionOverrides"`
}

func (s *Server) FinalizeRcti(c *gin.Context) {
	var req finalizeRctiRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	detail, err := s.rctiSvc.Finalize(c.Request.Context(), c.Param("id"), req.DeductionOverrides, actor(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (s *Server) MarkRctiPaid(c *gin.Context) {
	updated, err := s.rctiSvc.MarkPaid(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

type revertRctiRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) RevertRctiToDraft(c *gin.Context) {
	var req revertRctiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	detail, err := s.rctiSvc.RevertToDraft(c.Request.Context(), c.Param("id"), req.Reason, actor(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}
