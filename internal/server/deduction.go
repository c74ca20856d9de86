package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	deductiondomain "github.com/bldragon101/worklog-sub001/internal/deduction/domain"
)

func (s *Server) CreateDeduction(c *gin.Context) {
	var req deductiondomain.CreateDeductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.deductionSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

type listDeductionsQuery struct {
	DriverID string `form:"driver_id"`
	Status   string `form:"status"`
}

func (s *Server) ListDeductions(c *gin.Context) {
	var query listDeductionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := deductiondomain.ListDeductionRequest{}
	if raw := strings.TrimSpace(query.DriverID); raw != "" {
		driverID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("driver_id", "invalid_driver_id", "invalid driver id"))
			return
		}
		req.DriverID = &driverID
	}
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status := deductiondomain.Status(raw)
		switch status {
		case deductiondomain.StatusActive, deductiondomain.StatusCompleted:
			req.Status = &status
		default:
			AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
			return
		}
	}

	deductions, err := s.deductionSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": deductions})
}

func (s *Server) GetDeductionByID(c *gin.Context) {
	item, err := s.deductionSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}
