package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	driverdomain "github.com/bldragon101/worklog-sub001/internal/driver/domain"
)

func (s *Server) CreateDriver(c *gin.Context) {
	var req driverdomain.CreateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.driverSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

func (s *Server) ListDrivers(c *gin.Context) {
	drivers, err := s.driverSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": drivers})
}

func (s *Server) GetDriverByID(c *gin.Context) {
	item, err := s.driverSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}
