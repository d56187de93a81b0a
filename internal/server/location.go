package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	locationdomain "github.com/gastrack/cylinderbill/internal/location/domain"
)

type createLocationRequest struct {
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	City         string  `json:"city"`
	Province     string  `json:"province"`
	TotalTaxRate float64 `json:"total_tax_rate"`
}

func (s *Server) CreateLocation(c *gin.Context) {
	var req createLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.locationSvc.Create(c.Request.Context(), locationdomain.CreateLocationRequest{
		Name:         strings.TrimSpace(req.Name),
		Address:      strings.TrimSpace(req.Address),
		City:         strings.TrimSpace(req.City),
		Province:     strings.TrimSpace(req.Province),
		TotalTaxRate: req.TotalTaxRate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListLocations(c *gin.Context) {
	resp, err := s.locationSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateLocationRequest struct {
	Name         *string  `json:"name"`
	Address      *string  `json:"address"`
	City         *string  `json:"city"`
	Province     *string  `json:"province"`
	TotalTaxRate *float64 `json:"total_tax_rate"`
}

func (s *Server) UpdateLocation(c *gin.Context) {
	var req updateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.locationSvc.Update(c.Request.Context(), c.Param("id"), locationdomain.UpdateLocationRequest{
		Name:         req.Name,
		Address:      req.Address,
		City:         req.City,
		Province:     req.Province,
		TotalTaxRate: req.TotalTaxRate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
