package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	rentaldomain "github.com/gastrack/cylinderbill/internal/rental/domain"
)

type createRentalRequest struct {
	CustomerID  string   `json:"customer_id"`
	UnitID      string   `json:"unit_id"`
	ProductCode string   `json:"product_code"`
	GasType     string   `json:"gas_type"`
	Size        string   `json:"size"`
	Location    string   `json:"location"`
	RentalType  string   `json:"rental_type"`
	LeaseID     *string  `json:"lease_id"`
	RentalStart string   `json:"rental_start"`
	TaxRate     *float64 `json:"tax_rate"`
}

func (s *Server) CreateRental(c *gin.Context) {
	var req createRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var rentalStart *time.Time
	if strings.TrimSpace(req.RentalStart) != "" {
		parsed, err := parseRequiredDate(req.RentalStart)
		if err != nil {
			AbortWithError(c, newValidationError("rental_start", "invalid_rental_start", "invalid rental_start"))
			return
		}
		rentalStart = &parsed
	}

	resp, err := s.rentalSvc.Create(c.Request.Context(), rentaldomain.CreateRentalRequest{
		CustomerID:  strings.TrimSpace(req.CustomerID),
		UnitID:      strings.TrimSpace(req.UnitID),
		ProductCode: strings.TrimSpace(req.ProductCode),
		GasType:     strings.TrimSpace(req.GasType),
		Size:        strings.TrimSpace(req.Size),
		Location:    strings.TrimSpace(req.Location),
		RentalType:  strings.TrimSpace(req.RentalType),
		LeaseID:     req.LeaseID,
		RentalStart: rentalStart,
		TaxRate:     req.TaxRate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListRentals(c *gin.Context) {
	var query struct {
		CustomerID string `form:"customer_id"`
		Status     string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.rentalSvc.List(c.Request.Context(), rentaldomain.ListRentalRequest{
		CustomerID: strings.TrimSpace(query.CustomerID),
		Status:     rentaldomain.RentalStatus(strings.TrimSpace(query.Status)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRental(c *gin.Context) {
	resp, err := s.rentalSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateRentalRequest struct {
	RentalType *string  `json:"rental_type"`
	LeaseID    *string  `json:"lease_id"`
	TaxRate    *float64 `json:"tax_rate"`
}

func (s *Server) UpdateRental(c *gin.Context) {
	var req updateRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.rentalSvc.Update(c.Request.Context(), c.Param("id"), rentaldomain.UpdateRentalRequest{
		RentalType: req.RentalType,
		LeaseID:    req.LeaseID,
		TaxRate:    req.TaxRate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) EndRental(c *gin.Context) {
	if err := s.rentalSvc.End(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}
