package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	leasedomain "github.com/gastrack/cylinderbill/internal/lease/domain"
)

type createLeaseRequest struct {
	CustomerID       string   `json:"customer_id"`
	CustomerName     string   `json:"customer_name"`
	BillingFrequency string   `json:"billing_frequency"`
	StartDate        string   `json:"start_date"`
	EndDate          string   `json:"end_date"`
	AnnualAmount     float64  `json:"annual_amount"`
	TaxRate          *float64 `json:"tax_rate"`
	PaymentTerms     string   `json:"payment_terms"`
}

func (s *Server) CreateLease(c *gin.Context) {
	var req createLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startDate, err := parseRequiredDate(req.StartDate)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "invalid start_date"))
		return
	}
	endDate, err := parseRequiredDate(req.EndDate)
	if err != nil {
		AbortWithError(c, newValidationError("end_date", "invalid_end_date", "invalid end_date"))
		return
	}

	resp, err := s.leaseSvc.Create(c.Request.Context(), leasedomain.CreateLeaseRequest{
		CustomerID:       strings.TrimSpace(req.CustomerID),
		CustomerName:     strings.TrimSpace(req.CustomerName),
		BillingFrequency: strings.TrimSpace(req.BillingFrequency),
		StartDate:        startDate,
		EndDate:          endDate,
		AnnualAmount:     decimal.NewFromFloat(req.AnnualAmount),
		TaxRate:          req.TaxRate,
		PaymentTerms:     strings.TrimSpace(req.PaymentTerms),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListLeases(c *gin.Context) {
	var query struct {
		CustomerID string `form:"customer_id"`
		Status     string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.leaseSvc.List(c.Request.Context(), leasedomain.ListLeaseRequest{
		CustomerID: strings.TrimSpace(query.CustomerID),
		Status:     leasedomain.LeaseStatus(strings.TrimSpace(query.Status)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetLease(c *gin.Context) {
	resp, err := s.leaseSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateLeaseRequest struct {
	BillingFrequency *string  `json:"billing_frequency"`
	EndDate          *string  `json:"end_date"`
	AnnualAmount     *float64 `json:"annual_amount"`
	TaxRate          *float64 `json:"tax_rate"`
	PaymentTerms     *string  `json:"payment_terms"`
	Status           *string  `json:"status"`
}

func (s *Server) UpdateLease(c *gin.Context) {
	var req updateLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := leasedomain.UpdateLeaseRequest{
		BillingFrequency: req.BillingFrequency,
		TaxRate:          req.TaxRate,
		PaymentTerms:     req.PaymentTerms,
	}
	if req.EndDate != nil {
		endDate, err := parseRequiredDate(*req.EndDate)
		if err != nil {
			AbortWithError(c, newValidationError("end_date", "invalid_end_date", "invalid end_date"))
			return
		}
		update.EndDate = &endDate
	}
	if req.AnnualAmount != nil {
		amount := decimal.NewFromFloat(*req.AnnualAmount)
		update.AnnualAmount = &amount
	}
	if req.Status != nil {
		status := leasedomain.LeaseStatus(*req.Status)
		update.Status = &status
	}

	resp, err := s.leaseSvc.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ProcessDueLeaseBilling sweeps every active agreement whose next
// billing date has arrived and returns the per-agreement outcome.
func (s *Server) ProcessDueLeaseBilling(c *gin.Context) {
	results, err := s.leaseSvc.ProcessDueBilling(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}
