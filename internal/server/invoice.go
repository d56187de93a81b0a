package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	invoicedomain "github.com/gastrack/cylinderbill/internal/invoice/domain"
	"github.com/gastrack/cylinderbill/pkg/db/pagination"
)

type generateInvoiceRequest struct {
	CustomerID  string   `json:"customer_id"`
	InvoiceDate string   `json:"invoice_date"`
	PeriodStart string   `json:"period_start"`
	PeriodEnd   string   `json:"period_end"`
	MonthlyRate *float64 `json:"monthly_rate"`
}

func (s *Server) GenerateInvoice(c *gin.Context) {
	var req generateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	generate := invoicedomain.GenerateRequest{
		CustomerID:  strings.TrimSpace(req.CustomerID),
		MonthlyRate: req.MonthlyRate,
	}

	if strings.TrimSpace(req.InvoiceDate) != "" {
		invoiceDate, err := parseRequiredDate(req.InvoiceDate)
		if err != nil {
			AbortWithError(c, newValidationError("invoice_date", "invalid_invoice_date", "invalid invoice_date"))
			return
		}
		generate.InvoiceDate = invoiceDate
	}
	if strings.TrimSpace(req.PeriodStart) != "" {
		periodStart, err := parseRequiredDate(req.PeriodStart)
		if err != nil {
			AbortWithError(c, newValidationError("period_start", "invalid_period_start", "invalid period_start"))
			return
		}
		generate.PeriodStart = periodStart
	}
	if strings.TrimSpace(req.PeriodEnd) != "" {
		periodEnd, err := parseRequiredDate(req.PeriodEnd)
		if err != nil {
			AbortWithError(c, newValidationError("period_end", "invalid_period_end", "invalid period_end"))
			return
		}
		generate.PeriodEnd = periodEnd
	}

	resp, err := s.invoiceSvc.Generate(c.Request.Context(), generate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     resp.Invoice,
		"warnings": resp.Warnings,
	})
}

func (s *Server) ListInvoices(c *gin.Context) {
	req, ok := bindInvoiceListQuery(c)
	if !ok {
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Invoices,
		"page_info": resp.PageInfo,
	})
}

func bindInvoiceListQuery(c *gin.Context) (invoicedomain.ListInvoiceRequest, bool) {
	var query struct {
		pagination.Pagination
		CustomerID string `form:"customer_id"`
		Status     string `form:"status"`
		DateFrom   string `form:"date_from"`
		DateTo     string `form:"date_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return invoicedomain.ListInvoiceRequest{}, false
	}

	dateFrom, err := parseOptionalTime(query.DateFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("date_from", "invalid_date_from", "invalid date_from"))
		return invoicedomain.ListInvoiceRequest{}, false
	}
	dateTo, err := parseOptionalTime(query.DateTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("date_to", "invalid_date_to", "invalid date_to"))
		return invoicedomain.ListInvoiceRequest{}, false
	}

	return invoicedomain.ListInvoiceRequest{
		CustomerID: strings.TrimSpace(query.CustomerID),
		Status:     invoicedomain.InvoiceStatus(strings.TrimSpace(query.Status)),
		DateFrom:   dateFrom,
		DateTo:     dateTo,
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
	}, true
}

func (s *Server) GetInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoicePDF(c *gin.Context) {
	inv, err := s.invoiceSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data, err := s.invoiceSvc.RenderPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", inv.InvoiceNumber+".pdf"))
	c.Data(http.StatusOK, "application/pdf", data)
}

type sendInvoiceRequest struct {
	Recipient string `json:"recipient"`
}

func (s *Server) SendInvoice(c *gin.Context) {
	var req sendInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.Send(c.Request.Context(), invoicedomain.SendRequest{
		InvoiceID: c.Param("id"),
		Recipient: strings.TrimSpace(req.Recipient),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkInvoicePaid(c *gin.Context) {
	resp, err := s.invoiceSvc.MarkPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) VoidInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.Void(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportInvoicesCSV(c *gin.Context) {
	req, ok := bindInvoiceListQuery(c)
	if !ok {
		return
	}

	data, err := s.invoiceSvc.ExportCSV(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="invoices.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
