package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	settingsdomain "github.com/gastrack/cylinderbill/internal/invoicesettings/domain"
)

func (s *Server) GetInvoiceSettings(c *gin.Context) {
	resp, err := s.settingsSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateSettingsRequest struct {
	InvoicePrefix   *string  `json:"invoice_prefix"`
	AgreementPrefix *string  `json:"agreement_prefix"`
	DefaultTaxRate  *float64 `json:"default_tax_rate"`
	EmailSubject    *string  `json:"email_subject"`
	EmailBody       *string  `json:"email_body"`
}

func (s *Server) UpdateInvoiceSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settingsSvc.Update(c.Request.Context(), settingsdomain.UpdateSettingsRequest{
		InvoicePrefix:   req.InvoicePrefix,
		AgreementPrefix: req.AgreementPrefix,
		DefaultTaxRate:  req.DefaultTaxRate,
		EmailSubject:    req.EmailSubject,
		EmailBody:       req.EmailBody,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
