package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gastrack/cylinderbill/internal/billing"
	customerdomain "github.com/gastrack/cylinderbill/internal/customer/domain"
	invoicedomain "github.com/gastrack/cylinderbill/internal/invoice/domain"
	settingsdomain "github.com/gastrack/cylinderbill/internal/invoicesettings/domain"
	leasedomain "github.com/gastrack/cylinderbill/internal/lease/domain"
	locationdomain "github.com/gastrack/cylinderbill/internal/location/domain"
	organizationdomain "github.com/gastrack/cylinderbill/internal/organization/domain"
	rentaldomain "github.com/gastrack/cylinderbill/internal/rental/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrMissingOrg     = errors.New("missing_organization")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrMissingOrg):
		return http.StatusUnauthorized, errorPayload{
			Type:    "missing_organization",
			Message: "organization header required",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, organizationdomain.ErrInvalidName),
		errors.Is(err, customerdomain.ErrInvalidName),
		errors.Is(err, customerdomain.ErrInvalidOrganization),
		errors.Is(err, locationdomain.ErrInvalidName),
		errors.Is(err, locationdomain.ErrInvalidTaxRate),
		errors.Is(err, rentaldomain.ErrInvalidCustomer),
		errors.Is(err, rentaldomain.ErrInvalidUnit),
		errors.Is(err, rentaldomain.ErrInvalidRentalType),
		errors.Is(err, leasedomain.ErrInvalidCustomer),
		errors.Is(err, leasedomain.ErrInvalidFrequency),
		errors.Is(err, leasedomain.ErrInvalidDateRange),
		errors.Is(err, settingsdomain.ErrInvalidPrefix),
		errors.Is(err, invoicedomain.ErrInvalidCustomer),
		errors.Is(err, invoicedomain.ErrNoActiveRentals),
		errors.Is(err, invoicedomain.ErrNoRecipient),
		errors.Is(err, invoicedomain.ErrNotSendable),
		errors.Is(err, billing.ErrNoLineItems),
		errors.Is(err, billing.ErrInvalidInvoiceDate),
		errors.Is(err, billing.ErrInvalidDateRange),
		errors.Is(err, billing.ErrMixedLeases):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, locationdomain.ErrNotFound),
		errors.Is(err, rentaldomain.ErrNotFound),
		errors.Is(err, leasedomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, organizationdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}
