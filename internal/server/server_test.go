package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gastrack/cylinderbill/internal/clock"
	"github.com/gastrack/cylinderbill/internal/config"
	customerdomain "github.com/gastrack/cylinderbill/internal/customer/domain"
	customerservice "github.com/gastrack/cylinderbill/internal/customer/service"
	invoicedomain "github.com/gastrack/cylinderbill/internal/invoice/domain"
	invoiceservice "github.com/gastrack/cylinderbill/internal/invoice/service"
	settingsdomain "github.com/gastrack/cylinderbill/internal/invoicesettings/domain"
	settingsservice "github.com/gastrack/cylinderbill/internal/invoicesettings/service"
	leasedomain "github.com/gastrack/cylinderbill/internal/lease/domain"
	leaseservice "github.com/gastrack/cylinderbill/internal/lease/service"
	locationdomain "github.com/gastrack/cylinderbill/internal/location/domain"
	locationservice "github.com/gastrack/cylinderbill/internal/location/service"
	orgdomain "github.com/gastrack/cylinderbill/internal/organization/domain"
	orgservice "github.com/gastrack/cylinderbill/internal/organization/service"
	"github.com/gastrack/cylinderbill/internal/providers/email"
	"github.com/gastrack/cylinderbill/internal/providers/pdf"
	rentaldomain "github.com/gastrack/cylinderbill/internal/rental/domain"
	rentalservice "github.com/gastrack/cylinderbill/internal/rental/service"
	taxservice "github.com/gastrack/cylinderbill/internal/tax/service"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&customerdomain.Customer{},
		&locationdomain.Location{},
		&rentaldomain.Rental{},
		&leasedomain.LeaseAgreement{},
		&leasedomain.BillingRecord{},
		&settingsdomain.InvoiceSettings{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
	))

	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC))
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	holder, err := config.NewBillingConfigHolder(log)
	require.NoError(t, err)

	orgs := orgservice.New(orgservice.Params{DB: db, Log: log, GenID: node})
	customers := customerservice.New(customerservice.Params{DB: db, Log: log, GenID: node})
	locations := locationservice.New(locationservice.Params{DB: db, Log: log, GenID: node})
	rentals := rentalservice.New(rentalservice.Params{DB: db, Log: log, GenID: node})
	settings := settingsservice.New(settingsservice.Params{DB: db, Log: log})
	leases := leaseservice.New(leaseservice.Params{
		DB: db, Log: log, Clock: fake, GenID: node, Settings: settings, Billing: holder,
	})
	resolver := taxservice.New(taxservice.Params{
		Log: log, Locations: locations, Settings: settings, Billing: holder,
	})
	invoices := invoiceservice.New(invoiceservice.Params{
		DB: db, Log: log, Clock: fake, GenID: node,
		Orgs: orgs, Customers: customers, Rentals: rentals, Leases: leases,
		Tax: resolver, Settings: settings, Billing: holder,
		PDF: &pdf.NoOpProvider{}, Email: &email.NoOpProvider{},
	})

	return NewServer(ServerParams{
		Gin:             NewEngine(log),
		Cfg:             config.Config{HTTPAddr: ":0"},
		Log:             log,
		GenID:           node,
		OrganizationSvc: orgs,
		CustomerSvc:     customers,
		LocationSvc:     locations,
		RentalSvc:       rentals,
		LeaseSvc:        leases,
		SettingsSvc:     settings,
		InvoiceSvc:      invoices,
	})
}

func doJSON(t *testing.T, s *Server, method, path, orgID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if orgID != "" {
		req.Header.Set(HeaderOrg, orgID)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func dataField(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload.Data
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOrgHeaderRequired(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/v1/customers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, s, http.MethodGet, "/v1/customers", "not-a-snowflake", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInvoiceGenerationFlow(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/v1/organizations", "", gin.H{"name": "Northern Gas Supply"})
	require.Equal(t, http.StatusOK, w.Code)
	orgID, _ := dataField(t, w)["id"].(string)
	require.NotEmpty(t, orgID)

	w = doJSON(t, s, http.MethodPost, "/v1/customers", orgID, gin.H{
		"name":  "Acme Welding",
		"email": "billing@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	customerID, _ := dataField(t, w)["id"].(string)
	require.NotEmpty(t, customerID)

	for _, unit := range []string{"OX-100", "OX-101"} {
		w = doJSON(t, s, http.MethodPost, "/v1/rentals", orgID, gin.H{
			"customer_id": customerID,
			"unit_id":     unit,
			"gas_type":    "Oxygen",
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/v1/invoices/generate", orgID, gin.H{
		"customer_id":  customerID,
		"invoice_date": "2024-03-15",
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := dataField(t, w)
	assert.Equal(t, "W00001", data["invoice_number"])
	assert.Equal(t, false, data["is_yearly"])
	assert.Equal(t, "22.2", data["total"])

	w = doJSON(t, s, http.MethodGet, "/v1/invoices", orgID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listPayload struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listPayload))
	require.Len(t, listPayload.Data, 1)

	w = doJSON(t, s, http.MethodGet, "/v1/invoices/export", orgID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "W00001")
}

func TestGenerateInvoiceWithoutRentalsIsBadRequest(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/v1/organizations", "", gin.H{"name": "Empty Org"})
	require.Equal(t, http.StatusOK, w.Code)
	orgID, _ := dataField(t, w)["id"].(string)

	w = doJSON(t, s, http.MethodPost, "/v1/customers", orgID, gin.H{"name": "No Rentals Inc"})
	require.Equal(t, http.StatusOK, w.Code)
	customerID, _ := dataField(t, w)["id"].(string)

	w = doJSON(t, s, http.MethodPost, "/v1/invoices/generate", orgID, gin.H{
		"customer_id": customerID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeaseRoutes(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/v1/organizations", "", gin.H{"name": "Lease Org"})
	require.Equal(t, http.StatusOK, w.Code)
	orgID, _ := dataField(t, w)["id"].(string)

	w = doJSON(t, s, http.MethodPost, "/v1/leases", orgID, gin.H{
		"customer_name":     "Borealis Labs",
		"billing_frequency": "annual",
		"start_date":        "2024-01-01",
		"end_date":          "2024-12-31",
		"annual_amount":     1200,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "LA00001", dataField(t, w)["agreement_number"])

	w = doJSON(t, s, http.MethodPost, "/v1/leases", orgID, gin.H{
		"customer_name":     "Bad Cadence Co",
		"billing_frequency": "hourly",
		"start_date":        "2024-01-01",
		"end_date":          "2024-12-31",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPost, "/v1/leases/process-due", orgID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
