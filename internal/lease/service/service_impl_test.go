package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gastrack/cylinderbill/internal/clock"
	"github.com/gastrack/cylinderbill/internal/config"
	settingsdomain "github.com/gastrack/cylinderbill/internal/invoicesettings/domain"
	settingsservice "github.com/gastrack/cylinderbill/internal/invoicesettings/service"
	"github.com/gastrack/cylinderbill/internal/lease/domain"
	"github.com/gastrack/cylinderbill/internal/orgcontext"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func setupService(t *testing.T, now time.Time) (domain.Service, context.Context, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&settingsdomain.InvoiceSettings{},
		&domain.LeaseAgreement{},
		&domain.BillingRecord{},
	))

	log := zap.NewNop()
	fake := clock.NewFakeClock(now)
	settings := settingsservice.New(settingsservice.Params{DB: db, Log: log})
	holder, err := config.NewBillingConfigHolder(log)
	require.NoError(t, err)

	node, err := snowflake.NewNode(9)
	require.NoError(t, err)

	svc := New(Params{
		DB:       db,
		Log:      log,
		Clock:    fake,
		GenID:    node,
		Settings: settings,
		Billing:  holder,
	})

	ctx := orgcontext.WithOrgID(context.Background(), node.Generate())
	return svc, ctx, fake
}

func TestCreateAssignsSequentialAgreementNumbers(t *testing.T) {
	svc, ctx, _ := setupService(t, date(2024, time.March, 1))

	first, err := svc.Create(ctx, domain.CreateLeaseRequest{
		CustomerName:     "Acme Welding",
		BillingFrequency: "annual",
		StartDate:        date(2024, time.January, 1),
		EndDate:          date(2024, time.December, 31),
		AnnualAmount:     decimal.NewFromInt(1200),
	})
	require.NoError(t, err)
	assert.Equal(t, "LA00001", first.AgreementNumber)
	assert.Equal(t, "annual", first.BillingFrequency)
	assert.Equal(t, domain.LeaseStatusActive, first.Status)

	second, err := svc.Create(ctx, domain.CreateLeaseRequest{
		CustomerName:     "Borealis Labs",
		BillingFrequency: "Semi-Annual",
		StartDate:        date(2024, time.February, 1),
		EndDate:          date(2025, time.January, 31),
		AnnualAmount:     decimal.NewFromInt(900),
	})
	require.NoError(t, err)
	assert.Equal(t, "LA00002", second.AgreementNumber)
	assert.Equal(t, "semi_annual", second.BillingFrequency)
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc, ctx, _ := setupService(t, date(2024, time.March, 1))

	_, err := svc.Create(ctx, domain.CreateLeaseRequest{
		CustomerName:     "Acme Welding",
		BillingFrequency: "biweekly",
		StartDate:        date(2024, time.January, 1),
		EndDate:          date(2024, time.December, 31),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidFrequency)

	_, err = svc.Create(ctx, domain.CreateLeaseRequest{
		CustomerName:     "Acme Welding",
		BillingFrequency: "annual",
		StartDate:        date(2024, time.June, 1),
		EndDate:          date(2024, time.June, 1),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	_, err = svc.Create(ctx, domain.CreateLeaseRequest{
		BillingFrequency: "annual",
		StartDate:        date(2024, time.January, 1),
		EndDate:          date(2024, time.December, 31),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)
}

func TestFindActiveForCustomerPrefersIDOverName(t *testing.T) {
	svc, ctx, _ := setupService(t, date(2024, time.March, 1))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	customerID := node.Generate()

	byName, err := svc.Create(ctx, domain.CreateLeaseRequest{
		CustomerName:     "Acme Welding",
		BillingFrequency: "annual",
		StartDate:        date(2023, time.January, 1),
		EndDate:          date(2025, time.December, 31),
		AnnualAmount:     decimal.NewFromInt(600),
	})
	require.NoError(t, err)

	byID, err := svc.Create(ctx, domain.CreateLeaseRequest{
		CustomerID:       customerID.String(),
		CustomerName:     "Acme Welding",
		BillingFrequency: "semi_annual",
		StartDate:        date(2024, time.January, 1),
		EndDate:          date(2025, time.December, 31),
		AnnualAmount:     decimal.NewFromInt(800),
	})
	require.NoError(t, err)

	found, err := svc.FindActiveForCustomer(ctx, customerID, "Acme Welding")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, byID.AgreementNumber, found.AgreementNumber)

	// no id match falls back to the name rank, case-insensitively
	found, err = svc.FindActiveForCustomer(ctx, 0, "acme welding")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, byName.CustomerName, found.CustomerName)

	found, err = svc.FindActiveForCustomer(ctx, 0, "Nobody Known")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFindActiveForCustomerIgnoresInactive(t *testing.T) {
	svc, ctx, _ := setupService(t, date(2024, time.March, 1))

	created, err := svc.Create(ctx, domain.CreateLeaseRequest{
		CustomerName:     "Cryo Services",
		BillingFrequency: "annual",
		StartDate:        date(2023, time.January, 1),
		EndDate:          date(2023, time.December, 31),
		AnnualAmount:     decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	expired := domain.LeaseStatusExpired
	_, err = svc.Update(ctx, created.ID.String(), domain.UpdateLeaseRequest{Status: &expired})
	require.NoError(t, err)

	found, err := svc.FindActiveForCustomer(ctx, 0, "Cryo Services")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestUpdatePersistsChanges(t *testing.T) {
	svc, ctx, _ := setupService(t, date(2024, time.March, 1))

	created, err := svc.Create(ctx, domain.CreateLeaseRequest{
		CustomerName:     "Cryo Services",
		BillingFrequency: "annual",
		StartDate:        date(2024, time.January, 1),
		EndDate:          date(2024, time.December, 31),
		AnnualAmount:     decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	amount := decimal.NewFromInt(750)
	terms := "Net 45"
	frequency := "quarterly"
	_, err = svc.Update(ctx, created.ID.String(), domain.UpdateLeaseRequest{
		BillingFrequency: &frequency,
		AnnualAmount:     &amount,
		PaymentTerms:     &terms,
	})
	require.NoError(t, err)

	reloaded, err := svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.True(t, reloaded.AnnualAmount.Equal(amount))
	assert.Equal(t, "Net 45", reloaded.PaymentTerms)
	assert.Equal(t, "quarterly", reloaded.BillingFrequency)
}

func TestProcessDueBillingAnnual(t *testing.T) {
	svc, ctx, _ := setupService(t, date(2024, time.March, 15))

	lease, err := svc.Create(ctx, domain.CreateLeaseRequest{
		CustomerName:     "Acme Welding",
		BillingFrequency: "annual",
		StartDate:        date(2024, time.March, 1),
		EndDate:          date(2026, time.February, 28),
		AnnualAmount:     decimal.NewFromInt(1200),
		PaymentTerms:     "Net 30",
	})
	require.NoError(t, err)

	results, err := svc.ProcessDueBilling(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Processed)
	assert.Equal(t, lease.AgreementNumber, results[0].AgreementNumber)
	require.NotNil(t, results[0].NextBillingDate)
	assert.Equal(t, date(2025, time.March, 1), *results[0].NextBillingDate)

	updated, err := svc.GetByID(ctx, lease.ID.String())
	require.NoError(t, err)
	require.NotNil(t, updated.LastBillingDate)
	assert.True(t, updated.LastBillingDate.Equal(date(2024, time.March, 15)))

	// the sweep is idempotent once the schedule has advanced
	results, err = svc.ProcessDueBilling(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestProcessDueBillingQuarterlyAmountAndDueDate(t *testing.T) {
	svc, ctx, _ := setupService(t, date(2024, time.April, 1))

	lease, err := svc.Create(ctx, domain.CreateLeaseRequest{
		CustomerName:     "Borealis Labs",
		BillingFrequency: "quarterly",
		StartDate:        date(2024, time.April, 1),
		EndDate:          date(2025, time.March, 31),
		AnnualAmount:     decimal.NewFromInt(1000),
		PaymentTerms:     "Net 45",
	})
	require.NoError(t, err)
	_ = lease

	results, err := svc.ProcessDueBilling(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Processed)
	assert.Equal(t, date(2024, time.July, 1), *results[0].NextBillingDate)

	db := svc.(*Service).db
	var record domain.BillingRecord
	require.NoError(t, db.First(&record).Error)
	assert.True(t, record.PeriodStart.Equal(date(2024, time.April, 1)))
	assert.True(t, record.PeriodEnd.Equal(date(2024, time.June, 30)))
	assert.True(t, record.DueDate.Equal(date(2024, time.May, 16)))
	assert.True(t, record.Subtotal.Equal(decimal.NewFromInt(250)), "got %s", record.Subtotal)
}

func TestProcessDueBillingAppliesTaxAndInvoiceNumber(t *testing.T) {
	svc, ctx, _ := setupService(t, date(2024, time.April, 1))

	taxRate := 0.08
	_, err := svc.Create(ctx, domain.CreateLeaseRequest{
		CustomerName:     "Borealis Labs",
		BillingFrequency: "quarterly",
		StartDate:        date(2024, time.April, 1),
		EndDate:          date(2025, time.March, 31),
		AnnualAmount:     decimal.NewFromInt(1000),
		TaxRate:          &taxRate,
		PaymentTerms:     "Net 30",
	})
	require.NoError(t, err)

	results, err := svc.ProcessDueBilling(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Processed)
	assert.Equal(t, "W00001", results[0].InvoiceNumber)

	db := svc.(*Service).db
	var record domain.BillingRecord
	require.NoError(t, db.First(&record).Error)
	assert.Equal(t, "W00001", record.InvoiceNumber)
	assert.True(t, record.Subtotal.Equal(decimal.NewFromInt(250)), "got %s", record.Subtotal)
	assert.True(t, record.TaxAmount.Equal(decimal.NewFromInt(20)), "got %s", record.TaxAmount)
	assert.True(t, record.TotalAmount.Equal(decimal.NewFromInt(270)), "got %s", record.TotalAmount)
}

func TestProcessDueBillingExpiresAfterFinalPeriod(t *testing.T) {
	svc, ctx, fake := setupService(t, date(2024, time.July, 1))

	lease, err := svc.Create(ctx, domain.CreateLeaseRequest{
		CustomerName:     "Cryo Services",
		BillingFrequency: "semi_annual",
		StartDate:        date(2024, time.January, 1),
		EndDate:          date(2024, time.December, 31),
		AnnualAmount:     decimal.NewFromInt(600),
	})
	require.NoError(t, err)

	// first half
	results, err := svc.ProcessDueBilling(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].NextBillingDate)
	assert.Equal(t, date(2024, time.July, 1), *results[0].NextBillingDate)

	// second and final half
	fake.Advance(24 * time.Hour)
	results, err = svc.ProcessDueBilling(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Processed)
	assert.Nil(t, results[0].NextBillingDate)

	updated, err := svc.GetByID(ctx, lease.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.LeaseStatusExpired, updated.Status)
	assert.Nil(t, updated.NextBillingDate)
}

func TestDueDaysParsing(t *testing.T) {
	assert.Equal(t, 30, dueDays("Net 30", 14))
	assert.Equal(t, 45, dueDays("net45", 14))
	assert.Equal(t, 60, dueDays("NET 60", 14))
	assert.Equal(t, 14, dueDays("", 14))
	assert.Equal(t, 14, dueDays("on receipt", 14))
}
