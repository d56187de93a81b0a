package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestCalculateAmounts_MonthlyExample(t *testing.T) {
	// 5 units at $10/month, 1 month, 11% tax
	items := make([]RentalLineItem, 5)
	for i := range items {
		items[i] = RentalLineItem{UnitID: "CYL"}
	}
	period := ChargePeriod{MonthsToCharge: 1, Start: date(2024, time.December, 1), End: date(2024, time.December, 31)}

	result, err := CalculateAmounts(items, period, money("10"), money("0.11"))
	require.NoError(t, err)

	rounded := result.Rounded()
	assert.True(t, rounded.Subtotal.Equal(money("50.00")), "subtotal %s", rounded.Subtotal)
	assert.True(t, rounded.TaxAmount.Equal(money("5.50")), "tax %s", rounded.TaxAmount)
	assert.True(t, rounded.Total.Equal(money("55.50")), "total %s", rounded.Total)
}

func TestCalculateAmounts_YearlyExample(t *testing.T) {
	// 3 units at $10/month, 7 months, 11% tax
	items := make([]RentalLineItem, 3)
	for i := range items {
		items[i] = RentalLineItem{UnitID: "CYL"}
	}
	period := ChargePeriod{MonthsToCharge: 7, Start: date(2024, time.April, 1), End: date(2024, time.October, 31)}

	result, err := CalculateAmounts(items, period, money("10"), money("0.11"))
	require.NoError(t, err)

	rounded := result.Rounded()
	assert.True(t, rounded.Subtotal.Equal(money("210.00")))
	assert.True(t, rounded.TaxAmount.Equal(money("23.10")))
	assert.True(t, rounded.Total.Equal(money("233.10")))
}

func TestCalculateAmounts_TotalIsSumOfRoundedParts(t *testing.T) {
	// a rate that forces sub-cent precision internally
	items := []RentalLineItem{{UnitID: "CYL-001"}, {UnitID: "CYL-002"}, {UnitID: "CYL-003"}}
	period := ChargePeriod{MonthsToCharge: 1}

	result, err := CalculateAmounts(items, period, money("9.995"), money("0.0775"))
	require.NoError(t, err)

	// full precision is retained until Rounded
	assert.True(t, result.Total.Equal(result.Subtotal.Add(result.TaxAmount)))

	rounded := result.Rounded()
	assert.True(t, rounded.Total.Equal(rounded.Subtotal.Add(rounded.TaxAmount)))
}

func TestCalculateAmounts_LineTotalsShareMonthsToCharge(t *testing.T) {
	items := []RentalLineItem{{UnitID: "CYL-001"}, {UnitID: "CYL-002"}}
	period := ChargePeriod{MonthsToCharge: 3}

	result, err := CalculateAmounts(items, period, money("10"), money("0"))
	require.NoError(t, err)

	require.Len(t, result.Lines, 2)
	lineSum := decimal.Zero
	for _, line := range result.Lines {
		assert.True(t, line.LineTotal.Equal(money("30")))
		lineSum = lineSum.Add(line.LineTotal)
	}
	// aggregate subtotal reconciles with the per-line totals
	assert.True(t, result.Subtotal.Equal(lineSum))
}

func TestCalculateAmounts_EmptyLineItems(t *testing.T) {
	result, err := CalculateAmounts(nil, ChargePeriod{MonthsToCharge: 1}, money("10"), money("0.11"))

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrNoLineItems)
}

func TestCalculateAmounts_DaysHeldIsDisplayOnly(t *testing.T) {
	rentalStart := date(2024, time.November, 15)
	items := []RentalLineItem{
		{UnitID: "CYL-001", RentalStart: &rentalStart},
		{UnitID: "CYL-002", DaysAtLocation: 90},
	}
	period := ChargePeriod{
		MonthsToCharge: 1,
		Start:          date(2024, time.December, 1),
		End:            date(2024, time.December, 31),
	}

	result, err := CalculateAmounts(items, period, money("10"), money("0"))
	require.NoError(t, err)

	// Nov 15 .. Dec 31 inclusive
	assert.Equal(t, 47, result.Lines[0].DaysHeld)
	// Dec 1 .. Dec 31 inclusive
	assert.Equal(t, 31, result.Lines[1].DaysHeld)
	// identical money regardless of days held
	assert.True(t, result.Lines[0].LineTotal.Equal(result.Lines[1].LineTotal))
}

func TestCalculate_EndToEndMonthly(t *testing.T) {
	req := InvoiceRequest{
		InvoiceDate: date(2024, time.November, 12),
		PeriodStart: date(2024, time.November, 1),
		PeriodEnd:   date(2024, time.November, 30),
		LineItems: []RentalLineItem{
			{UnitID: "CYL-001"}, {UnitID: "CYL-002"}, {UnitID: "CYL-003"},
			{UnitID: "CYL-004"}, {UnitID: "CYL-005"},
		},
		MonthlyRate: money("10"),
		TaxRate:     money("0.11"),
	}

	result, err := Calculate(req)
	require.NoError(t, err)

	assert.False(t, result.IsYearly)
	assert.Equal(t, 1, result.MonthsCharged)
	assert.Equal(t, date(2024, time.December, 1), result.PeriodStart)
	assert.Equal(t, date(2024, time.December, 31), result.PeriodEnd)

	rounded := result.Rounded()
	assert.True(t, rounded.Total.Equal(money("55.50")))
}

func TestCalculate_EndToEndYearlyMidLease(t *testing.T) {
	lease := annualLease("lease-1", date(2024, time.January, 1), date(2024, time.June, 30))
	req := InvoiceRequest{
		InvoiceDate: date(2024, time.March, 15),
		PeriodStart: date(2024, time.March, 1),
		PeriodEnd:   date(2024, time.March, 31),
		LineItems:   []RentalLineItem{{UnitID: "CYL-001"}, {UnitID: "CYL-002"}, {UnitID: "CYL-003"}},
		Lease:       lease,
		MonthlyRate: money("10"),
		TaxRate:     money("0.11"),
	}

	result, err := Calculate(req)
	require.NoError(t, err)

	assert.True(t, result.IsYearly)
	assert.Equal(t, 3, result.MonthsCharged)
	assert.Equal(t, date(2024, time.April, 1), result.PeriodStart)
	assert.Equal(t, date(2024, time.June, 30), result.PeriodEnd)

	rounded := result.Rounded()
	// 3 units x $10 x 3 months = $90, tax $9.90
	assert.True(t, rounded.Subtotal.Equal(money("90.00")))
	assert.True(t, rounded.Total.Equal(money("99.90")))
}

func TestCalculate_ValidationFailures(t *testing.T) {
	base := InvoiceRequest{
		InvoiceDate: date(2024, time.March, 15),
		LineItems:   []RentalLineItem{{UnitID: "CYL-001"}},
		MonthlyRate: money("10"),
	}

	t.Run("zero invoice date", func(t *testing.T) {
		req := base
		req.InvoiceDate = time.Time{}
		_, err := Calculate(req)
		assert.ErrorIs(t, err, ErrInvalidInvoiceDate)
	})

	t.Run("no line items", func(t *testing.T) {
		req := base
		req.LineItems = nil
		_, err := Calculate(req)
		assert.ErrorIs(t, err, ErrNoLineItems)
	})

	t.Run("inverted fallback period", func(t *testing.T) {
		req := base
		req.PeriodStart = date(2024, time.April, 1)
		req.PeriodEnd = date(2024, time.March, 1)
		_, err := Calculate(req)
		assert.ErrorIs(t, err, ErrInvalidDateRange)
	})

	t.Run("inverted lease window", func(t *testing.T) {
		req := base
		req.Lease = &LeaseAgreement{
			ID:               "lease-1",
			BillingFrequency: FrequencyAnnual,
			StartDate:        date(2024, time.June, 1),
			EndDate:          date(2024, time.June, 1),
		}
		_, err := Calculate(req)
		assert.ErrorIs(t, err, ErrInvalidDateRange)
	})
}
