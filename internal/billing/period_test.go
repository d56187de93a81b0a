package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveChargePeriod_MonthlyAlwaysOneMonthInAdvance(t *testing.T) {
	tests := []struct {
		name        string
		invoiceDate time.Time
		wantStart   time.Time
		wantEnd     time.Time
	}{
		{
			name:        "mid november bills december",
			invoiceDate: date(2024, time.November, 12),
			wantStart:   date(2024, time.December, 1),
			wantEnd:     date(2024, time.December, 31),
		},
		{
			name:        "december wraps to january",
			invoiceDate: date(2024, time.December, 28),
			wantStart:   date(2025, time.January, 1),
			wantEnd:     date(2025, time.January, 31),
		},
		{
			name:        "february target respects leap year",
			invoiceDate: date(2024, time.January, 15),
			wantStart:   date(2024, time.February, 1),
			wantEnd:     date(2024, time.February, 29),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// fallback period deliberately nonsense: monthly ignores it
			got := ResolveChargePeriod(false, nil, tt.invoiceDate, date(2020, time.May, 3), date(2021, time.June, 9))
			assert.Equal(t, 1, got.MonthsToCharge)
			assert.Equal(t, tt.wantStart, got.Start)
			assert.Equal(t, tt.wantEnd, got.End)
		})
	}
}

func TestResolveChargePeriod_YearlyNoLeaseDefaultsToFallback(t *testing.T) {
	got := ResolveChargePeriod(true, nil, date(2024, time.March, 15), date(2024, time.January, 1), date(2024, time.December, 31))

	assert.Equal(t, 12, got.MonthsToCharge)
	assert.Equal(t, date(2024, time.January, 1), got.Start)
	assert.Equal(t, date(2024, time.December, 31), got.End)
}

func TestResolveChargePeriod_YearlyLeaseWithoutEndDate(t *testing.T) {
	lease := &LeaseAgreement{ID: "lease-1", BillingFrequency: FrequencyAnnual}
	got := ResolveChargePeriod(true, lease, date(2024, time.March, 15), date(2024, time.April, 1), date(2025, time.March, 31))

	assert.Equal(t, 12, got.MonthsToCharge)
	assert.Equal(t, date(2024, time.April, 1), got.Start)
}

func TestResolveChargePeriod_RenewalRollover(t *testing.T) {
	lease := annualLease("lease-1", date(2023, time.December, 1), date(2024, time.November, 30))

	got := ResolveChargePeriod(true, lease, date(2024, time.December, 5), time.Time{}, time.Time{})

	assert.Equal(t, 12, got.MonthsToCharge)
	assert.Equal(t, date(2025, time.January, 1), got.Start)
	assert.Equal(t, date(2025, time.December, 31), got.End)
}

func TestResolveChargePeriod_RenewalInvoicedIntoNewYear(t *testing.T) {
	lease := annualLease("lease-1", date(2023, time.December, 1), date(2024, time.November, 30))

	// invoiced months after the term lapsed: still the first renewal year
	got := ResolveChargePeriod(true, lease, date(2025, time.March, 10), time.Time{}, time.Time{})

	assert.Equal(t, 12, got.MonthsToCharge)
	assert.Equal(t, date(2025, time.January, 1), got.Start)
	assert.Equal(t, date(2025, time.December, 31), got.End)
}

func TestResolveChargePeriod_RenewalLongAfterExpiryBillsInvoiceYear(t *testing.T) {
	lease := annualLease("lease-1", date(2023, time.December, 1), date(2024, time.November, 30))

	got := ResolveChargePeriod(true, lease, date(2026, time.February, 10), time.Time{}, time.Time{})

	assert.Equal(t, 12, got.MonthsToCharge)
	assert.Equal(t, date(2026, time.January, 1), got.Start)
	assert.Equal(t, date(2026, time.December, 31), got.End)
}

func TestResolveChargePeriod_EndDateBoundaryIsNotRenewal(t *testing.T) {
	lease := annualLease("lease-1", date(2023, time.December, 1), date(2024, time.November, 30))

	// invoice dated exactly on the lease end: still the old term
	got := ResolveChargePeriod(true, lease, date(2024, time.November, 30), time.Time{}, time.Time{})

	assert.NotEqual(t, date(2025, time.January, 1), got.Start)
	assert.Equal(t, 1, got.MonthsToCharge)
	assert.Equal(t, date(2024, time.December, 1), got.Start)
	assert.Equal(t, date(2024, time.December, 31), got.End)
}

func TestResolveChargePeriod_MidLeaseRemainder(t *testing.T) {
	lease := annualLease("lease-1", date(2024, time.January, 1), date(2024, time.June, 30))

	got := ResolveChargePeriod(true, lease, date(2024, time.March, 15), time.Time{}, time.Time{})

	// April through June inclusive
	assert.Equal(t, 3, got.MonthsToCharge)
	assert.Equal(t, date(2024, time.April, 1), got.Start)
	assert.Equal(t, date(2024, time.June, 30), got.End)
}

func TestResolveChargePeriod_DecemberInvoiceWrapsYear(t *testing.T) {
	lease := annualLease("lease-1", date(2024, time.June, 1), date(2025, time.May, 31))

	got := ResolveChargePeriod(true, lease, date(2024, time.December, 10), time.Time{}, time.Time{})

	// January through May of the next year
	assert.Equal(t, 5, got.MonthsToCharge)
	assert.Equal(t, date(2025, time.January, 1), got.Start)
	assert.Equal(t, date(2025, time.May, 31), got.End)
}

func TestResolveChargePeriod_ClampsToAtLeastOneMonth(t *testing.T) {
	// lease ending within the invoice month: the raw span from the next
	// month would be zero
	lease := annualLease("lease-1", date(2024, time.March, 1), date(2024, time.March, 31))

	got := ResolveChargePeriod(true, lease, date(2024, time.March, 10), time.Time{}, time.Time{})

	assert.Equal(t, 1, got.MonthsToCharge)
	assert.Equal(t, date(2024, time.April, 1), got.Start)
	assert.Equal(t, date(2024, time.April, 30), got.End)
}

func TestResolveChargePeriod_ClampsToTwelveMonths(t *testing.T) {
	// multi-year agreement: a single invoice still never exceeds a year
	lease := annualLease("lease-1", date(2024, time.January, 1), date(2026, time.June, 30))

	got := ResolveChargePeriod(true, lease, date(2024, time.February, 10), time.Time{}, time.Time{})

	assert.Equal(t, 12, got.MonthsToCharge)
	assert.Equal(t, date(2024, time.March, 1), got.Start)
	assert.Equal(t, date(2025, time.February, 28), got.End)
}

func TestClampMonths(t *testing.T) {
	assert.Equal(t, 1, clampMonths(0))
	assert.Equal(t, 1, clampMonths(-3))
	assert.Equal(t, 7, clampMonths(7))
	assert.Equal(t, 12, clampMonths(13))
}
