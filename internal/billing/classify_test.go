package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func annualLease(id string, start, end time.Time) *LeaseAgreement {
	return &LeaseAgreement{
		ID:               id,
		BillingFrequency: FrequencyAnnual,
		StartDate:        start,
		EndDate:          end,
	}
}

func TestClassify_MonthlyDefault(t *testing.T) {
	items := []RentalLineItem{{UnitID: "CYL-001"}, {UnitID: "CYL-002"}}

	cls, err := Classify(items, nil, date(2024, time.November, 1), date(2024, time.November, 30))
	require.NoError(t, err)

	assert.False(t, cls.IsYearly)
	assert.Nil(t, cls.Lease)
	assert.Empty(t, cls.Warnings)
}

func TestClassify_ExplicitYearlyTagWins(t *testing.T) {
	items := []RentalLineItem{
		{UnitID: "CYL-001"},
		{UnitID: "CYL-002", RentalType: RentalTypeYearly},
	}

	cls, err := Classify(items, nil, date(2024, time.November, 1), date(2024, time.November, 30))
	require.NoError(t, err)

	assert.True(t, cls.IsYearly)
}

func TestClassify_AttachedLeaseAppliesToWholeSet(t *testing.T) {
	lease := annualLease("lease-1", date(2024, time.January, 1), date(2024, time.December, 31))
	items := []RentalLineItem{
		{UnitID: "CYL-001", Lease: lease},
		{UnitID: "CYL-002"},
		{UnitID: "CYL-003"},
	}

	cls, err := Classify(items, nil, date(2024, time.March, 1), date(2024, time.March, 31))
	require.NoError(t, err)

	assert.True(t, cls.IsYearly)
	require.NotNil(t, cls.Lease)
	assert.Equal(t, "lease-1", cls.Lease.ID)
	for _, item := range cls.LineItems {
		require.NotNil(t, item.Lease)
		assert.Equal(t, "lease-1", item.Lease.ID)
	}

	// input rows must stay untouched
	assert.Nil(t, items[1].Lease)
	assert.Nil(t, items[2].Lease)
}

func TestClassify_StandaloneLeaseAttaches(t *testing.T) {
	lease := annualLease("lease-2", date(2024, time.January, 1), date(2024, time.December, 31))
	items := []RentalLineItem{{UnitID: "CYL-001"}, {UnitID: "CYL-002"}}

	cls, err := Classify(items, lease, date(2024, time.March, 1), date(2024, time.March, 31))
	require.NoError(t, err)

	assert.True(t, cls.IsYearly)
	require.NotNil(t, cls.Lease)
	assert.Equal(t, "lease-2", cls.Lease.ID)
	for _, item := range cls.LineItems {
		require.NotNil(t, item.Lease)
	}
}

func TestClassify_MonthlyFrequencyLeaseDoesNotQualify(t *testing.T) {
	lease := &LeaseAgreement{ID: "lease-3", BillingFrequency: FrequencyMonthly}
	items := []RentalLineItem{{UnitID: "CYL-001", Lease: lease}}

	cls, err := Classify(items, nil, date(2024, time.November, 1), date(2024, time.November, 30))
	require.NoError(t, err)

	assert.False(t, cls.IsYearly)
}

func TestClassify_TwelveMonthPeriodHeuristic(t *testing.T) {
	items := []RentalLineItem{{UnitID: "CYL-001"}}

	cls, err := Classify(items, nil, date(2024, time.January, 1), date(2024, time.December, 31))
	require.NoError(t, err)
	assert.True(t, cls.IsYearly)

	cls, err = Classify(items, nil, date(2024, time.January, 1), date(2024, time.November, 30))
	require.NoError(t, err)
	assert.False(t, cls.IsYearly)
}

func TestClassify_ConflictingSignalsWarnButYearlyWins(t *testing.T) {
	items := []RentalLineItem{
		{UnitID: "CYL-001", RentalType: RentalTypeMonthly},
		{UnitID: "CYL-002", RentalType: RentalTypeYearly},
	}

	cls, err := Classify(items, nil, date(2024, time.November, 1), date(2024, time.November, 30))
	require.NoError(t, err)

	assert.True(t, cls.IsYearly)
	require.Len(t, cls.Warnings, 1)
	assert.Equal(t, WarnAmbiguousClassification, cls.Warnings[0].Code)
}

func TestClassify_MixedLeasesRejected(t *testing.T) {
	leaseA := annualLease("lease-a", date(2024, time.January, 1), date(2024, time.December, 31))
	leaseB := annualLease("lease-b", date(2024, time.February, 1), date(2025, time.January, 31))
	items := []RentalLineItem{
		{UnitID: "CYL-001", Lease: leaseA},
		{UnitID: "CYL-002", Lease: leaseB},
	}

	_, err := Classify(items, nil, date(2024, time.March, 1), date(2024, time.March, 31))
	assert.ErrorIs(t, err, ErrMixedLeases)
}

func TestClassify_StandaloneConflictsWithAttachedLease(t *testing.T) {
	attached := annualLease("lease-a", date(2024, time.January, 1), date(2024, time.December, 31))
	standalone := annualLease("lease-b", date(2024, time.February, 1), date(2025, time.January, 31))
	items := []RentalLineItem{{UnitID: "CYL-001", Lease: attached}}

	_, err := Classify(items, standalone, date(2024, time.March, 1), date(2024, time.March, 31))
	assert.ErrorIs(t, err, ErrMixedLeases)
}

func TestParseBillingFrequency(t *testing.T) {
	tests := []struct {
		raw  string
		want BillingFrequency
		ok   bool
	}{
		{"annual", FrequencyAnnual, true},
		{"Annually", FrequencyAnnual, true},
		{"YEARLY", FrequencyAnnual, true},
		{"semi-annual", FrequencySemiAnnual, true},
		{"Semi Annual", FrequencySemiAnnual, true},
		{"quarterly", FrequencyQuarterly, true},
		{"monthly", FrequencyMonthly, true},
		{" month ", FrequencyMonthly, true},
		{"fortnightly", FrequencyUnknown, false},
		{"", FrequencyUnknown, false},
	}

	for _, tt := range tests {
		got, ok := ParseBillingFrequency(tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
	}
}

func TestMonthSpan(t *testing.T) {
	assert.Equal(t, 1, monthSpan(date(2024, time.November, 1), date(2024, time.November, 30)))
	assert.Equal(t, 12, monthSpan(date(2024, time.January, 1), date(2024, time.December, 31)))
	assert.Equal(t, 2, monthSpan(date(2024, time.December, 15), date(2025, time.January, 2)))
}
