package billing

import "time"

// ResolveChargePeriod computes how many whole months one invoice bills
// and the calendar window it covers.
//
// Monthly invoices always bill exactly one month in advance: the full
// calendar month after the invoice date's month, regardless of the
// user-entered fallback period.
//
// Yearly invoices bill the remainder of the lease term when invoiced
// mid-term and a full twelve months on renewal, so a customer is never
// double-billed across a renewal boundary. The month count is clamped
// to [1, 12].
func ResolveChargePeriod(isYearly bool, lease *LeaseAgreement, invoiceDate, fallbackStart, fallbackEnd time.Time) ChargePeriod {
	if !isYearly {
		start := firstOfNextMonth(invoiceDate)
		return ChargePeriod{
			MonthsToCharge: 1,
			Start:          start,
			End:            lastDayOfMonth(start),
		}
	}

	// No lease window to prorate against: default to a full year over
	// the user-entered period.
	if lease == nil || lease.EndDate.IsZero() {
		return ChargePeriod{
			MonthsToCharge: 12,
			Start:          dateOf(fallbackStart),
			End:            dateOf(fallbackEnd),
		}
	}

	leaseEnd := dateOf(lease.EndDate)

	// Renewal rollover: the invoice is dated strictly after the lease
	// expired, so this bills the new contract year, the calendar year
	// following the old term. An invoice issued even later bills its
	// own year. Equality with the end date still belongs to the old
	// term.
	if dateOf(invoiceDate).After(leaseEnd) {
		year := leaseEnd.Year() + 1
		if y := invoiceDate.UTC().Year(); y > year {
			year = y
		}
		return ChargePeriod{
			MonthsToCharge: 12,
			Start:          time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:            time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
		}
	}

	// Mid-lease: bill from the month after the invoice date through the
	// lease's end month inclusive.
	start := firstOfNextMonth(invoiceDate)
	months := monthSpan(start, leaseEnd)
	months = clampMonths(months)

	return ChargePeriod{
		MonthsToCharge: months,
		Start:          start,
		End:            lastDayOfMonth(start.AddDate(0, months-1, 0)),
	}
}

// clampMonths keeps the charge inside one contract year: never zero or
// negative months, never more than twelve on a single invoice.
func clampMonths(months int) int {
	if months < 1 {
		return 1
	}
	if months > 12 {
		return 12
	}
	return months
}

// firstOfNextMonth returns the 1st of the month after t, rolling
// December into January of the next year.
func firstOfNextMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

// lastDayOfMonth returns the final calendar day of t's month.
func lastDayOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
}
