package billing

import (
	"fmt"
	"time"
)

// Classify decides whether a customer's rentals bill monthly or yearly.
//
// Decision order, first match wins:
//  1. any line item explicitly tagged yearly
//  2. any attached lease with a yearly cadence; that lease is applied to
//     the whole set
//  3. a qualifying standalone lease (resolved by the caller's lookup),
//     attached to every line item lacking one
//  4. a fallback period spanning exactly 12 whole calendar months
//  5. otherwise monthly
//
// A false negative under-bills a long-term contract, so any yearly
// signal wins; conflicting monthly tags only produce a warning. Line
// items are returned as annotated copies; the input slice is never
// mutated.
func Classify(lineItems []RentalLineItem, standaloneLease *LeaseAgreement, periodStart, periodEnd time.Time) (Classification, error) {
	items := make([]RentalLineItem, len(lineItems))
	copy(items, lineItems)

	if err := checkUniformLease(items, standaloneLease); err != nil {
		return Classification{}, err
	}

	cls := Classification{LineItems: items}

	// 1. explicit yearly tag
	for _, item := range items {
		if item.RentalType == RentalTypeYearly {
			cls.IsYearly = true
			break
		}
	}

	// 2. attached lease with yearly cadence
	if lease := firstYearlyLease(items); lease != nil {
		cls.IsYearly = true
		cls.Lease = lease
	}

	// 3. standalone lease from the customer-level lookup
	if cls.Lease == nil && standaloneLease != nil && standaloneLease.BillingFrequency.Yearly() {
		cls.IsYearly = true
		cls.Lease = standaloneLease
	}

	// One customer, one active lease: apply it uniformly to every line
	// item that was never linked.
	if cls.Lease != nil {
		for i := range cls.LineItems {
			if cls.LineItems[i].Lease == nil {
				cls.LineItems[i].Lease = cls.Lease
			}
		}
	}

	// 4. period-length heuristic
	if !cls.IsYearly && !periodStart.IsZero() && !periodEnd.IsZero() &&
		monthSpan(periodStart, periodEnd) == 12 {
		cls.IsYearly = true
	}

	if cls.IsYearly {
		if n := countMonthlyTagged(items); n > 0 {
			cls.Warnings = append(cls.Warnings, Warning{
				Code:    WarnAmbiguousClassification,
				Message: fmt.Sprintf("%d line item(s) tagged monthly on a yearly-classified invoice", n),
			})
		}
	}

	return cls, nil
}

// firstYearlyLease returns the lease of the first line item whose
// attached agreement carries a yearly cadence.
func firstYearlyLease(items []RentalLineItem) *LeaseAgreement {
	for _, item := range items {
		if item.Lease != nil && item.Lease.BillingFrequency.Yearly() {
			return item.Lease
		}
	}
	return nil
}

// checkUniformLease rejects invoices whose line items reference more
// than one distinct lease agreement. When line item leases and the
// standalone lease disagree the per-line and aggregate computations
// could drift apart.
func checkUniformLease(items []RentalLineItem, standalone *LeaseAgreement) error {
	seen := ""
	for _, item := range items {
		if item.Lease == nil || item.Lease.ID == "" {
			continue
		}
		if seen == "" {
			seen = item.Lease.ID
			continue
		}
		if item.Lease.ID != seen {
			return ErrMixedLeases
		}
	}
	if seen != "" && standalone != nil && standalone.ID != "" && standalone.ID != seen {
		return ErrMixedLeases
	}
	return nil
}

func countMonthlyTagged(items []RentalLineItem) int {
	n := 0
	for _, item := range items {
		if item.RentalType == RentalTypeMonthly {
			n++
		}
	}
	return n
}

// monthSpan counts whole calendar months between two dates inclusive:
// Nov 1 .. Nov 30 spans 1, Jan 1 .. Dec 31 spans 12.
func monthSpan(start, end time.Time) int {
	start, end = dateOf(start), dateOf(end)
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
}
