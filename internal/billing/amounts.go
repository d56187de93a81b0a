package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculateAmounts turns a resolved charge period into monetary totals.
//
// Every line bills the same monthsToCharge: the month count is resolved
// once per invoice and threaded into both the aggregate subtotal and
// the per-line totals, so the two can never drift apart. All arithmetic
// keeps full decimal precision; rounding happens only when the caller
// asks for presentation figures via CalculationResult.Rounded.
func CalculateAmounts(lineItems []RentalLineItem, period ChargePeriod, monthlyRate, taxRate decimal.Decimal) (*CalculationResult, error) {
	if len(lineItems) == 0 {
		return nil, ErrNoLineItems
	}

	months := decimal.NewFromInt(int64(period.MonthsToCharge))
	lineTotal := monthlyRate.Mul(months)

	lines := make([]LineAmount, 0, len(lineItems))
	subtotal := decimal.Zero
	for _, item := range lineItems {
		lines = append(lines, LineAmount{
			UnitID:      item.UnitID,
			ProductCode: item.ProductCode,
			GasType:     item.GasType,
			Size:        item.Size,
			MonthlyRate: monthlyRate,
			LineTotal:   lineTotal,
			DaysHeld:    daysHeld(item, period),
		})
		subtotal = subtotal.Add(lineTotal)
	}

	taxAmount := subtotal.Mul(taxRate)

	return &CalculationResult{
		MonthsCharged: period.MonthsToCharge,
		PeriodStart:   period.Start,
		PeriodEnd:     period.End,
		Subtotal:      subtotal,
		TaxRate:       taxRate,
		TaxAmount:     taxAmount,
		Total:         subtotal.Add(taxAmount),
		Lines:         lines,
	}, nil
}

// Calculate runs the full engine for one invoice request: validation,
// classification, charge-period resolution and monetary calculation.
func Calculate(req InvoiceRequest) (*CalculationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cls, err := Classify(req.LineItems, req.Lease, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, err
	}

	period := ResolveChargePeriod(cls.IsYearly, cls.Lease, req.InvoiceDate, req.PeriodStart, req.PeriodEnd)

	result, err := CalculateAmounts(cls.LineItems, period, req.MonthlyRate, req.TaxRate)
	if err != nil {
		return nil, err
	}

	result.IsYearly = cls.IsYearly
	result.Warnings = cls.Warnings
	return result, nil
}

// daysHeld is a display-only figure: calendar days between the earlier
// of the rental start and the period start, and the period end,
// inclusive. It never feeds the monetary totals. Rows without usable
// dates fall back to the stored days-at-location counter.
func daysHeld(item RentalLineItem, period ChargePeriod) int {
	start := period.Start
	if item.RentalStart != nil && dateOf(*item.RentalStart).Before(dateOf(start)) {
		start = *item.RentalStart
	}
	if start.IsZero() || period.End.IsZero() {
		return item.DaysAtLocation
	}
	days := int(dateOf(period.End).Sub(dateOf(start))/(24*time.Hour)) + 1
	if days < 0 {
		return item.DaysAtLocation
	}
	return days
}
