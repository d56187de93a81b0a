// Package billing implements the invoice proration engine: rental
// classification, charge-period resolution and monetary calculation.
// Everything in this package is pure; callers own all I/O.
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// RentalType is the explicit billing-cycle tag a rental row may carry.
type RentalType string

const (
	RentalTypeMonthly RentalType = "monthly"
	RentalTypeYearly  RentalType = "yearly"
)

// LeaseAgreement is the contract window relevant to proration. Start and
// End are calendar dates; time-of-day is ignored by the engine.
type LeaseAgreement struct {
	ID               string
	AgreementNumber  string
	BillingFrequency BillingFrequency
	StartDate        time.Time
	EndDate          time.Time
}

// Validate rejects agreements whose end does not fall strictly after
// their start. Zero dates are allowed; the resolver treats a missing end
// date as "no lease window".
func (l LeaseAgreement) Validate() error {
	if l.StartDate.IsZero() || l.EndDate.IsZero() {
		return nil
	}
	if !dateOf(l.EndDate).After(dateOf(l.StartDate)) {
		return ErrInvalidDateRange
	}
	return nil
}

// RentalLineItem is one billable unit for a customer. Descriptive fields
// are carried through for display only.
type RentalLineItem struct {
	UnitID      string
	ProductCode string
	GasType     string
	Size        string

	// RentalType is empty when the row was never tagged; classification
	// then falls back to the attached lease or the period heuristic.
	RentalType RentalType
	Lease      *LeaseAgreement

	RentalStart    *time.Time
	DaysAtLocation int
	TaxRate        *float64
}

// InvoiceRequest is the full input bundle for one invoice calculation.
type InvoiceRequest struct {
	InvoiceDate time.Time

	// PeriodStart/PeriodEnd are the user-entered fallback billing window,
	// used only when no lease-derived window can be computed.
	PeriodStart time.Time
	PeriodEnd   time.Time

	LineItems []RentalLineItem

	// Lease is the customer's active lease agreement resolved by the
	// caller's ranked lookup; the engine never searches for one itself.
	Lease *LeaseAgreement

	MonthlyRate decimal.Decimal
	TaxRate     decimal.Decimal
}

// Validate checks the request before classification runs. Date-entry
// defects surface here rather than being silently coerced downstream.
func (r InvoiceRequest) Validate() error {
	if r.InvoiceDate.IsZero() {
		return ErrInvalidInvoiceDate
	}
	if len(r.LineItems) == 0 {
		return ErrNoLineItems
	}
	if !r.PeriodStart.IsZero() && !r.PeriodEnd.IsZero() &&
		dateOf(r.PeriodEnd).Before(dateOf(r.PeriodStart)) {
		return ErrInvalidDateRange
	}
	if r.Lease != nil {
		if err := r.Lease.Validate(); err != nil {
			return err
		}
	}
	for _, item := range r.LineItems {
		if item.Lease != nil {
			if err := item.Lease.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Classification is the outcome of the first stage. LineItems are
// annotated copies of the input rows; the caller's slice is never
// mutated.
type Classification struct {
	IsYearly  bool
	Lease     *LeaseAgreement
	LineItems []RentalLineItem
	Warnings  []Warning
}

// ChargePeriod is the resolved billing window.
type ChargePeriod struct {
	MonthsToCharge int
	Start          time.Time
	End            time.Time
}

// LineAmount is the per-line-item breakdown on a calculation result.
// DaysHeld is display-only and never feeds the monetary totals.
type LineAmount struct {
	UnitID      string
	ProductCode string
	GasType     string
	Size        string
	MonthlyRate decimal.Decimal
	LineTotal   decimal.Decimal
	DaysHeld    int
}

// CalculationResult is the output bundle for one invoice. Monetary
// fields retain full precision; use Rounded for presentation values.
type CalculationResult struct {
	IsYearly      bool
	MonthsCharged int
	PeriodStart   time.Time
	PeriodEnd     time.Time

	Subtotal  decimal.Decimal
	TaxRate   decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal

	Lines    []LineAmount
	Warnings []Warning
}

// RoundedAmounts are the presentation/persistence figures. Total is the
// sum of the rounded subtotal and rounded tax, never rounded
// independently, so Total == Subtotal + TaxAmount holds exactly.
type RoundedAmounts struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// Rounded rounds subtotal and tax to 2 places and derives the total
// from the rounded parts.
func (r *CalculationResult) Rounded() RoundedAmounts {
	subtotal := r.Subtotal.Round(2)
	tax := r.TaxAmount.Round(2)
	return RoundedAmounts{
		Subtotal:  subtotal,
		TaxAmount: tax,
		Total:     subtotal.Add(tax),
	}
}

// Warning flags a non-fatal data inconsistency the calculation survived.
type Warning struct {
	Code    string
	Message string
}

const WarnAmbiguousClassification = "ambiguous_classification"

// dateOf truncates a timestamp to its UTC calendar date. All engine
// comparisons are date-level.
func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
