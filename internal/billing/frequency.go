package billing

import "strings"

// BillingFrequency is the closed enumeration lease cadences normalize
// to. Upstream rows carry free text ("Annual", "yearly", "semi-annual",
// ...); ParseBillingFrequency is the single place that text is
// interpreted.
type BillingFrequency string

const (
	FrequencyUnknown    BillingFrequency = ""
	FrequencyMonthly    BillingFrequency = "monthly"
	FrequencyQuarterly  BillingFrequency = "quarterly"
	FrequencySemiAnnual BillingFrequency = "semi_annual"
	FrequencyAnnual     BillingFrequency = "annual"
)

// ParseBillingFrequency normalizes a free-text frequency. The second
// return is false when the text matches no known cadence.
func ParseBillingFrequency(raw string) (BillingFrequency, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "monthly", "month":
		return FrequencyMonthly, true
	case "quarterly", "quarter":
		return FrequencyQuarterly, true
	case "semi-annual", "semi_annual", "semiannual", "semi annual":
		return FrequencySemiAnnual, true
	case "annual", "annually", "yearly", "year":
		return FrequencyAnnual, true
	default:
		return FrequencyUnknown, false
	}
}

// Yearly reports whether the cadence classifies a rental as
// lease-backed annual billing. Semi-annual agreements bill through the
// yearly path, prorated by their remaining term.
func (f BillingFrequency) Yearly() bool {
	return f == FrequencyAnnual || f == FrequencySemiAnnual
}

// PeriodsPerYear returns how many billing periods the cadence produces
// per year. Unknown cadences default to monthly.
func (f BillingFrequency) PeriodsPerYear() int {
	switch f {
	case FrequencyAnnual:
		return 1
	case FrequencySemiAnnual:
		return 2
	case FrequencyQuarterly:
		return 4
	default:
		return 12
	}
}

// MonthsPerPeriod returns the calendar-month length of one billing
// period at this cadence.
func (f BillingFrequency) MonthsPerPeriod() int {
	return 12 / f.PeriodsPerYear()
}
