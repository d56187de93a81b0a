package billing

import "errors"

var (
	// ErrNoLineItems means no invoice can be produced: callers must not
	// render or persist a zero-dollar invoice.
	ErrNoLineItems = errors.New("no_line_items")

	// ErrInvalidInvoiceDate means the request carried a zero invoice date.
	ErrInvalidInvoiceDate = errors.New("invalid_invoice_date")

	// ErrInvalidDateRange means a lease window or fallback period is
	// inverted. This is a data-entry defect and must surface to whoever
	// entered the dates.
	ErrInvalidDateRange = errors.New("invalid_date_range")

	// ErrMixedLeases means line items on one invoice carry distinct lease
	// agreements. One invoice, one lease, applied uniformly; computing
	// divergent per-line totals is worse than rejecting.
	ErrMixedLeases = errors.New("mixed_lease_agreements")
)
