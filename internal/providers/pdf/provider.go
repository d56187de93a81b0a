// Package pdf renders invoice documents with maroto.
package pdf

import (
	"context"
	"io"
)

// InvoiceDocument carries everything the renderer needs, pre-formatted.
// The renderer does no arithmetic and no lookups.
type InvoiceDocument struct {
	OrgName    string
	OrgAddress string
	OrgEmail   string

	InvoiceNumber string
	IssueDate     string
	DueDate       string
	BillingPeriod string

	BillToName    string
	BillToAddress string
	BillToEmail   string

	// AgreementNote is non-empty for lease-billed invoices, e.g.
	// "Billed under lease agreement LA00042 (annual)".
	AgreementNote string

	Items []InvoiceLine

	Subtotal  string
	TaxLabel  string
	TaxAmount string
	Total     string
}

// InvoiceLine is one rendered cylinder row.
type InvoiceLine struct {
	UnitID      string
	Description string
	DaysHeld    string
	MonthlyRate string
	Months      string
	Amount      string
}

type Provider interface {
	RenderInvoice(ctx context.Context, doc InvoiceDocument) (io.Reader, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) RenderInvoice(ctx context.Context, doc InvoiceDocument) (io.Reader, error) {
	return nil, nil
}
