package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) RenderInvoice(ctx context.Context, doc InvoiceDocument) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(10,
		text.NewCol(12, "Invoice "+doc.InvoiceNumber, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Date of issue: "+doc.IssueDate, props.Text{Top: 0}),
			text.New("Date due: "+doc.DueDate, props.Text{Top: 4}),
			text.New("Billing period: "+doc.BillingPeriod, props.Text{Top: 8}),
		),
		col.New(6),
	)

	m.AddRow(40,
		col.New(6).Add(
			text.New(doc.OrgName, props.Text{Style: fontstyle.Bold}),
			text.New(doc.OrgAddress, props.Text{Top: 5}),
			text.New(doc.OrgEmail, props.Text{Top: 20}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(doc.BillToName, props.Text{Top: 5}),
			text.New(doc.BillToAddress, props.Text{Top: 9}),
			text.New(doc.BillToEmail, props.Text{Top: 25}),
		),
	)

	if doc.AgreementNote != "" {
		m.AddRow(10,
			text.NewCol(12, doc.AgreementNote, props.Text{Size: 9, Style: fontstyle.Italic}),
		)
	}

	m.AddRow(10,
		text.NewCol(2, "Unit", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(1, "Days", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Monthly rate", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(1, "Months", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, item := range doc.Items {
		m.AddRow(12,
			text.NewCol(2, item.UnitID, props.Text{Size: 9}),
			text.NewCol(4, item.Description, props.Text{Size: 9}),
			text.NewCol(1, item.DaysHeld, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.MonthlyRate, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(1, item.Months, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Subtotal", props.Text{Size: 9}),
		text.NewCol(2, doc.Subtotal, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, doc.TaxLabel, props.Text{Size: 9}),
		text.NewCol(2, doc.TaxAmount, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total due", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, doc.Total, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	generated, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(generated.GetBytes()), nil
}
