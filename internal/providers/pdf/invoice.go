package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// InvoiceData is the preformatted content of a management-fee invoice.
type InvoiceData struct {
	OrgName       string
	OrgEmail      string
	InvoiceNumber string
	IssueDate     string
	BillMonth     string
	PropertyName  string
	Status        string
	PaidDate      string

	Lines []InvoiceLine
	Stats []InvoiceLine

	AmountDue string
}

type InvoiceLine struct {
	Label  string
	Amount string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateInvoice(ctx context.Context, invoice InvoiceData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if invoice.InvoiceNumber == "" {
		return nil, fmt.Errorf("invoice number is required")
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, invoice.OrgName, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "Invoice", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	scope := "All properties"
	if invoice.PropertyName != "" {
		scope = invoice.PropertyName
	}
	m.AddRow(24,
		col.New(6).Add(
			text.New("Invoice number: "+invoice.InvoiceNumber, props.Text{Top: 0}),
			text.New("Date of issue: "+invoice.IssueDate, props.Text{Top: 4}),
			text.New("Billing month: "+invoice.BillMonth, props.Text{Top: 8}),
			text.New("Scope: "+scope, props.Text{Top: 12}),
		),
		col.New(6).Add(
			text.New(invoice.OrgEmail, props.Text{Align: align.Right}),
			text.New("Status: "+invoice.Status, props.Text{Top: 4, Align: align.Right, Style: fontstyle.Bold}),
		),
	)
	if invoice.PaidDate != "" {
		m.AddRow(8,
			text.NewCol(12, "Paid on "+invoice.PaidDate, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(15,
		text.NewCol(12, invoice.AmountDue+" due", props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(8, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, line := range invoice.Lines {
		m.AddRow(8,
			text.NewCol(8, line.Label, props.Text{Size: 9}),
			text.NewCol(4, line.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	if len(invoice.Stats) > 0 {
		m.AddRow(12,
			text.NewCol(12, "Month at a glance", props.Text{Style: fontstyle.Bold, Size: 10, Top: 4}),
		)
		for _, stat := range invoice.Stats {
			m.AddRow(7,
				text.NewCol(8, stat.Label, props.Text{Size: 9}),
				text.NewCol(4, stat.Amount, props.Text{Size: 9, Align: align.Right}),
			)
		}
	}

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Amount due", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, invoice.AmountDue, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
