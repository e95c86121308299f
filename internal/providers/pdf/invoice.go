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
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type PDFProvider struct{}

func NewProvider() Provider {
	return &PDFProvider{}
}

func newDocument() core.Maroto {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	return maroto.New(cfg)
}

func (p *PDFProvider) GenerateInvoice(ctx context.Context, data InvoiceData) (io.Reader, error) {
	m := newDocument()

	m.AddRow(25,
		text.NewCol(8, "Invoice", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		col.New(4).Add(
			text.New(data.FacilityName, props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New(data.FacilityEmail, props.Text{Top: 5, Align: align.Right}),
		),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Billing: "+data.BillingID, props.Text{Top: 0}),
			text.New("Lab order: "+data.LabOrderID, props.Text{Top: 4}),
			text.New("Issued: "+data.IssuedAt, props.Text{Top: 8}),
		),
		col.New(6).Add(
			text.New("Patient: "+data.PatientName, props.Text{Top: 0}),
			text.New("Status: "+data.Status, props.Text{Top: 4}),
		),
	)

	addItemsTable(m, data.Items)

	addTotalRow(m, "Subtotal", data.Subtotal)
	addTotalRow(m, "Discount", data.Discount)
	addTotalRow(m, "Tax", data.Tax)
	addTotalRow(m, "Total", data.Total)
	addTotalRow(m, "Paid", data.AmountPaid)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

func addItemsTable(m core.Maroto, items []LineItem) {
	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, item := range items {
		m.AddRow(12,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", item.Qty), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}
}

func addTotalRow(m core.Maroto, label, value string) {
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, label, props.Text{Size: 9}),
		text.NewCol(2, value, props.Text{Size: 9, Align: align.Right}),
	)
}
