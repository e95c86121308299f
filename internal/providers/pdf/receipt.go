package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

func (p *PDFProvider) GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error) {
	m := newDocument()

	m.AddRow(25,
		text.NewCol(8, "Receipt", props.Text{
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
			text.New("Receipt number: "+data.ReceiptNumber, props.Text{Top: 0}),
			text.New("Date paid: "+data.DatePaid, props.Text{Top: 4}),
			text.New("Method: "+data.Method, props.Text{Top: 8}),
		),
		col.New(6).Add(
			text.New("Patient: "+data.PatientName, props.Text{Top: 0}),
			text.New("Billing: "+data.BillingID, props.Text{Top: 4}),
			text.New("Lab order: "+data.LabOrderID, props.Text{Top: 8}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, data.AmountPaidNow+" paid on "+data.DatePaid, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	addItemsTable(m, data.Items)

	addTotalRow(m, "Total", data.Total)
	addTotalRow(m, "Paid to date", data.AmountPaid)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
