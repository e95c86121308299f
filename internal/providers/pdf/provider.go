package pdf

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/fx"
)

type LineItem struct {
	Description string
	Qty         int32
	UnitPrice   string
	Amount      string
}

type InvoiceData struct {
	BillingID     string
	LabOrderID    string
	PatientName   string
	IssuedAt      string
	Status        string
	Items         []LineItem
	Subtotal      string
	Discount      string
	Tax           string
	Total         string
	AmountPaid    string
	FacilityName  string
	FacilityEmail string
}

type ReceiptData struct {
	InvoiceData
	ReceiptNumber string
	Method        string
	AmountPaidNow string
	DatePaid      string
}

type Provider interface {
	GenerateInvoice(ctx context.Context, data InvoiceData) (io.Reader, error)
	GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error)
}

// FormatCents renders integer cents as a dollar amount for documents.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

var Module = fx.Module("providers.pdf",
	fx.Provide(NewProvider),
)
