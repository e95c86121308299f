package pdf

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "$0.00", FormatCents(0))
	assert.Equal(t, "$0.05", FormatCents(5))
	assert.Equal(t, "$12.34", FormatCents(1234))
	assert.Equal(t, "$55.00", FormatCents(5500))
	assert.Equal(t, "-$3.50", FormatCents(-350))
}

func TestGenerateInvoice(t *testing.T) {
	provider := NewProvider()

	data := InvoiceData{
		BillingID:    "1234567890",
		LabOrderID:   "9876543210",
		PatientName:  "Dana Osei",
		IssuedAt:     "2025-06-01T09:00:00Z",
		Status:       "pending",
		Items:        []LineItem{{Description: "Complete Blood Count (CBC)", Qty: 1, UnitPrice: "$25.00", Amount: "$25.00"}},
		Subtotal:     "$25.00",
		Discount:     "$0.00",
		Tax:          "$0.00",
		Total:        "$25.00",
		AmountPaid:   "$0.00",
		FacilityName: "clinicore",
	}

	reader, err := provider.GenerateInvoice(context.Background(), data)
	require.NoError(t, err)

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.True(t, len(content) > 0)
	// PDF files start with the %PDF magic bytes.
	assert.Equal(t, "%PDF", string(content[:4]))
}

func TestGenerateReceipt(t *testing.T) {
	provider := NewProvider()

	data := ReceiptData{
		InvoiceData: InvoiceData{
			BillingID:    "1234567890",
			PatientName:  "Dana Osei",
			Total:        "$55.00",
			AmountPaid:   "$55.00",
			FacilityName: "clinicore",
		},
		ReceiptNumber: "REC-1948271650123456",
		Method:        "cash",
		AmountPaidNow: "$55.00",
		DatePaid:      "2025-06-01T09:00:00Z",
	}

	reader, err := provider.GenerateReceipt(context.Background(), data)
	require.NoError(t, err)

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.True(t, len(content) > 4)
	assert.Equal(t, "%PDF", string(content[:4]))
}
