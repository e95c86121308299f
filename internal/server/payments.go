package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medisys/clinicore/internal/identity"
	"github.com/medisys/clinicore/internal/providers/pdf"
)

func (s *Server) ListPayments(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, identity.ErrUnauthenticated)
		return
	}

	billingID, ok := parseOptionalIDQuery(c, "billing_id")
	if !ok {
		return
	}
	if billingID == 0 {
		AbortWithError(c, newValidationError("billing_id", "missing_billing_id", "billing_id is required"))
		return
	}

	payments, err := s.billingSvc.ListPayments(c.Request.Context(), actor, billingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (s *Server) PaymentReceiptPDF(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, identity.ErrUnauthenticated)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	payment, err := s.billingSvc.GetPayment(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	billing, err := s.billingSvc.Get(c.Request.Context(), actor, payment.BillingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data := pdf.ReceiptData{
		InvoiceData:   s.invoiceData(c, billing),
		ReceiptNumber: payment.ReceiptNumber,
		Method:        string(payment.Method),
		AmountPaidNow: pdf.FormatCents(payment.AmountCents),
		DatePaid:      payment.PaidAt.Format(time.RFC3339),
	}

	reader, err := s.pdfProvider.GenerateReceipt(c.Request.Context(), data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.DataFromReader(http.StatusOK, -1, "application/pdf", reader, map[string]string{
		"Content-Disposition": `attachment; filename="` + payment.ReceiptNumber + `.pdf"`,
	})
}
