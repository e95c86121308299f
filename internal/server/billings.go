package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/medisys/clinicore/internal/billing/domain"
	"github.com/medisys/clinicore/internal/identity"
	"github.com/medisys/clinicore/internal/providers/pdf"
)

func (s *Server) CreateBilling(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, identity.ErrUnauthenticated)
		return
	}

	var req billingdomain.CreateBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	billing, err := s.billingSvc.Create(c.Request.Context(), actor, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, billing)
}

func (s *Server) ListBillings(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, identity.ErrUnauthenticated)
		return
	}

	patientID, ok := parseOptionalIDQuery(c, "patient_id")
	if !ok {
		return
	}

	billings, err := s.billingSvc.List(c.Request.Context(), actor, billingdomain.ListBillingsRequest{
		Status:    billingdomain.BillingStatus(strings.TrimSpace(c.Query("status"))),
		PatientID: patientID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"billings": billings})
}

func (s *Server) GetBilling(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, identity.ErrUnauthenticated)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	billing, err := s.billingSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, billing)
}

func (s *Server) UpdateBilling(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, identity.ErrUnauthenticated)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req billingdomain.UpdateAdjustmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	billing, err := s.billingSvc.UpdateAdjustments(c.Request.Context(), actor, id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, billing)
}

func (s *Server) BillingInvoicePDF(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, identity.ErrUnauthenticated)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	billing, err := s.billingSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	reader, err := s.pdfProvider.GenerateInvoice(c.Request.Context(), s.invoiceData(c, billing))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.DataFromReader(http.StatusOK, -1, "application/pdf", reader, map[string]string{
		"Content-Disposition": `attachment; filename="invoice-` + billing.ID.String() + `.pdf"`,
	})
}

func (s *Server) invoiceData(c *gin.Context, billing *billingdomain.Billing) pdf.InvoiceData {
	data := pdf.InvoiceData{
		BillingID:     billing.ID.String(),
		IssuedAt:      billing.CreatedAt.Format(time.RFC3339),
		Status:        string(billing.Status),
		Subtotal:      pdf.FormatCents(billing.SubtotalCents),
		Discount:      pdf.FormatCents(billing.DiscountCents),
		Tax:           pdf.FormatCents(billing.TaxCents),
		Total:         pdf.FormatCents(billing.TotalCents),
		AmountPaid:    pdf.FormatCents(billing.PaidCents),
		FacilityName:  s.cfg.AppName,
		FacilityEmail: "billing@clinicore.local",
	}
	if billing.LabOrderID != nil {
		data.LabOrderID = billing.LabOrderID.String()
	}
	if patient, err := s.userSvc.GetByID(c.Request.Context(), billing.PatientID); err == nil {
		data.PatientName = strings.TrimSpace(patient.FirstName + " " + patient.LastName)
	}
	for _, item := range billing.Items {
		data.Items = append(data.Items, pdf.LineItem{
			Description: item.Description,
			Qty:         item.Quantity,
			UnitPrice:   pdf.FormatCents(item.UnitPriceCents),
			Amount:      pdf.FormatCents(item.TotalCents),
		})
	}
	return data
}
