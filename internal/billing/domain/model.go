package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type BillingStatus string

const (
	BillingPending       BillingStatus = "pending"
	BillingPartiallyPaid BillingStatus = "partially_paid"
	BillingPaid          BillingStatus = "paid"
	BillingCancelled     BillingStatus = "cancelled"
)

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCard         PaymentMethod = "card"
	MethodInsurance    PaymentMethod = "insurance"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodMobileMoney  PaymentMethod = "mobile_money"
)

func ParseMethod(raw string) (PaymentMethod, bool) {
	switch PaymentMethod(raw) {
	case MethodCash, MethodCard, MethodInsurance, MethodBankTransfer, MethodMobileMoney:
		return PaymentMethod(raw), true
	}
	return "", false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Billing is the payable side of a lab order. All amounts are integer
// cents; total_cents must equal subtotal − discount + tax at all times.
type Billing struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id,string"`
	LabOrderID    *snowflake.ID `gorm:"uniqueIndex" json:"lab_order_id,string,omitempty"`
	PatientID     snowflake.ID  `gorm:"index" json:"patient_id,string"`
	CreatedBy     snowflake.ID  `json:"created_by,string"`
	Status        BillingStatus `gorm:"size:32;index" json:"status"`
	SubtotalCents int64         `json:"subtotal_cents"`
	DiscountCents int64         `json:"discount_cents"`
	TaxCents      int64         `json:"tax_cents"`
	TotalCents    int64         `json:"total_cents"`
	PaidCents     int64         `json:"paid_cents"`
	Items         []BillingItem `gorm:"foreignKey:BillingID" json:"items,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (Billing) TableName() string {
	return "billings"
}

type BillingItem struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id,string"`
	BillingID      snowflake.ID `gorm:"index" json:"billing_id,string"`
	Description    string       `gorm:"size:256" json:"description"`
	Quantity       int32        `json:"quantity"`
	UnitPriceCents int64        `json:"unit_price_cents"`
	TotalCents     int64        `json:"total_cents"`
}

func (BillingItem) TableName() string {
	return "billing_items"
}

type Payment struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id,string"`
	BillingID     snowflake.ID  `gorm:"index" json:"billing_id,string"`
	PatientID     snowflake.ID  `gorm:"index" json:"patient_id,string"`
	AmountCents   int64         `json:"amount_cents"`
	Method        PaymentMethod `gorm:"size:32" json:"method"`
	Status        PaymentStatus `gorm:"size:32;index" json:"status"`
	ReceiptNumber string        `gorm:"size:64;uniqueIndex" json:"receipt_number"`
	ProcessedBy   snowflake.ID  `json:"processed_by,string"`
	PaidAt        time.Time     `json:"paid_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// Reconcile derives the billing status from the completed payment sum.
// It is a pure function of its inputs so re-running it is idempotent.
// A fully discounted billing has nothing left to collect, so a zero
// total counts as settled.
func Reconcile(totalCents, completedSumCents int64) BillingStatus {
	switch {
	case completedSumCents >= totalCents:
		return BillingPaid
	case completedSumCents > 0:
		return BillingPartiallyPaid
	default:
		return BillingPending
	}
}
