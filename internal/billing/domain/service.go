package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/medisys/clinicore/internal/user/domain"
	"gorm.io/gorm"
)

var (
	ErrNotFound            = errors.New("billing_not_found")
	ErrPaymentNotFound     = errors.New("payment_not_found")
	ErrBillingExists       = errors.New("billing_exists_for_order")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidMethod       = errors.New("invalid_payment_method")
	ErrAlreadyPaid         = errors.New("billing_already_paid")
	ErrBillingCancelled    = errors.New("billing_cancelled")
	ErrHasCompletedPayment = errors.New("billing_has_completed_payment")
)

type CreateItemRequest struct {
	Description    string `json:"description"`
	Quantity       int32  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
}

type CreateBillingRequest struct {
	LabOrderID    *snowflake.ID       `json:"lab_order_id"`
	PatientID     snowflake.ID        `json:"patient_id"`
	CreatedBy     snowflake.ID        `json:"-"`
	Items         []CreateItemRequest `json:"items"`
	DiscountCents int64               `json:"discount_cents"`
	TaxCents      int64               `json:"tax_cents"`
}

type RecordPaymentRequest struct {
	Method      PaymentMethod `json:"method"`
	AmountCents int64         `json:"amount_cents"`
}

// PaymentResult reports the settlement outcome so the order lifecycle can
// synchronize without re-reading the ledger.
type PaymentResult struct {
	Payment      Payment       `json:"payment"`
	Status       BillingStatus `json:"billing_status"`
	PaidCents    int64         `json:"paid_cents"`
	FullySettled bool          `json:"fully_settled"`
}

// UpdateAdjustmentsRequest changes discount/tax on a still-pending billing.
type UpdateAdjustmentsRequest struct {
	DiscountCents *int64 `json:"discount_cents"`
	TaxCents      *int64 `json:"tax_cents"`
}

type ListBillingsRequest struct {
	Status    BillingStatus
	PatientID snowflake.ID
	// DoctorID restricts to billings of lab orders placed by the doctor.
	DoctorID snowflake.ID
}

type Service interface {
	// CreateForOrder writes a billing inside the caller's transaction.
	// The order lifecycle uses it so order and billing commit atomically.
	CreateForOrder(ctx context.Context, tx *gorm.DB, req CreateBillingRequest) (*Billing, error)
	Create(ctx context.Context, actor userdomain.Actor, req CreateBillingRequest) (*Billing, error)
	RecordPayment(ctx context.Context, actor userdomain.Actor, billingID snowflake.ID, req RecordPaymentRequest) (*PaymentResult, error)
	UpdateAdjustments(ctx context.Context, actor userdomain.Actor, billingID snowflake.ID, req UpdateAdjustmentsRequest) (*Billing, error)
	// Cancel marks the billing cancelled. Fails with
	// ErrHasCompletedPayment when money has already settled.
	Cancel(ctx context.Context, actor userdomain.Actor, billingID snowflake.ID) error
	Get(ctx context.Context, actor userdomain.Actor, billingID snowflake.ID) (*Billing, error)
	List(ctx context.Context, actor userdomain.Actor, req ListBillingsRequest) ([]Billing, error)
	ListPayments(ctx context.Context, actor userdomain.Actor, billingID snowflake.ID) ([]Payment, error)
	GetPayment(ctx context.Context, actor userdomain.Actor, paymentID snowflake.ID) (*Payment, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, billing *Billing) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, withItems bool) (*Billing, error)
	// LockByID loads the billing row under FOR UPDATE. Must run inside a
	// transaction.
	LockByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Billing, error)
	List(ctx context.Context, db *gorm.DB, req ListBillingsRequest) ([]Billing, error)
	UpdateSettlement(ctx context.Context, tx *gorm.DB, billing *Billing) error
	Save(ctx context.Context, db *gorm.DB, billing *Billing) error
	InsertPayment(ctx context.Context, tx *gorm.DB, payment *Payment) error
	SumCompletedPayments(ctx context.Context, tx *gorm.DB, billingID snowflake.ID) (int64, error)
	ListPayments(ctx context.Context, db *gorm.DB, billingID snowflake.ID) ([]Payment, error)
	FindPaymentByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	IsOrderOwnedBy(ctx context.Context, db *gorm.DB, labOrderID, doctorID snowflake.ID) (bool, error)
}
