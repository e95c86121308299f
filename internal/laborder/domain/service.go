package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/medisys/clinicore/internal/billing/domain"
	userdomain "github.com/medisys/clinicore/internal/user/domain"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("lab_order_not_found")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrEmptyTests        = errors.New("lab_order_requires_tests")
	ErrInvalidPriority   = errors.New("invalid_priority")
	ErrIncompleteResults = errors.New("incomplete_results")
	ErrUnknownOrderTest  = errors.New("unknown_order_test")
	ErrNoBilling         = errors.New("lab_order_has_no_billing")
)

// Request ID fields carry no json "string" option: snowflake.ID already
// unmarshals itself from a quoted value, and the option would hand its
// decoder unquoted bytes.
type OrderTestRequest struct {
	TestID   snowflake.ID `json:"test_id"`
	Quantity int32        `json:"quantity"`
}

type CreateOrderRequest struct {
	PatientID     snowflake.ID       `json:"patient_id"`
	DoctorID      snowflake.ID       `json:"doctor_id"`
	Tests         []OrderTestRequest `json:"tests"`
	Priority      string             `json:"priority"`
	DueDate       *time.Time         `json:"due_date"`
	Notes         string             `json:"notes"`
	DiscountCents int64              `json:"discount_cents"`
	TaxCents      int64              `json:"tax_cents"`
}

// PaymentOutcome pairs the refreshed order with the ledger settlement so
// API callers see both sides of the payment in one response.
type PaymentOutcome struct {
	Order      *LabOrder                    `json:"order"`
	Settlement *billingdomain.PaymentResult `json:"settlement"`
}

type TestResultRequest struct {
	OrderTestID snowflake.ID `json:"order_test_id"`
	Status      TestStatus   `json:"status"`
	Result      string       `json:"result"`
}

type SubmitResultsRequest struct {
	Results  []TestResultRequest `json:"results"`
	Findings string              `json:"findings"`
}

type ListOrdersRequest struct {
	Status    OrderStatus
	PatientID snowflake.ID
	DoctorID  snowflake.ID
}

type Service interface {
	Create(ctx context.Context, actor userdomain.Actor, req CreateOrderRequest) (*LabOrder, error)
	RecordPayment(ctx context.Context, actor userdomain.Actor, orderID snowflake.ID, req billingdomain.RecordPaymentRequest) (*PaymentOutcome, error)
	BeginProcessing(ctx context.Context, actor userdomain.Actor, orderID snowflake.ID) (*LabOrder, error)
	SubmitResults(ctx context.Context, actor userdomain.Actor, orderID snowflake.ID, req SubmitResultsRequest) (*LabOrder, error)
	Cancel(ctx context.Context, actor userdomain.Actor, orderID snowflake.ID, reason string) (*LabOrder, error)
	Get(ctx context.Context, actor userdomain.Actor, orderID snowflake.ID) (*LabOrder, error)
	List(ctx context.Context, actor userdomain.Actor, req ListOrdersRequest) ([]LabOrder, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *LabOrder) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, withTests bool) (*LabOrder, error)
	// LockByID loads the order row under FOR UPDATE, without tests. Must
	// run inside a transaction.
	LockByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*LabOrder, error)
	ListTests(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]LabOrderTest, error)
	List(ctx context.Context, db *gorm.DB, req ListOrdersRequest) ([]LabOrder, error)
	Update(ctx context.Context, db *gorm.DB, order *LabOrder) error
	UpdateTestResult(ctx context.Context, db *gorm.DB, testID snowflake.ID, status TestStatus, result string) error
}
