package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/medisys/clinicore/internal/billing/domain"
)

type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderPaid           OrderStatus = "paid"
	OrderInProgress     OrderStatus = "in_progress"
	OrderCompleted      OrderStatus = "completed"
	OrderCancelled      OrderStatus = "cancelled"
)

func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

func ParseStatus(raw string) (OrderStatus, bool) {
	switch OrderStatus(raw) {
	case OrderPendingPayment, OrderPaid, OrderInProgress, OrderCompleted, OrderCancelled:
		return OrderStatus(raw), true
	}
	return "", false
}

// transitions is the full lifecycle. Cancellation is reachable from any
// non-terminal state; everything else moves strictly forward.
var transitions = map[OrderStatus][]OrderStatus{
	OrderPendingPayment: {OrderPaid, OrderCancelled},
	OrderPaid:           {OrderInProgress, OrderCancelled},
	OrderInProgress:     {OrderCompleted, OrderCancelled},
}

func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError reports the exact rejected edge. It matches
// ErrInvalidTransition under errors.Is.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid_transition: %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

type Priority string

const (
	PriorityRoutine Priority = "routine"
	PriorityUrgent  Priority = "urgent"
	PriorityStat    Priority = "stat"
)

func ParsePriority(raw string) (Priority, bool) {
	if raw == "" {
		return PriorityRoutine, true
	}
	switch Priority(raw) {
	case PriorityRoutine, PriorityUrgent, PriorityStat:
		return Priority(raw), true
	}
	return "", false
}

type TestStatus string

const (
	TestPending   TestStatus = "pending"
	TestCompleted TestStatus = "completed"
	TestCancelled TestStatus = "cancelled"
)

type LabOrder struct {
	ID              snowflake.ID                `gorm:"primaryKey" json:"id,string"`
	PatientID       snowflake.ID                `gorm:"index" json:"patient_id,string"`
	DoctorID        snowflake.ID                `gorm:"index" json:"doctor_id,string"`
	Status          OrderStatus                 `gorm:"size:32;index" json:"status"`
	PaymentStatus   billingdomain.BillingStatus `gorm:"size:32" json:"payment_status"`
	PaymentVerified bool                        `json:"payment_verified"`
	BillingID       *snowflake.ID               `json:"billing_id,string,omitempty"`
	PaymentID       *snowflake.ID               `json:"payment_id,string,omitempty"`
	Priority        Priority                    `gorm:"size:16" json:"priority"`
	DueDate         *time.Time                  `json:"due_date,omitempty"`
	Notes           string                      `gorm:"size:1024" json:"notes,omitempty"`
	CancelReason    string                      `gorm:"size:512" json:"cancel_reason,omitempty"`
	Tests           []LabOrderTest              `gorm:"foreignKey:LabOrderID" json:"tests,omitempty"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

func (LabOrder) TableName() string {
	return "lab_orders"
}

// LabOrderTest snapshots the catalog row at ordering time. Name, code and
// unit price never change afterwards, whatever happens to the catalog.
type LabOrderTest struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id,string"`
	LabOrderID     snowflake.ID `gorm:"index" json:"lab_order_id,string"`
	TestID         snowflake.ID `json:"test_id,string"`
	Code           string       `gorm:"size:32" json:"code"`
	Name           string       `gorm:"size:128" json:"name"`
	UnitPriceCents int64        `json:"unit_price_cents"`
	Quantity       int32        `json:"quantity"`
	Status         TestStatus   `gorm:"size:32" json:"status"`
	Result         string       `gorm:"size:2048" json:"result,omitempty"`
}

func (LabOrderTest) TableName() string {
	return "lab_order_tests"
}
