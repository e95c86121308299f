package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Notification struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id,string"`
	RecipientID snowflake.ID      `gorm:"index" json:"recipient_id,string"`
	Kind        string            `gorm:"size:64;index" json:"kind"`
	Title       string            `gorm:"size:128" json:"title"`
	Body        string            `gorm:"size:1024" json:"body"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	Read        bool              `gorm:"index" json:"read"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

const (
	KindOrderCreated     = "lab_order.created"
	KindOrderPaid        = "lab_order.paid"
	KindOrderInProgress  = "lab_order.in_progress"
	KindOrderCompleted   = "lab_order.completed"
	KindOrderCancelled   = "lab_order.cancelled"
	KindPaymentReceived  = "payment.received"
	KindBillingCancelled = "billing.cancelled"
)
