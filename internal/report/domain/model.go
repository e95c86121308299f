package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("report_not_found")

// Report is the lab's final word on an order, written when results are
// submitted.
type Report struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id,string"`
	LabOrderID  snowflake.ID `gorm:"uniqueIndex" json:"lab_order_id,string"`
	PatientID   snowflake.ID `gorm:"index" json:"patient_id,string"`
	PerformedBy snowflake.ID `json:"performed_by,string"`
	Findings    string       `gorm:"size:4096" json:"findings"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (Report) TableName() string {
	return "reports"
}

type CreateReportRequest struct {
	LabOrderID  snowflake.ID
	PatientID   snowflake.ID
	PerformedBy snowflake.ID
	Findings    string
}

type Service interface {
	// CreateForOrder writes the report inside the caller's transaction so
	// it commits together with the order completion.
	CreateForOrder(ctx context.Context, tx *gorm.DB, req CreateReportRequest) (*Report, error)
	GetByOrder(ctx context.Context, orderID snowflake.ID) (*Report, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, report *Report) error
	FindByOrderID(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*Report, error)
}
