package domain

import (
	"context"
	"errors"
	"time"

	userdomain "github.com/medisys/clinicore/internal/user/domain"
	"github.com/medisys/clinicore/pkg/db/pagination"
	"gorm.io/gorm"
)

// Entry captures one domain event for the audit trail. Actor is zero for
// system-initiated events.
type Entry struct {
	Actor      userdomain.Actor
	Action     string
	TargetType string
	TargetID   string
	Changes    map[string]any
	Metadata   map[string]any
}

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	// Record writes an audit entry. Failures are logged and swallowed so
	// the calling operation never fails on account of the trail.
	Record(ctx context.Context, entry Entry)
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}

var (
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
