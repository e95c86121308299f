package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/medisys/clinicore/internal/user/domain"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("notification_not_found")

type Message struct {
	Kind     string
	Title    string
	Body     string
	Metadata map[string]any
}

type Service interface {
	// NotifyRole fans the message out to every active user holding the
	// role. Delivery is best effort; failures are logged, never returned.
	NotifyRole(ctx context.Context, role userdomain.Role, msg Message)
	// NotifyUser delivers to a single recipient, best effort.
	NotifyUser(ctx context.Context, recipientID snowflake.ID, msg Message)
	ListMine(ctx context.Context, actor userdomain.Actor, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, actor userdomain.Actor, id snowflake.ID) error
}

type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, notifications []Notification) error
	ListByRecipient(ctx context.Context, db *gorm.DB, recipientID snowflake.ID, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, db *gorm.DB, recipientID, id snowflake.ID) error
}
