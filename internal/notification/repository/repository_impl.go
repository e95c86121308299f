package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/medisys/clinicore/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, notifications []domain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&notifications).Error
}

func (r *repo) ListByRecipient(ctx context.Context, db *gorm.DB, recipientID snowflake.ID, unreadOnly bool) ([]domain.Notification, error) {
	stmt := db.WithContext(ctx).Model(&domain.Notification{}).
		Where("recipient_id = ?", recipientID)
	if unreadOnly {
		stmt = stmt.Where("read = ?", false)
	}

	var notifications []domain.Notification
	if err := stmt.Order("created_at desc, id desc").Limit(200).Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *repo) MarkRead(ctx context.Context, db *gorm.DB, recipientID, id snowflake.ID) error {
	result := db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
