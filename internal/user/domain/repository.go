package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	ListByRole(ctx context.Context, db *gorm.DB, role Role, activeOnly bool) ([]User, error)
	SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool) error
}
