package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("catalog_test_not_found")
	ErrCodeExists   = errors.New("catalog_test_code_exists")
	ErrInvalidPrice = errors.New("invalid_unit_price")
	ErrInvalidCode  = errors.New("invalid_test_code")
)

type CreateTestRequest struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Category       string `json:"category"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TurnaroundHrs  int32  `json:"turnaround_hours"`
}

// UpdateTestRequest carries partial updates. Nil fields are left untouched.
type UpdateTestRequest struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	Category       *string `json:"category"`
	UnitPriceCents *int64  `json:"unit_price_cents"`
	TurnaroundHrs  *int32  `json:"turnaround_hours"`
}

type ListTestsRequest struct {
	Category    string
	IncludeAll  bool
	SearchQuery string
}

type Service interface {
	Create(ctx context.Context, req CreateTestRequest) (*CatalogTest, error)
	Get(ctx context.Context, id snowflake.ID) (*CatalogTest, error)
	GetActive(ctx context.Context, id snowflake.ID) (*CatalogTest, error)
	List(ctx context.Context, req ListTestsRequest) ([]CatalogTest, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateTestRequest) (*CatalogTest, error)
	Deactivate(ctx context.Context, id snowflake.ID) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, test *CatalogTest) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CatalogTest, error)
	List(ctx context.Context, db *gorm.DB, req ListTestsRequest) ([]CatalogTest, error)
	Save(ctx context.Context, db *gorm.DB, test *CatalogTest) error
}
