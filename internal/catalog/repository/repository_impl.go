package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/medisys/clinicore/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, test *domain.CatalogTest) error {
	return db.WithContext(ctx).Create(test).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.CatalogTest, error) {
	var test domain.CatalogTest
	if err := db.WithContext(ctx).First(&test, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &test, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req domain.ListTestsRequest) ([]domain.CatalogTest, error) {
	stmt := db.WithContext(ctx).Model(&domain.CatalogTest{})

	if !req.IncludeAll {
		stmt = stmt.Where("active = ?", true)
	}
	if category := strings.TrimSpace(req.Category); category != "" {
		stmt = stmt.Where("category = ?", category)
	}
	if query := strings.TrimSpace(req.SearchQuery); query != "" {
		pattern := "%" + strings.ToLower(query) + "%"
		stmt = stmt.Where("lower(name) LIKE ? OR lower(code) LIKE ?", pattern, pattern)
	}

	var tests []domain.CatalogTest
	if err := stmt.Order("code asc").Find(&tests).Error; err != nil {
		return nil, err
	}
	return tests, nil
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, test *domain.CatalogTest) error {
	return db.WithContext(ctx).Save(test).Error
}
