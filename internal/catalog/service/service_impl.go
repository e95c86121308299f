package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/medisys/clinicore/internal/catalog/domain"
	"github.com/medisys/clinicore/internal/clock"
	"github.com/medisys/clinicore/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateTestRequest) (*domain.CatalogTest, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, domain.ErrInvalidCode
	}
	if req.UnitPriceCents < 0 {
		return nil, domain.ErrInvalidPrice
	}

	now := s.clock.Now()
	test := domain.CatalogTest{
		ID:             s.genID.Generate(),
		Code:           code,
		Name:           strings.TrimSpace(req.Name),
		Description:    strings.TrimSpace(req.Description),
		Category:       strings.TrimSpace(req.Category),
		UnitPriceCents: req.UnitPriceCents,
		TurnaroundHrs:  req.TurnaroundHrs,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Insert(ctx, s.db, &test); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrCodeExists
		}
		return nil, err
	}
	return &test, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.CatalogTest, error) {
	return s.repo.FindByID(ctx, s.db, id)
}

func (s *Service) GetActive(ctx context.Context, id snowflake.ID) (*domain.CatalogTest, error) {
	test, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !test.Active {
		return nil, domain.ErrNotFound
	}
	return test, nil
}

func (s *Service) List(ctx context.Context, req domain.ListTestsRequest) ([]domain.CatalogTest, error) {
	return s.repo.List(ctx, s.db, req)
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateTestRequest) (*domain.CatalogTest, error) {
	test, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		test.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		test.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		test.Category = strings.TrimSpace(*req.Category)
	}
	if req.UnitPriceCents != nil {
		if *req.UnitPriceCents < 0 {
			return nil, domain.ErrInvalidPrice
		}
		test.UnitPriceCents = *req.UnitPriceCents
	}
	if req.TurnaroundHrs != nil {
		test.TurnaroundHrs = *req.TurnaroundHrs
	}
	test.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, s.db, test); err != nil {
		return nil, err
	}
	return test, nil
}

func (s *Service) Deactivate(ctx context.Context, id snowflake.ID) error {
	test, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !test.Active {
		return nil
	}
	test.Active = false
	test.UpdatedAt = s.clock.Now()
	return s.repo.Save(ctx, s.db, test)
}
