package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/medisys/clinicore/internal/clock"
	"github.com/medisys/clinicore/internal/report/domain"
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
		log:   p.Log.Named("report.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) CreateForOrder(ctx context.Context, tx *gorm.DB, req domain.CreateReportRequest) (*domain.Report, error) {
	report := domain.Report{
		ID:          s.genID.Generate(),
		LabOrderID:  req.LabOrderID,
		PatientID:   req.PatientID,
		PerformedBy: req.PerformedBy,
		Findings:    strings.TrimSpace(req.Findings),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, tx, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *Service) GetByOrder(ctx context.Context, orderID snowflake.ID) (*domain.Report, error) {
	return s.repo.FindByOrderID(ctx, s.db, orderID)
}
