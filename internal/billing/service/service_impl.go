package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/medisys/clinicore/internal/billing/domain"
	"github.com/medisys/clinicore/internal/clock"
	userdomain "github.com/medisys/clinicore/internal/user/domain"
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
		log:   p.Log.Named("billing.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) CreateForOrder(ctx context.Context, tx *gorm.DB, req domain.CreateBillingRequest) (*domain.Billing, error) {
	billing, err := s.build(req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, tx, billing); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrBillingExists
		}
		return nil, err
	}
	return billing, nil
}

func (s *Service) Create(ctx context.Context, actor userdomain.Actor, req domain.CreateBillingRequest) (*domain.Billing, error) {
	req.CreatedBy = actor.ID
	return s.CreateForOrder(ctx, s.db, req)
}

// build validates the billing arithmetic and assembles the row. Every
// violation maps to ErrInvalidAmount so callers see one failure mode.
func (s *Service) build(req domain.CreateBillingRequest) (*domain.Billing, error) {
	if len(req.Items) == 0 {
		return nil, domain.ErrInvalidAmount
	}
	if req.DiscountCents < 0 || req.TaxCents < 0 {
		return nil, domain.ErrInvalidAmount
	}
	if req.PatientID == 0 {
		return nil, domain.ErrInvalidAmount
	}

	now := s.clock.Now()
	billingID := s.genID.Generate()

	var subtotal int64
	items := make([]domain.BillingItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity < 1 || item.UnitPriceCents < 0 {
			return nil, domain.ErrInvalidAmount
		}
		if item.TotalCents != item.UnitPriceCents*int64(item.Quantity) {
			return nil, domain.ErrInvalidAmount
		}
		subtotal += item.TotalCents
		items = append(items, domain.BillingItem{
			ID:             s.genID.Generate(),
			BillingID:      billingID,
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
		})
	}

	total := subtotal - req.DiscountCents + req.TaxCents
	if total < 0 {
		return nil, domain.ErrInvalidAmount
	}

	return &domain.Billing{
		ID:            billingID,
		LabOrderID:    req.LabOrderID,
		PatientID:     req.PatientID,
		CreatedBy:     req.CreatedBy,
		Status:        domain.BillingPending,
		SubtotalCents: subtotal,
		DiscountCents: req.DiscountCents,
		TaxCents:      req.TaxCents,
		TotalCents:    total,
		Items:         items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *Service) RecordPayment(ctx context.Context, actor userdomain.Actor, billingID snowflake.ID, req domain.RecordPaymentRequest) (*domain.PaymentResult, error) {
	method, ok := domain.ParseMethod(string(req.Method))
	if !ok {
		return nil, domain.ErrInvalidMethod
	}
	if req.AmountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var result domain.PaymentResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		billing, err := s.repo.LockByID(ctx, tx, billingID)
		if err != nil {
			return err
		}
		if actor.Role == userdomain.RolePatient && billing.PatientID != actor.ID {
			return domain.ErrNotFound
		}

		switch billing.Status {
		case domain.BillingCancelled:
			return domain.ErrBillingCancelled
		case domain.BillingPaid:
			return domain.ErrAlreadyPaid
		}

		payment := domain.Payment{
			ID:            s.genID.Generate(),
			BillingID:     billing.ID,
			PatientID:     billing.PatientID,
			AmountCents:   req.AmountCents,
			Method:        method,
			Status:        domain.PaymentCompleted,
			ReceiptNumber: "REC-" + s.genID.Generate().String(),
			ProcessedBy:   actor.ID,
			PaidAt:        s.clock.Now(),
		}
		if err := s.repo.InsertPayment(ctx, tx, &payment); err != nil {
			return err
		}

		paid, err := s.repo.SumCompletedPayments(ctx, tx, billing.ID)
		if err != nil {
			return err
		}

		billing.Status = domain.Reconcile(billing.TotalCents, paid)
		billing.PaidCents = paid
		billing.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdateSettlement(ctx, tx, billing); err != nil {
			return err
		}

		result = domain.PaymentResult{
			Payment:      payment,
			Status:       billing.Status,
			PaidCents:    paid,
			FullySettled: billing.Status == domain.BillingPaid,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Service) UpdateAdjustments(ctx context.Context, actor userdomain.Actor, billingID snowflake.ID, req domain.UpdateAdjustmentsRequest) (*domain.Billing, error) {
	var updated *domain.Billing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		billing, err := s.repo.LockByID(ctx, tx, billingID)
		if err != nil {
			return err
		}
		if billing.Status == domain.BillingCancelled {
			return domain.ErrBillingCancelled
		}
		if billing.Status == domain.BillingPaid {
			return domain.ErrAlreadyPaid
		}
		if billing.PaidCents > 0 {
			return domain.ErrHasCompletedPayment
		}

		if req.DiscountCents != nil {
			billing.DiscountCents = *req.DiscountCents
		}
		if req.TaxCents != nil {
			billing.TaxCents = *req.TaxCents
		}
		if billing.DiscountCents < 0 || billing.TaxCents < 0 {
			return domain.ErrInvalidAmount
		}

		total := billing.SubtotalCents - billing.DiscountCents + billing.TaxCents
		if total < 0 {
			return domain.ErrInvalidAmount
		}
		billing.TotalCents = total
		billing.UpdatedAt = s.clock.Now()

		if err := s.repo.Save(ctx, tx, billing); err != nil {
			return err
		}
		updated = billing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Cancel(ctx context.Context, actor userdomain.Actor, billingID snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		billing, err := s.repo.LockByID(ctx, tx, billingID)
		if err != nil {
			return err
		}
		if billing.Status == domain.BillingCancelled {
			return nil
		}
		if billing.Status == domain.BillingPaid || billing.PaidCents > 0 {
			return domain.ErrHasCompletedPayment
		}

		billing.Status = domain.BillingCancelled
		billing.UpdatedAt = s.clock.Now()
		return s.repo.UpdateSettlement(ctx, tx, billing)
	})
}

func (s *Service) Get(ctx context.Context, actor userdomain.Actor, billingID snowflake.ID) (*domain.Billing, error) {
	billing, err := s.repo.FindByID(ctx, s.db, billingID, true)
	if err != nil {
		return nil, err
	}
	if err := s.scopeCheck(ctx, actor, billing); err != nil {
		return nil, err
	}
	return billing, nil
}

func (s *Service) List(ctx context.Context, actor userdomain.Actor, req domain.ListBillingsRequest) ([]domain.Billing, error) {
	switch actor.Role {
	case userdomain.RolePatient:
		req.PatientID = actor.ID
		req.DoctorID = 0
	case userdomain.RoleDoctor:
		req.DoctorID = actor.ID
	}
	return s.repo.List(ctx, s.db, req)
}

func (s *Service) ListPayments(ctx context.Context, actor userdomain.Actor, billingID snowflake.ID) ([]domain.Payment, error) {
	billing, err := s.repo.FindByID(ctx, s.db, billingID, false)
	if err != nil {
		return nil, err
	}
	if err := s.scopeCheck(ctx, actor, billing); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, s.db, billingID)
}

func (s *Service) GetPayment(ctx context.Context, actor userdomain.Actor, paymentID snowflake.ID) (*domain.Payment, error) {
	payment, err := s.repo.FindPaymentByID(ctx, s.db, paymentID)
	if err != nil {
		return nil, err
	}
	if actor.Role == userdomain.RolePatient && payment.PatientID != actor.ID {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, nil
}

// scopeCheck hides billings the actor has no business reading. Out of
// scope reads surface as not found rather than forbidden.
func (s *Service) scopeCheck(ctx context.Context, actor userdomain.Actor, billing *domain.Billing) error {
	switch actor.Role {
	case userdomain.RolePatient:
		if billing.PatientID != actor.ID {
			return domain.ErrNotFound
		}
	case userdomain.RoleDoctor:
		if billing.LabOrderID == nil {
			return domain.ErrNotFound
		}
		owned, err := s.repo.IsOrderOwnedBy(ctx, s.db, *billing.LabOrderID, actor.ID)
		if err != nil {
			return err
		}
		if !owned {
			return domain.ErrNotFound
		}
	}
	return nil
}
