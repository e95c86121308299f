package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/medisys/clinicore/internal/audit/domain"
	billingdomain "github.com/medisys/clinicore/internal/billing/domain"
	catalogdomain "github.com/medisys/clinicore/internal/catalog/domain"
	"github.com/medisys/clinicore/internal/clock"
	"github.com/medisys/clinicore/internal/identity"
	"github.com/medisys/clinicore/internal/laborder/domain"
	notifydomain "github.com/medisys/clinicore/internal/notification/domain"
	reportdomain "github.com/medisys/clinicore/internal/report/domain"
	userdomain "github.com/medisys/clinicore/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	UserSvc    userdomain.Service
	CatalogSvc catalogdomain.Service
	BillingSvc billingdomain.Service
	ReportSvc  reportdomain.Service
	AuditSvc   auditdomain.Service
	NotifySvc  notifydomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	userSvc    userdomain.Service
	catalogSvc catalogdomain.Service
	billingSvc billingdomain.Service
	reportSvc  reportdomain.Service
	auditSvc   auditdomain.Service
	notifySvc  notifydomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("laborder.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		userSvc:    p.UserSvc,
		catalogSvc: p.CatalogSvc,
		billingSvc: p.BillingSvc,
		reportSvc:  p.ReportSvc,
		auditSvc:   p.AuditSvc,
		notifySvc:  p.NotifySvc,
	}
}

func (s *Service) Create(ctx context.Context, actor userdomain.Actor, req domain.CreateOrderRequest) (*domain.LabOrder, error) {
	doctorID := req.DoctorID
	if actor.Role == userdomain.RoleDoctor {
		// A doctor orders only on their own behalf.
		doctorID = actor.ID
	}
	if doctorID == 0 {
		return nil, userdomain.ErrNotFound
	}

	if _, err := s.userSvc.GetActiveWithRole(ctx, doctorID, userdomain.RoleDoctor); err != nil {
		return nil, err
	}
	patient, err := s.userSvc.GetActiveWithRole(ctx, req.PatientID, userdomain.RolePatient)
	if err != nil {
		return nil, err
	}

	priority, ok := domain.ParsePriority(req.Priority)
	if !ok {
		return nil, domain.ErrInvalidPriority
	}
	if len(req.Tests) == 0 {
		return nil, domain.ErrEmptyTests
	}

	now := s.clock.Now()
	orderID := s.genID.Generate()

	// Snapshot the catalog before opening the transaction. The snapshot
	// rows are what the billing and all later reads are built from.
	tests := make([]domain.LabOrderTest, 0, len(req.Tests))
	items := make([]billingdomain.CreateItemRequest, 0, len(req.Tests))
	for _, testReq := range req.Tests {
		quantity := testReq.Quantity
		if quantity == 0 {
			quantity = 1
		}
		if quantity < 1 {
			return nil, billingdomain.ErrInvalidAmount
		}

		catalogTest, err := s.catalogSvc.GetActive(ctx, testReq.TestID)
		if err != nil {
			return nil, err
		}

		tests = append(tests, domain.LabOrderTest{
			ID:             s.genID.Generate(),
			LabOrderID:     orderID,
			TestID:         catalogTest.ID,
			Code:           catalogTest.Code,
			Name:           catalogTest.Name,
			UnitPriceCents: catalogTest.UnitPriceCents,
			Quantity:       quantity,
			Status:         domain.TestPending,
		})
		items = append(items, billingdomain.CreateItemRequest{
			Description:    fmt.Sprintf("%s (%s)", catalogTest.Name, catalogTest.Code),
			Quantity:       quantity,
			UnitPriceCents: catalogTest.UnitPriceCents,
			TotalCents:     catalogTest.UnitPriceCents * int64(quantity),
		})
	}

	order := domain.LabOrder{
		ID:        orderID,
		PatientID: patient.ID,
		DoctorID:  doctorID,
		Status:    domain.OrderPendingPayment,
		Priority:  priority,
		DueDate:   req.DueDate,
		Notes:     strings.TrimSpace(req.Notes),
		Tests:     tests,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &order); err != nil {
			return err
		}

		billing, err := s.billingSvc.CreateForOrder(ctx, tx, billingdomain.CreateBillingRequest{
			LabOrderID:    &order.ID,
			PatientID:     patient.ID,
			CreatedBy:     actor.ID,
			Items:         items,
			DiscountCents: req.DiscountCents,
			TaxCents:      req.TaxCents,
		})
		if err != nil {
			return err
		}

		order.BillingID = &billing.ID
		order.PaymentStatus = billing.Status
		return s.repo.Update(ctx, tx, &order)
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Record(ctx, auditdomain.Entry{
		Actor:      actor,
		Action:     "lab_order.created",
		TargetType: "lab_order",
		TargetID:   order.ID.String(),
		Metadata: map[string]any{
			"patient_id": order.PatientID.String(),
			"doctor_id":  order.DoctorID.String(),
			"tests":      len(order.Tests),
		},
	})
	s.notifySvc.NotifyRole(ctx, userdomain.RoleLabAssistant, notifydomain.Message{
		Kind:  notifydomain.KindOrderCreated,
		Title: "New lab order",
		Body:  fmt.Sprintf("Lab order %s created, awaiting payment", order.ID),
		Metadata: map[string]any{
			"lab_order_id": order.ID.String(),
			"priority":     string(order.Priority),
		},
	})

	return &order, nil
}

func (s *Service) RecordPayment(ctx context.Context, actor userdomain.Actor, orderID snowflake.ID, req billingdomain.RecordPaymentRequest) (*domain.PaymentOutcome, error) {
	order, err := s.repo.FindByID(ctx, s.db, orderID, false)
	if err != nil {
		return nil, err
	}
	if actor.Role == userdomain.RolePatient && order.PatientID != actor.ID {
		return nil, s.deny(ctx, actor, orderID, "lab_order.pay")
	}
	if order.BillingID == nil {
		return nil, domain.ErrNoBilling
	}

	settlement, err := s.billingSvc.RecordPayment(ctx, actor, *order.BillingID, req)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.LockByID(ctx, tx, orderID)
		if err != nil {
			return err
		}

		// The ledger status is mirrored on every payment; the order
		// itself only advances on full settlement, and only while it is
		// still waiting for one.
		locked.PaymentStatus = settlement.Status
		if settlement.FullySettled && locked.Status == domain.OrderPendingPayment {
			locked.Status = domain.OrderPaid
			locked.PaymentVerified = true
			paymentID := settlement.Payment.ID
			locked.PaymentID = &paymentID
		}
		locked.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, locked); err != nil {
			return err
		}
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Record(ctx, auditdomain.Entry{
		Actor:      actor,
		Action:     "payment.recorded",
		TargetType: "lab_order",
		TargetID:   order.ID.String(),
		Metadata: map[string]any{
			"billing_id":     settlement.Payment.BillingID.String(),
			"payment_id":     settlement.Payment.ID.String(),
			"amount_cents":   settlement.Payment.AmountCents,
			"method":         string(settlement.Payment.Method),
			"receipt_number": settlement.Payment.ReceiptNumber,
			"billing_status": string(settlement.Status),
		},
	})
	s.notifySvc.NotifyUser(ctx, order.PatientID, notifydomain.Message{
		Kind:  notifydomain.KindPaymentReceived,
		Title: "Payment received",
		Body:  fmt.Sprintf("Receipt %s issued for lab order %s", settlement.Payment.ReceiptNumber, order.ID),
		Metadata: map[string]any{
			"lab_order_id": order.ID.String(),
			"payment_id":   settlement.Payment.ID.String(),
		},
	})
	if settlement.FullySettled {
		s.notifySvc.NotifyRole(ctx, userdomain.RoleLabAssistant, notifydomain.Message{
			Kind:  notifydomain.KindOrderPaid,
			Title: "Lab order ready for processing",
			Body:  fmt.Sprintf("Lab order %s is fully paid", order.ID),
			Metadata: map[string]any{
				"lab_order_id": order.ID.String(),
			},
		})
	}

	return &domain.PaymentOutcome{Order: order, Settlement: settlement}, nil
}

func (s *Service) BeginProcessing(ctx context.Context, actor userdomain.Actor, orderID snowflake.ID) (*domain.LabOrder, error) {
	var order *domain.LabOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.LockByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(locked.Status, domain.OrderInProgress) {
			return &domain.InvalidTransitionError{From: locked.Status, To: domain.OrderInProgress}
		}

		locked.Status = domain.OrderInProgress
		locked.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, locked); err != nil {
			return err
		}
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Record(ctx, auditdomain.Entry{
		Actor:      actor,
		Action:     "lab_order.processing_started",
		TargetType: "lab_order",
		TargetID:   order.ID.String(),
	})
	s.notifySvc.NotifyUser(ctx, order.PatientID, notifydomain.Message{
		Kind:  notifydomain.KindOrderInProgress,
		Title: "Lab work started",
		Body:  fmt.Sprintf("Lab order %s is now being processed", order.ID),
		Metadata: map[string]any{
			"lab_order_id": order.ID.String(),
		},
	})

	return order, nil
}

func (s *Service) SubmitResults(ctx context.Context, actor userdomain.Actor, orderID snowflake.ID, req domain.SubmitResultsRequest) (*domain.LabOrder, error) {
	var order *domain.LabOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.LockByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(locked.Status, domain.OrderCompleted) {
			return &domain.InvalidTransitionError{From: locked.Status, To: domain.OrderCompleted}
		}

		tests, err := s.repo.ListTests(ctx, tx, orderID)
		if err != nil {
			return err
		}

		byID := make(map[snowflake.ID]*domain.LabOrderTest, len(tests))
		for i := range tests {
			byID[tests[i].ID] = &tests[i]
		}

		for _, result := range req.Results {
			test, ok := byID[result.OrderTestID]
			if !ok {
				return domain.ErrUnknownOrderTest
			}
			if result.Status != domain.TestCompleted && result.Status != domain.TestCancelled {
				return domain.ErrIncompleteResults
			}
			test.Status = result.Status
			test.Result = strings.TrimSpace(result.Result)
		}

		// Completion requires every single test to have reached a
		// terminal status.
		for _, test := range tests {
			if test.Status == domain.TestPending {
				return domain.ErrIncompleteResults
			}
		}

		for _, test := range tests {
			if err := s.repo.UpdateTestResult(ctx, tx, test.ID, test.Status, test.Result); err != nil {
				return err
			}
		}

		if _, err := s.reportSvc.CreateForOrder(ctx, tx, reportdomain.CreateReportRequest{
			LabOrderID:  locked.ID,
			PatientID:   locked.PatientID,
			PerformedBy: actor.ID,
			Findings:    req.Findings,
		}); err != nil {
			return err
		}

		locked.Status = domain.OrderCompleted
		locked.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, locked); err != nil {
			return err
		}
		locked.Tests = tests
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Record(ctx, auditdomain.Entry{
		Actor:      actor,
		Action:     "lab_order.completed",
		TargetType: "lab_order",
		TargetID:   order.ID.String(),
		Metadata: map[string]any{
			"results": len(req.Results),
		},
	})
	s.notifySvc.NotifyUser(ctx, order.PatientID, notifydomain.Message{
		Kind:  notifydomain.KindOrderCompleted,
		Title: "Lab results ready",
		Body:  fmt.Sprintf("Results for lab order %s are available", order.ID),
		Metadata: map[string]any{
			"lab_order_id": order.ID.String(),
		},
	})
	s.notifySvc.NotifyUser(ctx, order.DoctorID, notifydomain.Message{
		Kind:  notifydomain.KindOrderCompleted,
		Title: "Lab results ready",
		Body:  fmt.Sprintf("Results for lab order %s are available", order.ID),
		Metadata: map[string]any{
			"lab_order_id": order.ID.String(),
		},
	})

	return order, nil
}

func (s *Service) Cancel(ctx context.Context, actor userdomain.Actor, orderID snowflake.ID, reason string) (*domain.LabOrder, error) {
	var order *domain.LabOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.LockByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if actor.Role == userdomain.RoleDoctor && locked.DoctorID != actor.ID {
			return identity.ErrForbidden
		}
		if !domain.CanTransition(locked.Status, domain.OrderCancelled) {
			return &domain.InvalidTransitionError{From: locked.Status, To: domain.OrderCancelled}
		}

		locked.Status = domain.OrderCancelled
		// Verification only holds while the order is live. The payment id
		// stays behind as the refund trail.
		locked.PaymentVerified = false
		locked.CancelReason = strings.TrimSpace(reason)
		locked.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, locked); err != nil {
			return err
		}
		order = locked
		return nil
	})
	if err != nil {
		if err == identity.ErrForbidden {
			return nil, s.deny(ctx, actor, orderID, "lab_order.cancel")
		}
		return nil, err
	}

	// The billing survives cancellation once money has settled against
	// it; otherwise it is closed alongside the order and the order's
	// payment status follows.
	if order.BillingID != nil {
		if err := s.billingSvc.Cancel(ctx, actor, *order.BillingID); err != nil {
			if err != billingdomain.ErrHasCompletedPayment {
				s.log.Warn("failed to cancel billing for cancelled order",
					zap.String("lab_order_id", order.ID.String()),
					zap.String("billing_id", order.BillingID.String()),
					zap.Error(err),
				)
			}
		} else {
			order.PaymentStatus = billingdomain.BillingCancelled
			if err := s.repo.Update(ctx, s.db, order); err != nil {
				s.log.Warn("failed to mirror cancelled billing on order",
					zap.String("lab_order_id", order.ID.String()),
					zap.Error(err),
				)
			}
		}
	}

	s.auditSvc.Record(ctx, auditdomain.Entry{
		Actor:      actor,
		Action:     "lab_order.cancelled",
		TargetType: "lab_order",
		TargetID:   order.ID.String(),
		Metadata: map[string]any{
			"reason": order.CancelReason,
		},
	})
	s.notifySvc.NotifyUser(ctx, order.PatientID, notifydomain.Message{
		Kind:  notifydomain.KindOrderCancelled,
		Title: "Lab order cancelled",
		Body:  fmt.Sprintf("Lab order %s was cancelled", order.ID),
		Metadata: map[string]any{
			"lab_order_id": order.ID.String(),
		},
	})

	return order, nil
}

func (s *Service) Get(ctx context.Context, actor userdomain.Actor, orderID snowflake.ID) (*domain.LabOrder, error) {
	order, err := s.repo.FindByID(ctx, s.db, orderID, true)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case userdomain.RolePatient:
		if order.PatientID != actor.ID {
			return nil, s.deny(ctx, actor, orderID, "lab_order.view")
		}
	case userdomain.RoleDoctor:
		if order.DoctorID != actor.ID {
			return nil, s.deny(ctx, actor, orderID, "lab_order.view")
		}
	}
	return order, nil
}

func (s *Service) List(ctx context.Context, actor userdomain.Actor, req domain.ListOrdersRequest) ([]domain.LabOrder, error) {
	switch actor.Role {
	case userdomain.RolePatient:
		req.PatientID = actor.ID
		req.DoctorID = 0
	case userdomain.RoleDoctor:
		req.DoctorID = actor.ID
	}
	return s.repo.List(ctx, s.db, req)
}

// deny records the refused access before surfacing it. Denials are part
// of the audit trail just like successful mutations.
func (s *Service) deny(ctx context.Context, actor userdomain.Actor, orderID snowflake.ID, action string) error {
	s.auditSvc.Record(ctx, auditdomain.Entry{
		Actor:      actor,
		Action:     "access.denied",
		TargetType: "lab_order",
		TargetID:   orderID.String(),
		Metadata: map[string]any{
			"attempted": action,
		},
	})
	return identity.ErrForbidden
}
