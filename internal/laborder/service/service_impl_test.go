package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/medisys/clinicore/internal/audit/domain"
	auditrepo "github.com/medisys/clinicore/internal/audit/repository"
	auditservice "github.com/medisys/clinicore/internal/audit/service"
	billingdomain "github.com/medisys/clinicore/internal/billing/domain"
	billingrepo "github.com/medisys/clinicore/internal/billing/repository"
	billingservice "github.com/medisys/clinicore/internal/billing/service"
	catalogdomain "github.com/medisys/clinicore/internal/catalog/domain"
	catalogrepo "github.com/medisys/clinicore/internal/catalog/repository"
	catalogservice "github.com/medisys/clinicore/internal/catalog/service"
	"github.com/medisys/clinicore/internal/clock"
	"github.com/medisys/clinicore/internal/config"
	"github.com/medisys/clinicore/internal/identity"
	"github.com/medisys/clinicore/internal/laborder/domain"
	"github.com/medisys/clinicore/internal/laborder/repository"
	"github.com/medisys/clinicore/internal/migration"
	notifyrepo "github.com/medisys/clinicore/internal/notification/repository"
	notifyservice "github.com/medisys/clinicore/internal/notification/service"
	reportdomain "github.com/medisys/clinicore/internal/report/domain"
	reportrepo "github.com/medisys/clinicore/internal/report/repository"
	reportservice "github.com/medisys/clinicore/internal/report/service"
	userdomain "github.com/medisys/clinicore/internal/user/domain"
	userrepo "github.com/medisys/clinicore/internal/user/repository"
	userservice "github.com/medisys/clinicore/internal/user/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	node       *snowflake.Node
	clock      *clock.FakeClock
	orderSvc   domain.Service
	billingSvc billingdomain.Service
	catalogSvc catalogdomain.Service
	reportSvc  reportdomain.Service

	admin   userdomain.Actor
	doctor  userdomain.Actor
	patient userdomain.Actor
	lab     userdomain.Actor
	front   userdomain.Actor

	cbc   *catalogdomain.CatalogTest
	lipid *catalogdomain.CatalogTest
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	// sqlite has no FOR UPDATE; strip it so the raw lock queries run.
	stripForUpdate := func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if strings.Contains(sql, "FOR UPDATE") {
			newSQL := strings.ReplaceAll(sql, "FOR UPDATE", "")
			d.Statement.SQL.Reset()
			d.Statement.SQL.WriteString(newSQL)
		}
	}
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("sqlite_strip_for_update", stripForUpdate))
	require.NoError(t, db.Callback().Row().Before("gorm:row").Register("sqlite_strip_for_update_row", stripForUpdate))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	userSvc := userservice.NewService(userservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: userrepo.Provide(),
	})
	catalogSvc := catalogservice.NewService(catalogservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: catalogrepo.Provide(),
	})
	billingSvc := billingservice.NewService(billingservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: billingrepo.Provide(),
	})
	reportSvc := reportservice.NewService(reportservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: reportrepo.Provide(),
	})
	auditSvc := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: auditrepo.Provide(),
	})
	notifySvc := notifyservice.NewService(notifyservice.Params{
		Cfg: config.Config{}, DB: db, Log: log, GenID: node, Clock: fakeClock,
		Repo: notifyrepo.Provide(), UserSvc: userSvc,
	})
	orderSvc := NewService(Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: repository.Provide(),
		UserSvc: userSvc, CatalogSvc: catalogSvc, BillingSvc: billingSvc,
		ReportSvc: reportSvc, AuditSvc: auditSvc, NotifySvc: notifySvc,
	})

	f := &fixture{
		db:         db,
		node:       node,
		clock:      fakeClock,
		orderSvc:   orderSvc,
		billingSvc: billingSvc,
		catalogSvc: catalogSvc,
		reportSvc:  reportSvc,
	}

	ctx := context.Background()
	f.admin = f.createUser(t, ctx, userSvc, userdomain.RoleAdmin)
	f.doctor = f.createUser(t, ctx, userSvc, userdomain.RoleDoctor)
	f.patient = f.createUser(t, ctx, userSvc, userdomain.RolePatient)
	f.lab = f.createUser(t, ctx, userSvc, userdomain.RoleLabAssistant)
	f.front = f.createUser(t, ctx, userSvc, userdomain.RoleReceptionist)

	f.cbc, err = catalogSvc.Create(ctx, catalogdomain.CreateTestRequest{
		Code: "CBC", Name: "Complete Blood Count", Category: "hematology",
		UnitPriceCents: 2500, TurnaroundHrs: 24,
	})
	require.NoError(t, err)
	f.lipid, err = catalogSvc.Create(ctx, catalogdomain.CreateTestRequest{
		Code: "LIPID", Name: "Lipid Panel", Category: "chemistry",
		UnitPriceCents: 1500, TurnaroundHrs: 48,
	})
	require.NoError(t, err)

	return f
}

func (f *fixture) createUser(t *testing.T, ctx context.Context, svc userdomain.Service, role userdomain.Role) userdomain.Actor {
	t.Helper()
	user, err := svc.Create(ctx, userdomain.CreateUserRequest{
		Role:      role,
		Email:     string(role) + "-" + f.node.Generate().String() + "@clinicore.test",
		Password:  "s3cret-pass",
		FirstName: "Test",
		LastName:  string(role),
	})
	require.NoError(t, err)
	return user.Actor()
}

func (f *fixture) placeOrder(t *testing.T, ctx context.Context) *domain.LabOrder {
	t.Helper()
	order, err := f.orderSvc.Create(ctx, f.doctor, domain.CreateOrderRequest{
		PatientID: f.patient.ID,
		Tests: []domain.OrderTestRequest{
			{TestID: f.cbc.ID, Quantity: 1},
			{TestID: f.lipid.ID, Quantity: 2},
		},
		Priority: "urgent",
		Notes:    "fasting sample",
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) payInFull(t *testing.T, ctx context.Context, order *domain.LabOrder) *domain.PaymentOutcome {
	t.Helper()
	billing, err := f.billingSvc.Get(ctx, f.front, *order.BillingID)
	require.NoError(t, err)
	outcome, err := f.orderSvc.RecordPayment(ctx, f.front, order.ID, billingdomain.RecordPaymentRequest{
		Method:      billingdomain.MethodCash,
		AmountCents: billing.TotalCents,
	})
	require.NoError(t, err)
	return outcome
}

func (f *fixture) auditCount(t *testing.T, action string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&auditdomain.AuditLog{}).Where("action = ?", action).Count(&count).Error)
	return count
}

func TestCreateOrder_SnapshotsCatalogPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.placeOrder(t, ctx)
	require.Len(t, order.Tests, 2)
	assert.Equal(t, domain.OrderPendingPayment, order.Status)
	assert.Equal(t, billingdomain.BillingPending, order.PaymentStatus)
	assert.Equal(t, domain.PriorityUrgent, order.Priority)
	require.NotNil(t, order.BillingID)

	billing, err := f.billingSvc.Get(ctx, f.front, *order.BillingID)
	require.NoError(t, err)
	// CBC 2500 + 2x LIPID 1500.
	assert.Equal(t, int64(5500), billing.TotalCents)

	// A later price change must not touch the order or its billing.
	newPrice := int64(9900)
	_, err = f.catalogSvc.Update(ctx, f.cbc.ID, catalogdomain.UpdateTestRequest{UnitPriceCents: &newPrice})
	require.NoError(t, err)

	reloaded, err := f.orderSvc.Get(ctx, f.doctor, order.ID)
	require.NoError(t, err)
	for _, test := range reloaded.Tests {
		if test.TestID == f.cbc.ID {
			assert.Equal(t, int64(2500), test.UnitPriceCents)
		}
	}
	billing, err = f.billingSvc.Get(ctx, f.front, *order.BillingID)
	require.NoError(t, err)
	assert.Equal(t, int64(5500), billing.TotalCents)
}

func TestCreateOrder_DoctorOrdersOnOwnBehalf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	otherDoctor := f.admin.ID
	order, err := f.orderSvc.Create(ctx, f.doctor, domain.CreateOrderRequest{
		PatientID: f.patient.ID,
		DoctorID:  otherDoctor,
		Tests:     []domain.OrderTestRequest{{TestID: f.cbc.ID}},
	})
	require.NoError(t, err)
	assert.Equal(t, f.doctor.ID, order.DoctorID)
}

func TestCreateOrder_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orderSvc.Create(ctx, f.doctor, domain.CreateOrderRequest{
		PatientID: f.patient.ID,
	})
	assert.ErrorIs(t, err, domain.ErrEmptyTests)

	_, err = f.orderSvc.Create(ctx, f.doctor, domain.CreateOrderRequest{
		PatientID: f.patient.ID,
		Tests:     []domain.OrderTestRequest{{TestID: f.cbc.ID}},
		Priority:  "asap",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPriority)

	// The patient must hold the patient role.
	_, err = f.orderSvc.Create(ctx, f.doctor, domain.CreateOrderRequest{
		PatientID: f.lab.ID,
		Tests:     []domain.OrderTestRequest{{TestID: f.cbc.ID}},
	})
	assert.ErrorIs(t, err, userdomain.ErrNotFound)

	// Deactivated catalog entries cannot be ordered.
	require.NoError(t, f.catalogSvc.Deactivate(ctx, f.lipid.ID))
	_, err = f.orderSvc.Create(ctx, f.doctor, domain.CreateOrderRequest{
		PatientID: f.patient.ID,
		Tests:     []domain.OrderTestRequest{{TestID: f.lipid.ID}},
	})
	assert.ErrorIs(t, err, catalogdomain.ErrNotFound)
}

func TestRecordPayment_PartialKeepsOrderPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.placeOrder(t, ctx)
	outcome, err := f.orderSvc.RecordPayment(ctx, f.front, order.ID, billingdomain.RecordPaymentRequest{
		Method:      billingdomain.MethodCash,
		AmountCents: 3000,
	})
	require.NoError(t, err)
	assert.False(t, outcome.Settlement.FullySettled)
	assert.Equal(t, billingdomain.BillingPartiallyPaid, outcome.Settlement.Status)
	assert.Equal(t, domain.OrderPendingPayment, outcome.Order.Status)
	assert.Equal(t, billingdomain.BillingPartiallyPaid, outcome.Order.PaymentStatus)
	assert.False(t, outcome.Order.PaymentVerified)
}

func TestRecordPayment_FullSettlementMovesOrderToPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.placeOrder(t, ctx)

	// 3000 now, 2500 later settles the 5500 total.
	_, err := f.orderSvc.RecordPayment(ctx, f.front, order.ID, billingdomain.RecordPaymentRequest{
		Method:      billingdomain.MethodCash,
		AmountCents: 3000,
	})
	require.NoError(t, err)

	outcome, err := f.orderSvc.RecordPayment(ctx, f.front, order.ID, billingdomain.RecordPaymentRequest{
		Method:      billingdomain.MethodCard,
		AmountCents: 2500,
	})
	require.NoError(t, err)
	assert.True(t, outcome.Settlement.FullySettled)
	assert.Equal(t, domain.OrderPaid, outcome.Order.Status)
	assert.Equal(t, billingdomain.BillingPaid, outcome.Order.PaymentStatus)
	assert.True(t, outcome.Order.PaymentVerified)
	require.NotNil(t, outcome.Order.PaymentID)
	assert.Equal(t, outcome.Settlement.Payment.ID, *outcome.Order.PaymentID)

	assert.GreaterOrEqual(t, f.auditCount(t, "payment.recorded"), int64(2))
}

func TestRecordPayment_PatientPaysOwnOrderOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.placeOrder(t, ctx)

	_, err := f.orderSvc.RecordPayment(ctx, f.patient, order.ID, billingdomain.RecordPaymentRequest{
		Method:      billingdomain.MethodMobileMoney,
		AmountCents: 5500,
	})
	require.NoError(t, err)

	other := f.placeOrder(t, ctx)
	stranger := userdomain.Actor{ID: f.node.Generate(), Role: userdomain.RolePatient}
	_, err = f.orderSvc.RecordPayment(ctx, stranger, other.ID, billingdomain.RecordPaymentRequest{
		Method:      billingdomain.MethodCash,
		AmountCents: 100,
	})
	assert.ErrorIs(t, err, identity.ErrForbidden)
	assert.Equal(t, int64(1), f.auditCount(t, "access.denied"))
}

func TestBeginProcessing_RequiresPaidOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.placeOrder(t, ctx)

	_, err := f.orderSvc.BeginProcessing(ctx, f.lab, order.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	var transitionErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, domain.OrderPendingPayment, transitionErr.From)
	assert.Equal(t, domain.OrderInProgress, transitionErr.To)

	f.payInFull(t, ctx, order)
	updated, err := f.orderSvc.BeginProcessing(ctx, f.lab, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderInProgress, updated.Status)
}

func TestSubmitResults_CompletesOrderAndWritesReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.placeOrder(t, ctx)
	f.payInFull(t, ctx, order)
	_, err := f.orderSvc.BeginProcessing(ctx, f.lab, order.ID)
	require.NoError(t, err)

	results := make([]domain.TestResultRequest, 0, len(order.Tests))
	for _, test := range order.Tests {
		results = append(results, domain.TestResultRequest{
			OrderTestID: test.ID,
			Status:      domain.TestCompleted,
			Result:      "within normal range",
		})
	}

	completed, err := f.orderSvc.SubmitResults(ctx, f.lab, order.ID, domain.SubmitResultsRequest{
		Results:  results,
		Findings: "No abnormalities detected.",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, completed.Status)
	for _, test := range completed.Tests {
		assert.Equal(t, domain.TestCompleted, test.Status)
		assert.Equal(t, "within normal range", test.Result)
	}

	report, err := f.reportSvc.GetByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "No abnormalities detected.", report.Findings)
	assert.Equal(t, f.lab.ID, report.PerformedBy)
}

func TestSubmitResults_RejectsIncompleteResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.placeOrder(t, ctx)
	f.payInFull(t, ctx, order)
	_, err := f.orderSvc.BeginProcessing(ctx, f.lab, order.ID)
	require.NoError(t, err)

	// Only one of the two tests gets a result.
	_, err = f.orderSvc.SubmitResults(ctx, f.lab, order.ID, domain.SubmitResultsRequest{
		Results: []domain.TestResultRequest{
			{OrderTestID: order.Tests[0].ID, Status: domain.TestCompleted, Result: "ok"},
		},
	})
	assert.ErrorIs(t, err, domain.ErrIncompleteResults)

	// Results for a test that belongs to a different order are rejected.
	_, err = f.orderSvc.SubmitResults(ctx, f.lab, order.ID, domain.SubmitResultsRequest{
		Results: []domain.TestResultRequest{
			{OrderTestID: f.node.Generate(), Status: domain.TestCompleted, Result: "ok"},
		},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownOrderTest)

	// The order is untouched after the failed submissions.
	reloaded, err := f.orderSvc.Get(ctx, f.lab, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderInProgress, reloaded.Status)
}

func TestSubmitResults_BeforeProcessingRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.placeOrder(t, ctx)

	_, err := f.orderSvc.SubmitResults(ctx, f.lab, order.ID, domain.SubmitResultsRequest{
		Results: []domain.TestResultRequest{
			{OrderTestID: order.Tests[0].ID, Status: domain.TestCompleted, Result: "ok"},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCancel_BeforePaymentClosesBilling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.placeOrder(t, ctx)
	cancelled, err := f.orderSvc.Cancel(ctx, f.doctor, order.ID, "patient rescheduled")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, cancelled.Status)
	assert.Equal(t, "patient rescheduled", cancelled.CancelReason)

	billing, err := f.billingSvc.Get(ctx, f.front, *order.BillingID)
	require.NoError(t, err)
	assert.Equal(t, billingdomain.BillingCancelled, billing.Status)
	assert.Equal(t, billingdomain.BillingCancelled, cancelled.PaymentStatus)
}

func TestCancel_AfterPaymentKeepsBilling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.placeOrder(t, ctx)
	f.payInFull(t, ctx, order)

	cancelled, err := f.orderSvc.Cancel(ctx, f.front, order.ID, "specimen lost")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, cancelled.Status)

	// Verification drops with the order; the payment id survives as the
	// refund trail.
	assert.False(t, cancelled.PaymentVerified)
	assert.NotNil(t, cancelled.PaymentID)

	// Settled money keeps the billing record alive for refund handling.
	billing, err := f.billingSvc.Get(ctx, f.front, *order.BillingID)
	require.NoError(t, err)
	assert.Equal(t, billingdomain.BillingPaid, billing.Status)
	assert.Equal(t, billingdomain.BillingPaid, cancelled.PaymentStatus)
}

func TestCancel_TerminalOrderRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.placeOrder(t, ctx)
	_, err := f.orderSvc.Cancel(ctx, f.doctor, order.ID, "")
	require.NoError(t, err)

	_, err = f.orderSvc.Cancel(ctx, f.doctor, order.ID, "again")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCancel_OtherDoctorForbiddenAndAudited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.placeOrder(t, ctx)
	otherDoctor := userdomain.Actor{ID: f.node.Generate(), Role: userdomain.RoleDoctor}

	_, err := f.orderSvc.Cancel(ctx, otherDoctor, order.ID, "not mine")
	assert.ErrorIs(t, err, identity.ErrForbidden)
	assert.Equal(t, int64(1), f.auditCount(t, "access.denied"))

	reloaded, err := f.orderSvc.Get(ctx, f.doctor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPendingPayment, reloaded.Status)
}

func TestGet_ScopedToParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.placeOrder(t, ctx)

	_, err := f.orderSvc.Get(ctx, f.patient, order.ID)
	assert.NoError(t, err)
	_, err = f.orderSvc.Get(ctx, f.doctor, order.ID)
	assert.NoError(t, err)
	_, err = f.orderSvc.Get(ctx, f.admin, order.ID)
	assert.NoError(t, err)

	strangerPatient := userdomain.Actor{ID: f.node.Generate(), Role: userdomain.RolePatient}
	_, err = f.orderSvc.Get(ctx, strangerPatient, order.ID)
	assert.ErrorIs(t, err, identity.ErrForbidden)

	strangerDoctor := userdomain.Actor{ID: f.node.Generate(), Role: userdomain.RoleDoctor}
	_, err = f.orderSvc.Get(ctx, strangerDoctor, order.ID)
	assert.ErrorIs(t, err, identity.ErrForbidden)

	assert.Equal(t, int64(2), f.auditCount(t, "access.denied"))
}

func TestList_ScopedByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.placeOrder(t, ctx)
	f.placeOrder(t, ctx)

	mine, err := f.orderSvc.List(ctx, f.patient, domain.ListOrdersRequest{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	strangerPatient := userdomain.Actor{ID: f.node.Generate(), Role: userdomain.RolePatient}
	none, err := f.orderSvc.List(ctx, strangerPatient, domain.ListOrdersRequest{})
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := f.orderSvc.List(ctx, f.admin, domain.ListOrdersRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
