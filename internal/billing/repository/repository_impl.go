package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/medisys/clinicore/internal/billing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, billing *domain.Billing) error {
	return db.WithContext(ctx).Create(billing).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, withItems bool) (*domain.Billing, error) {
	stmt := db.WithContext(ctx)
	if withItems {
		stmt = stmt.Preload("Items")
	}

	var billing domain.Billing
	if err := stmt.First(&billing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &billing, nil
}

func (r *repo) LockByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Billing, error) {
	var billing domain.Billing
	err := tx.WithContext(ctx).Raw(
		`SELECT id, lab_order_id, patient_id, created_by, status,
		        subtotal_cents, discount_cents, tax_cents, total_cents,
		        paid_cents, created_at, updated_at
		 FROM billings
		 WHERE id = ?
		 FOR UPDATE`,
		id,
	).Scan(&billing).Error
	if err != nil {
		return nil, err
	}
	if billing.ID == 0 {
		return nil, domain.ErrNotFound
	}
	return &billing, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req domain.ListBillingsRequest) ([]domain.Billing, error) {
	stmt := db.WithContext(ctx).Model(&domain.Billing{})

	if req.Status != "" {
		stmt = stmt.Where("status = ?", req.Status)
	}
	if req.PatientID != 0 {
		stmt = stmt.Where("patient_id = ?", req.PatientID)
	}
	if req.DoctorID != 0 {
		stmt = stmt.Where(
			"lab_order_id IN (SELECT id FROM lab_orders WHERE doctor_id = ?)",
			req.DoctorID,
		)
	}

	var billings []domain.Billing
	if err := stmt.Order("created_at desc, id desc").Find(&billings).Error; err != nil {
		return nil, err
	}
	return billings, nil
}

func (r *repo) UpdateSettlement(ctx context.Context, tx *gorm.DB, billing *domain.Billing) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE billings
		 SET status = ?, paid_cents = ?, updated_at = ?
		 WHERE id = ?`,
		billing.Status,
		billing.PaidCents,
		billing.UpdatedAt,
		billing.ID,
	).Error
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, billing *domain.Billing) error {
	return db.WithContext(ctx).Omit("Items").Save(billing).Error
}

func (r *repo) InsertPayment(ctx context.Context, tx *gorm.DB, payment *domain.Payment) error {
	return tx.WithContext(ctx).Create(payment).Error
}

func (r *repo) SumCompletedPayments(ctx context.Context, tx *gorm.DB, billingID snowflake.ID) (int64, error) {
	var sum int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount_cents), 0)
		 FROM payments
		 WHERE billing_id = ? AND status = ?`,
		billingID,
		domain.PaymentCompleted,
	).Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *repo) ListPayments(ctx context.Context, db *gorm.DB, billingID snowflake.ID) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := db.WithContext(ctx).
		Where("billing_id = ?", billingID).
		Order("paid_at asc, id asc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) IsOrderOwnedBy(ctx context.Context, db *gorm.DB, labOrderID, doctorID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM lab_orders WHERE id = ? AND doctor_id = ?`,
		labOrderID,
		doctorID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindPaymentByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	if err := db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}
