package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/medisys/clinicore/internal/laborder/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.LabOrder) error {
	return db.WithContext(ctx).Create(order).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, withTests bool) (*domain.LabOrder, error) {
	stmt := db.WithContext(ctx)
	if withTests {
		stmt = stmt.Preload("Tests")
	}

	var order domain.LabOrder
	if err := stmt.First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *repo) LockByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.LabOrder, error) {
	var order domain.LabOrder
	err := tx.WithContext(ctx).Raw(
		`SELECT id, patient_id, doctor_id, status, payment_status,
		        payment_verified, billing_id, payment_id, priority,
		        due_date, notes, cancel_reason, created_at, updated_at
		 FROM lab_orders
		 WHERE id = ?
		 FOR UPDATE`,
		id,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, domain.ErrNotFound
	}
	return &order, nil
}

func (r *repo) ListTests(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.LabOrderTest, error) {
	var tests []domain.LabOrderTest
	err := db.WithContext(ctx).
		Where("lab_order_id = ?", orderID).
		Order("id asc").
		Find(&tests).Error
	if err != nil {
		return nil, err
	}
	return tests, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req domain.ListOrdersRequest) ([]domain.LabOrder, error) {
	stmt := db.WithContext(ctx).Model(&domain.LabOrder{})

	if req.Status != "" {
		stmt = stmt.Where("status = ?", req.Status)
	}
	if req.PatientID != 0 {
		stmt = stmt.Where("patient_id = ?", req.PatientID)
	}
	if req.DoctorID != 0 {
		stmt = stmt.Where("doctor_id = ?", req.DoctorID)
	}

	var orders []domain.LabOrder
	if err := stmt.Order("created_at desc, id desc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, order *domain.LabOrder) error {
	return db.WithContext(ctx).Exec(
		`UPDATE lab_orders
		 SET status = ?, payment_status = ?, payment_verified = ?,
		     billing_id = ?, payment_id = ?, cancel_reason = ?, updated_at = ?
		 WHERE id = ?`,
		order.Status,
		order.PaymentStatus,
		order.PaymentVerified,
		order.BillingID,
		order.PaymentID,
		order.CancelReason,
		order.UpdatedAt,
		order.ID,
	).Error
}

func (r *repo) UpdateTestResult(ctx context.Context, db *gorm.DB, testID snowflake.ID, status domain.TestStatus, result string) error {
	res := db.WithContext(ctx).Model(&domain.LabOrderTest{}).
		Where("id = ?", testID).
		Updates(map[string]any{
			"status": status,
			"result": result,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUnknownOrderTest
	}
	return nil
}
