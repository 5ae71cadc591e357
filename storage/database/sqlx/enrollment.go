package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/klasshero/backend/core/enrollment"
)

type dbEnrollment struct {
	ID            string          `db:"id"`
	ParentID      string          `db:"parent_id"`
	ChildID       string          `db:"child_id"`
	ProgramID     string          `db:"program_id"`
	PaymentMethod string          `db:"payment_method"`
	Subtotal      decimal.Decimal `db:"subtotal"`
	VATAmount     decimal.Decimal `db:"vat_amount"`
	CardFeeAmount decimal.Decimal `db:"card_fee_amount"`
	Total         decimal.Decimal `db:"total"`
	Status        string          `db:"status"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (e dbEnrollment) toEnrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:            e.ID,
		ParentID:      e.ParentID,
		ChildID:       e.ChildID,
		ProgramID:     e.ProgramID,
		PaymentMethod: enrollment.PaymentMethod(e.PaymentMethod),
		Subtotal:      e.Subtotal,
		VATAmount:     e.VATAmount,
		CardFeeAmount: e.CardFeeAmount,
		Total:         e.Total,
		Status:        enrollment.Status(e.Status),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func newDBEnrollment(enr enrollment.Enrollment) dbEnrollment {
	return dbEnrollment{
		ID:            enr.ID,
		ParentID:      enr.ParentID,
		ChildID:       enr.ChildID,
		ProgramID:     enr.ProgramID,
		PaymentMethod: string(enr.PaymentMethod),
		Subtotal:      enr.Subtotal,
		VATAmount:     enr.VATAmount,
		CardFeeAmount: enr.CardFeeAmount,
		Total:         enr.Total,
		Status:        string(enr.Status),
		CreatedAt:     enr.CreatedAt.UTC(),
		UpdatedAt:     enr.UpdatedAt.UTC(),
	}
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	enr.ID = uuid.New().String()
	e := newDBEnrollment(enr)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO enrollment (id, parent_id, child_id, program_id, payment_method,
		                        subtotal, vat_amount, card_fee_amount, total, status,
		                        created_at, updated_at)
		VALUES (:id, :parent_id, :child_id, :program_id, :payment_method,
		        :subtotal, :vat_amount, :card_fee_amount, :total, :status,
		        :created_at, :updated_at)`, e)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e.toEnrollment(), nil
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, id string) (enrollment.Enrollment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}

	var e dbEnrollment
	if err := repo.db.GetContext(ctx, &e, `SELECT * FROM enrollment WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "finding enrollment")
	}
	return e.toEnrollment(), nil
}

func (repo enrollmentRepository) QueryEnrollmentsByParent(ctx context.Context, parentID string) ([]enrollment.Enrollment, error) {
	var enrollments []dbEnrollment
	if err := repo.db.SelectContext(ctx, &enrollments,
		`SELECT * FROM enrollment WHERE parent_id = $1 ORDER BY created_at DESC`, parentID); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}

	res := make([]enrollment.Enrollment, 0, len(enrollments))
	for _, e := range enrollments {
		res = append(res, e.toEnrollment())
	}
	return res, nil
}

func (repo enrollmentRepository) UpdateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	e := newDBEnrollment(enr)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE enrollment
		SET status = :status, updated_at = :updated_at
		WHERE id = :id`, e)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return e.toEnrollment(), nil
}

func (repo enrollmentRepository) GetMonthlyUsage(ctx context.Context, parentID, month string) (int, error) {
	var used int
	err := repo.db.GetContext(ctx, &used,
		`SELECT used FROM booking_usage WHERE parent_id = $1 AND month = $2`, parentID, month)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, errors.Wrap(err, "reading booking usage")
	}
	return used, nil
}

// IncrementUsage bumps the month's counter in one statement. The capped path
// only increments while used < cap, so two concurrent bookings can never race
// past the limit.
func (repo enrollmentRepository) IncrementUsage(ctx context.Context, parentID, month string, cap int, capped bool) error {
	if !capped {
		_, err := repo.db.ExecContext(ctx, `
			INSERT INTO booking_usage (parent_id, month, used)
			VALUES ($1, $2, 1)
			ON CONFLICT (parent_id, month) DO UPDATE SET used = booking_usage.used + 1`,
			parentID, month)
		return errors.Wrap(err, "incrementing booking usage")
	}

	if cap <= 0 {
		return enrollment.ErrBookingLimitExceeded
	}

	res, err := repo.db.ExecContext(ctx, `
		INSERT INTO booking_usage (parent_id, month, used)
		VALUES ($1, $2, 1)
		ON CONFLICT (parent_id, month) DO UPDATE SET used = booking_usage.used + 1
		WHERE booking_usage.used < $3`,
		parentID, month, cap)
	if err != nil {
		return errors.Wrap(err, "incrementing booking usage")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "incrementing booking usage")
	}
	if cnt == 0 {
		return enrollment.ErrBookingLimitExceeded
	}
	return nil
}

func (repo enrollmentRepository) DecrementUsage(ctx context.Context, parentID, month string) error {
	_, err := repo.db.ExecContext(ctx, `
		UPDATE booking_usage SET used = used - 1
		WHERE parent_id = $1 AND month = $2 AND used > 0`, parentID, month)
	return errors.Wrap(err, "decrementing booking usage")
}
