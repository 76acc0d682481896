package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sics-enrollment-api/internal/models"
)

const paymentColumns = `id, enrollment_id, student_id, amount_paid, payment_method, payment_type, reference_number, receipt_url,
payment_date, payment_status, created_at`

// PaymentRepository persists tuition payments.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreateTx inserts a payment inside a transaction.
func (r *PaymentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = now
	}
	payment.CreatedAt = now

	const query = `INSERT INTO payments (id, enrollment_id, student_id, amount_paid, payment_method, payment_type, reference_number, receipt_url,
payment_date, payment_status, created_at)
VALUES (:id, :enrollment_id, :student_id, :amount_paid, :payment_method, :payment_type, :reference_number, :receipt_url,
:payment_date, :payment_status, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// SumByStudentTx totals the student's payments as seen by the transaction.
func (r *PaymentRepository) SumByStudentTx(ctx context.Context, tx *sqlx.Tx, studentID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := tx.GetContext(ctx, &total, `SELECT COALESCE(SUM(amount_paid), 0) FROM payments WHERE student_id = $1`, studentID); err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}

// AssignStudentTx re-homes every payment of an enrollment to the admitted student.
func (r *PaymentRepository) AssignStudentTx(ctx context.Context, tx *sqlx.Tx, enrollmentID, studentID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE payments SET student_id = $2 WHERE enrollment_id = $1`, enrollmentID, studentID)
	if err != nil {
		return 0, fmt.Errorf("assign payments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("assign payments: %w", err)
	}
	return n, nil
}

// SettleLedgerTx marks every payment of the student as paid once the balance is cleared.
func (r *PaymentRepository) SettleLedgerTx(ctx context.Context, tx *sqlx.Tx, studentID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE payments SET payment_status = $2 WHERE student_id = $1 AND payment_status <> $2`, studentID, models.PaymentStatusPaid)
	if err != nil {
		return 0, fmt.Errorf("settle ledger: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("settle ledger: %w", err)
	}
	return n, nil
}

// ListByStudent returns the student's payments in chronological order.
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	query := "SELECT " + paymentColumns + " FROM payments WHERE student_id = $1 ORDER BY payment_date, created_at"
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list payments by student: %w", err)
	}
	return payments, nil
}

// ListByEnrollment returns payments captured with an application.
func (r *PaymentRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Payment, error) {
	query := "SELECT " + paymentColumns + " FROM payments WHERE enrollment_id = $1 ORDER BY payment_date, created_at"
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list payments by enrollment: %w", err)
	}
	return payments, nil
}
