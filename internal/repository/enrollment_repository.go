package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sics-enrollment-api/internal/models"
)

const enrollmentColumns = `id, first_name, middle_name, last_name, birth_date, gender, address, grade_level, previous_school,
parent_name, parent_contact, parent_email, guardian_name, guardian_contact, status, created_at, updated_at`

// EnrollmentRepository handles persistence of enrollment applications and their siblings.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria, newest first.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.GradeLevel != "" {
		conditions = append(conditions, fmt.Sprintf("grade_level = $%d", len(args)+1))
		args = append(args, filter.GradeLevel)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR LOWER(parent_email) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM enrollments%s ORDER BY created_at DESC LIMIT %d OFFSET %d", enrollmentColumns, clause, size, offset)
	var items []models.Enrollment
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM enrollments"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return items, total, nil
}

// FindByID fetches an enrollment without locking.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := "SELECT " + enrollmentColumns + " FROM enrollments WHERE id = $1"
	var e models.Enrollment
	if err := r.db.GetContext(ctx, &e, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return &e, nil
}

// FindByIDForUpdateTx fetches an enrollment and locks its row until the transaction ends.
func (r *EnrollmentRepository) FindByIDForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Enrollment, error) {
	query := "SELECT " + enrollmentColumns + " FROM enrollments WHERE id = $1 FOR UPDATE"
	var e models.Enrollment
	if err := tx.GetContext(ctx, &e, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock enrollment: %w", err)
	}
	return &e, nil
}

// CreateTx inserts an enrollment inside the provided transaction.
func (r *EnrollmentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, e *models.Enrollment) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	if e.Status == "" {
		e.Status = models.EnrollmentStatusPending
	}

	const query = `INSERT INTO enrollments (id, first_name, middle_name, last_name, birth_date, gender, address, grade_level, previous_school,
parent_name, parent_contact, parent_email, guardian_name, guardian_contact, status, created_at, updated_at)
VALUES (:id, :first_name, :middle_name, :last_name, :birth_date, :gender, :address, :grade_level, :previous_school,
:parent_name, :parent_contact, :parent_email, :guardian_name, :guardian_contact, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// CreateSiblingsTx stores the siblings declared on an application.
func (r *EnrollmentRepository) CreateSiblingsTx(ctx context.Context, tx *sqlx.Tx, enrollmentID string, siblings []models.Sibling) error {
	const query = `INSERT INTO enrollment_siblings (id, enrollment_id, name, birth_date, created_at) VALUES (:id, :enrollment_id, :name, :birth_date, :created_at)`
	now := time.Now().UTC()
	for i := range siblings {
		s := &siblings[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.EnrollmentID = enrollmentID
		s.CreatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, s); err != nil {
			return fmt.Errorf("create sibling: %w", err)
		}
	}
	return nil
}

// ListSiblings returns the siblings recorded for an enrollment.
func (r *EnrollmentRepository) ListSiblings(ctx context.Context, enrollmentID string) ([]models.Sibling, error) {
	const query = `SELECT id, enrollment_id, name, birth_date, created_at FROM enrollment_siblings WHERE enrollment_id = $1 ORDER BY created_at, name`
	var siblings []models.Sibling
	if err := r.db.SelectContext(ctx, &siblings, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list siblings: %w", err)
	}
	return siblings, nil
}

// TransitionStatus moves an enrollment out of the given status outside a transaction.
func (r *EnrollmentRepository) TransitionStatus(ctx context.Context, id string, from, to models.EnrollmentStatus) (bool, error) {
	return transitionEnrollment(ctx, r.db, id, from, to)
}

// TransitionStatusTx moves an enrollment out of the given status. It reports false
// when the row was not in that status, leaving it untouched.
func (r *EnrollmentRepository) TransitionStatusTx(ctx context.Context, tx *sqlx.Tx, id string, from, to models.EnrollmentStatus) (bool, error) {
	return transitionEnrollment(ctx, tx, id, from, to)
}

func transitionEnrollment(ctx context.Context, exec sqlx.ExecerContext, id string, from, to models.EnrollmentStatus) (bool, error) {
	const query = `UPDATE enrollments SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	res, err := exec.ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update enrollment status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update enrollment status: %w", err)
	}
	return n == 1, nil
}
