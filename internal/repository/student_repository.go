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

const studentColumns = `id, student_number, enrollment_id, section_id, first_name, middle_name, last_name, birth_date, gender, address,
grade_level, parent_name, parent_contact, parent_email, status, created_at, updated_at`

// StudentNumberPrefix starts every student number.
const StudentNumberPrefix = "SICS"

// FormatStudentNumber renders the identifier issued for the n-th admission of a year.
func FormatStudentNumber(year, n int) string {
	return fmt.Sprintf("%s-%d-%04d", StudentNumberPrefix, year, n)
}

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters together with their section name.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := "FROM students s JOIN sections sec ON sec.id = s.section_id"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("s.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.GradeLevel != "" {
		conditions = append(conditions, fmt.Sprintf("s.grade_level = $%d", len(args)+1))
		args = append(args, filter.GradeLevel)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.first_name || ' ' || s.last_name) LIKE $%d OR LOWER(s.student_number) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id, s.student_number, s.enrollment_id, s.section_id, s.first_name, s.middle_name, s.last_name, s.birth_date,
s.gender, s.address, s.grade_level, s.parent_name, s.parent_contact, s.parent_email, s.status, s.created_at, s.updated_at,
sec.name AS section_name %s ORDER BY s.student_number LIMIT %d OFFSET %d`, base, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student detail by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.student_number, s.enrollment_id, s.section_id, s.first_name, s.middle_name, s.last_name, s.birth_date,
s.gender, s.address, s.grade_level, s.parent_name, s.parent_contact, s.parent_email, s.status, s.created_at, s.updated_at,
sec.name AS section_name
FROM students s JOIN sections sec ON sec.id = s.section_id WHERE s.id = $1`
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &detail, nil
}

// Exists reports whether a student with the ID is on file.
func (r *StudentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM students WHERE id = $1 LIMIT 1", id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student: %w", err)
	}
	return true, nil
}

// FindByIDForUpdateTx locks the student row so concurrent ledger writes serialise.
func (r *StudentRepository) FindByIDForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE id = $1 FOR UPDATE"
	var student models.Student
	if err := tx.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock student: %w", err)
	}
	return &student, nil
}

// CreateTx inserts a new student record inside a transaction.
func (r *StudentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	if student.Status == "" {
		student.Status = models.StudentStatusActive
	}
	const query = `INSERT INTO students (id, student_number, enrollment_id, section_id, first_name, middle_name, last_name, birth_date, gender, address,
grade_level, parent_name, parent_contact, parent_email, status, created_at, updated_at)
VALUES (:id, :student_number, :enrollment_id, :section_id, :first_name, :middle_name, :last_name, :birth_date, :gender, :address,
:grade_level, :parent_name, :parent_contact, :parent_email, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// NextStudentNumberTx issues the next student number for the year. The per-year row is
// seeded from the numbers already issued that year and then incremented atomically, so
// two transactions can never receive the same value.
func (r *StudentRepository) NextStudentNumberTx(ctx context.Context, tx *sqlx.Tx, year int) (string, error) {
	const query = `INSERT INTO student_id_sequences (year, last_value)
VALUES ($1, (SELECT COUNT(*) FROM students WHERE student_number LIKE $2) + 1)
ON CONFLICT (year) DO UPDATE SET last_value = student_id_sequences.last_value + 1
RETURNING last_value`
	pattern := fmt.Sprintf("%s-%d-%%", StudentNumberPrefix, year)
	var next int
	if err := tx.GetContext(ctx, &next, query, year, pattern); err != nil {
		return "", fmt.Errorf("next student number: %w", err)
	}
	return FormatStudentNumber(year, next), nil
}
