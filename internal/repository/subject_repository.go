package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sics-enrollment-api/internal/models"
)

// SubjectRepository handles subject persistence.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects, optionally restricted to one grade level.
func (r *SubjectRepository) List(ctx context.Context, gradeLevel string) ([]models.Subject, error) {
	query := `SELECT id, subject_code, name, grade_level, created_at FROM subjects`
	var args []interface{}
	if gradeLevel != "" {
		query += " WHERE grade_level = $1"
		args = append(args, gradeLevel)
	}
	query += " ORDER BY grade_level, subject_code"
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID returns a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, subject_code, name, grade_level, created_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get subject: %w", err)
	}
	return &subject, nil
}

// Create persists a new subject. A duplicate (code, grade level) surfaces as a unique violation.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	subject.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO subjects (id, subject_code, name, grade_level, created_at) VALUES (:id, :subject_code, :name, :grade_level, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}
