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

const gradeColumns = `id, teacher_id, student_id, subject_id, quarter, score, remarks, created_at, updated_at`

// GradeRepository persists quarterly grades.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs a GradeRepository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Upsert inserts a grade or overwrites the score of the existing
// (teacher, student, subject, quarter) entry. The stored id and created_at are written back.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	grade.CreatedAt = now
	grade.UpdatedAt = now

	const query = `INSERT INTO grades (id, teacher_id, student_id, subject_id, quarter, score, remarks, created_at, updated_at)
VALUES (:id, :teacher_id, :student_id, :subject_id, :quarter, :score, :remarks, :created_at, :updated_at)
ON CONFLICT (teacher_id, student_id, subject_id, quarter)
DO UPDATE SET score = EXCLUDED.score, remarks = EXCLUDED.remarks, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	rows, err := sqlx.NamedQueryContext(ctx, r.db, query, grade)
	if err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&grade.ID, &grade.CreatedAt); err != nil {
			return fmt.Errorf("scan upserted grade: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

// FindByID returns a grade by identifier.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, "SELECT "+gradeColumns+" FROM grades WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get grade: %w", err)
	}
	return &grade, nil
}

// UpdateScore overwrites score and remarks of an existing grade and returns the stored row.
func (r *GradeRepository) UpdateScore(ctx context.Context, id string, score float64, remarks *string) (*models.Grade, error) {
	query := "UPDATE grades SET score = $2, remarks = $3, updated_at = $4 WHERE id = $1 RETURNING " + gradeColumns
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id, score, remarks, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update grade: %w", err)
	}
	return &grade, nil
}

// ListByStudent returns every grade of a student with subject and teacher names.
func (r *GradeRepository) ListByStudent(ctx context.Context, studentID string) ([]models.GradeDetail, error) {
	const query = `SELECT g.id, g.teacher_id, g.student_id, g.subject_id, g.quarter, g.score, g.remarks, g.created_at, g.updated_at,
sub.name AS subject_name, t.first_name || ' ' || t.last_name AS teacher_name
FROM grades g
JOIN subjects sub ON sub.id = g.subject_id
JOIN teachers t ON t.id = g.teacher_id
WHERE g.student_id = $1
ORDER BY sub.name, g.quarter`
	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, studentID); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}
