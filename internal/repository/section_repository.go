package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sics-enrollment-api/internal/models"
)

// ErrSectionFull is returned when a seat increment would exceed capacity.
var ErrSectionFull = errors.New("section is full")

const sectionColumns = `id, name, grade_level, capacity, students_count, advisor_id, created_at, updated_at`

// SectionRepository persists sections and their seat counters.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs a SectionRepository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// Create inserts a section with an empty roster.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now
	section.StudentsCount = 0

	const query = `INSERT INTO sections (id, name, grade_level, capacity, students_count, advisor_id, created_at, updated_at)
VALUES (:id, :name, :grade_level, :capacity, :students_count, :advisor_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// List returns sections with adviser names, optionally for one grade level.
func (r *SectionRepository) List(ctx context.Context, gradeLevel string) ([]models.SectionDetail, error) {
	query := `SELECT s.id, s.name, s.grade_level, s.capacity, s.students_count, s.advisor_id, s.created_at, s.updated_at,
t.first_name || ' ' || t.last_name AS advisor_name
FROM sections s LEFT JOIN teachers t ON t.id = s.advisor_id`
	var args []interface{}
	if gradeLevel != "" {
		query += " WHERE s.grade_level = $1"
		args = append(args, gradeLevel)
	}
	query += " ORDER BY s.grade_level, s.name"

	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// FindByID returns a section with its adviser name.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	const query = `SELECT s.id, s.name, s.grade_level, s.capacity, s.students_count, s.advisor_id, s.created_at, s.updated_at,
t.first_name || ' ' || t.last_name AS advisor_name
FROM sections s LEFT JOIN teachers t ON t.id = s.advisor_id WHERE s.id = $1`
	var section models.SectionDetail
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get section: %w", err)
	}
	return &section, nil
}

// LockVacantTx picks the first section of the grade with a free seat and locks it.
// It returns sql.ErrNoRows when every section of the grade is full.
func (r *SectionRepository) LockVacantTx(ctx context.Context, tx *sqlx.Tx, gradeLevel string) (*models.Section, error) {
	query := "SELECT " + sectionColumns + " FROM sections WHERE grade_level = $1 AND students_count < capacity ORDER BY name LIMIT 1 FOR UPDATE"
	var section models.Section
	if err := tx.GetContext(ctx, &section, query, gradeLevel); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock vacant section: %w", err)
	}
	return &section, nil
}

// IncrementCountTx takes one seat. The capacity guard makes it a no-op on a full
// section, which is reported as ErrSectionFull.
func (r *SectionRepository) IncrementCountTx(ctx context.Context, tx *sqlx.Tx, id string) error {
	const query = `UPDATE sections SET students_count = students_count + 1, updated_at = $2 WHERE id = $1 AND students_count < capacity`
	res, err := tx.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("increment section count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment section count: %w", err)
	}
	if n != 1 {
		return ErrSectionFull
	}
	return nil
}

// AssignAdvisorTx makes the teacher adviser of the first unadvised section of the grade.
// It returns nil when no such section exists.
func (r *SectionRepository) AssignAdvisorTx(ctx context.Context, tx *sqlx.Tx, gradeLevel, teacherID string) (*models.Section, error) {
	query := "SELECT " + sectionColumns + " FROM sections WHERE grade_level = $1 AND advisor_id IS NULL ORDER BY name LIMIT 1 FOR UPDATE"
	var section models.Section
	if err := tx.GetContext(ctx, &section, query, gradeLevel); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find unadvised section: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE sections SET advisor_id = $2, updated_at = $3 WHERE id = $1`, section.ID, teacherID, now); err != nil {
		return nil, fmt.Errorf("assign advisor: %w", err)
	}
	section.AdvisorID = &teacherID
	section.UpdatedAt = now
	return &section, nil
}
