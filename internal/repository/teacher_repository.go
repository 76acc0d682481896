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

const teacherColumns = `id, user_id, first_name, last_name, email, specialization, advisory_grade, created_at, updated_at`

// TeacherRepository handles persistence for teacher records.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns all teachers ordered by name.
func (r *TeacherRepository) List(ctx context.Context) ([]models.Teacher, error) {
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, "SELECT "+teacherColumns+" FROM teachers ORDER BY last_name, first_name"); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// FindByID returns a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	return r.findOne(ctx, "SELECT "+teacherColumns+" FROM teachers WHERE id = $1", id)
}

// FindByUserID resolves the teacher record behind a login.
func (r *TeacherRepository) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	return r.findOne(ctx, "SELECT "+teacherColumns+" FROM teachers WHERE user_id = $1", userID)
}

func (r *TeacherRepository) findOne(ctx context.Context, query string, arg string) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get teacher: %w", err)
	}
	return &teacher, nil
}

// CreateTx inserts a teacher inside the transaction that also creates its login.
func (r *TeacherRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	const query = `INSERT INTO teachers (id, user_id, first_name, last_name, email, specialization, advisory_grade, created_at, updated_at)
VALUES (:id, :user_id, :first_name, :last_name, :email, :specialization, :advisory_grade, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}
