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

const scheduleColumns = `id, section_id, subject_id, teacher_id, day, time_slot_id, room_id, created_at`

// slotColumns maps a conflict dimension to the column that must be free per (day, time slot).
var slotColumns = map[string]string{
	models.ConflictRoom:    "room_id",
	models.ConflictTeacher: "teacher_id",
	models.ConflictSection: "section_id",
}

// scheduleIndexes maps the unique indexes on schedules to the dimension they protect.
var scheduleIndexes = map[string]string{
	"uq_schedules_room_slot":       models.ConflictRoom,
	"uq_schedules_teacher_slot":    models.ConflictTeacher,
	"uq_schedules_section_slot":    models.ConflictSection,
	"uq_schedules_section_subject": models.ConflictSubject,
}

// ScheduleIndexDimension returns the conflict dimension guarded by a unique index name.
func ScheduleIndexDimension(index string) (string, bool) {
	dim, ok := scheduleIndexes[index]
	return dim, ok
}

// ScheduleRepository provides persistence for class schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// FindSlotConflict returns the schedule already holding the resource at (day, time slot).
// dimension is one of ROOM, TEACHER or SECTION. A nil schedule means the slot is free.
func (r *ScheduleRepository) FindSlotConflict(ctx context.Context, dimension, day, timeSlotID, resourceID string) (*models.Schedule, error) {
	column, ok := slotColumns[dimension]
	if !ok {
		return nil, fmt.Errorf("unknown conflict dimension %q", dimension)
	}
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE day = $1 AND time_slot_id = $2 AND %s = $3 LIMIT 1", scheduleColumns, column)
	return r.findOne(ctx, query, day, timeSlotID, resourceID)
}

// FindSubjectDuplicate returns the schedule that already teaches the subject to the section.
func (r *ScheduleRepository) FindSubjectDuplicate(ctx context.Context, sectionID, subjectID string) (*models.Schedule, error) {
	query := "SELECT " + scheduleColumns + " FROM schedules WHERE section_id = $1 AND subject_id = $2 LIMIT 1"
	return r.findOne(ctx, query, sectionID, subjectID)
}

func (r *ScheduleRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find schedule conflict: %w", err)
	}
	return &schedule, nil
}

// Create inserts a schedule. The driver error stays in the chain so unique index
// violations can be detected with UniqueViolation.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	schedule.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO schedules (id, section_id, subject_id, teacher_id, day, time_slot_id, room_id, created_at)
VALUES (:id, :section_id, :subject_id, :teacher_id, :day, :time_slot_id, :room_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule and reports whether it existed.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete schedule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete schedule: %w", err)
	}
	return n > 0, nil
}

// ListBySection returns a section's timetable ordered by weekday and start time.
func (r *ScheduleRepository) ListBySection(ctx context.Context, sectionID string) ([]models.ScheduleDetail, error) {
	const query = `SELECT sc.id, sc.section_id, sc.subject_id, sc.teacher_id, sc.day, sc.time_slot_id, sc.room_id, sc.created_at,
sub.name AS subject_name, t.first_name || ' ' || t.last_name AS teacher_name, rm.name AS room_name,
ts.label AS slot_label, ts.start_time, ts.end_time
FROM schedules sc
JOIN subjects sub ON sub.id = sc.subject_id
JOIN teachers t ON t.id = sc.teacher_id
JOIN rooms rm ON rm.id = sc.room_id
JOIN time_slots ts ON ts.id = sc.time_slot_id
WHERE sc.section_id = $1
ORDER BY CASE sc.day WHEN 'Monday' THEN 1 WHEN 'Tuesday' THEN 2 WHEN 'Wednesday' THEN 3 WHEN 'Thursday' THEN 4 WHEN 'Friday' THEN 5 ELSE 6 END, ts.start_time`
	var schedules []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query, sectionID); err != nil {
		return nil, fmt.Errorf("list schedules by section: %w", err)
	}
	return schedules, nil
}
