package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sics-enrollment-api/internal/models"
)

func TestSubjectRepositoryListByGrade(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, subject_code, name, grade_level, created_at FROM subjects WHERE grade_level = $1 ORDER BY grade_level, subject_code")).
		WithArgs("Grade 1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject_code", "name", "grade_level", "created_at"}).AddRow("sub-1", "MATH1", "Math", "Grade 1", time.Now()))

	subjects, err := repo.List(context.Background(), "Grade 1")
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "MATH1", subjects[0].SubjectCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectExec("INSERT INTO subjects").WillReturnError(&pq.Error{Code: "23505", Constraint: "subjects_code_grade_unique"})

	err := repo.Create(context.Background(), &models.Subject{SubjectCode: "MATH1", Name: "Math", GradeLevel: "Grade 1"})
	require.Error(t, err)
	constraint, ok := UniqueViolation(err)
	assert.True(t, ok)
	assert.Equal(t, "subjects_code_grade_unique", constraint)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomAndTimeSlotRepositories(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	rooms := NewRoomRepository(db)
	slots := NewTimeSlotRepository(db)

	mock.ExpectExec("INSERT INTO rooms").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM time_slots ORDER BY start_time")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "label", "start_time", "end_time", "created_at"}).AddRow("slot-1", "First Period", "08:00", "09:00", time.Now()))

	room := &models.Room{Name: "101", Capacity: 40}
	require.NoError(t, rooms.Create(context.Background(), room))
	assert.NotEmpty(t, room.ID)

	list, err := slots.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "08:00", list[0].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}
