package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sics-enrollment-api/internal/models"
)

func TestGradeRepositoryUpsertKeepsExistingID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	created := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO grades .* ON CONFLICT \\(teacher_id, student_id, subject_id, quarter\\)").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("grade-existing", created))

	grade := &models.Grade{TeacherID: "tch-1", StudentID: "stu-1", SubjectID: "sub-1", Quarter: models.QuarterOne, Score: 92}
	require.NoError(t, repo.Upsert(context.Background(), grade))
	assert.Equal(t, "grade-existing", grade.ID)
	assert.Equal(t, created, grade.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryUpdateScoreNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE grades SET score = $2, remarks = $3, updated_at = $4 WHERE id = $1 RETURNING")).
		WithArgs("missing", 80.0, nil, sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateScore(context.Background(), "missing", 80, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE g.student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_id", "student_id", "subject_id", "quarter", "score", "remarks", "created_at", "updated_at", "subject_name", "teacher_name"}).
			AddRow("g-1", "tch-1", "stu-1", "sub-1", "Q1", 90.5, nil, now, now, "Math", "Ana Reyes"))

	grades, err := repo.ListByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, "Math", grades[0].SubjectName)
	assert.Equal(t, 90.5, grades[0].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}
