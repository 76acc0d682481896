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
)

var sectionRowColumns = []string{"id", "name", "grade_level", "capacity", "students_count", "advisor_id", "created_at", "updated_at"}

func TestSectionRepositoryLockVacantTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	tx := beginTx(t, db, mock)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM sections WHERE grade_level = $1 AND students_count < capacity ORDER BY name LIMIT 1 FOR UPDATE")).
		WithArgs("Grade 1").
		WillReturnRows(sqlmock.NewRows(sectionRowColumns).AddRow("sec-1", "Sampaguita", "Grade 1", 30, 29, nil, now, now))

	section, err := repo.LockVacantTx(context.Background(), tx, "Grade 1")
	require.NoError(t, err)
	assert.Equal(t, "sec-1", section.ID)
	assert.True(t, section.HasVacancy())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryLockVacantTxNone(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	tx := beginTx(t, db, mock)
	mock.ExpectQuery("FROM sections WHERE grade_level").WithArgs("Grade 9").WillReturnError(sql.ErrNoRows)

	_, err := repo.LockVacantTx(context.Background(), tx, "Grade 9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryIncrementCountGuard(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	tx := beginTx(t, db, mock)
	query := regexp.QuoteMeta("UPDATE sections SET students_count = students_count + 1, updated_at = $2 WHERE id = $1 AND students_count < capacity")
	mock.ExpectExec(query).WithArgs("sec-1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs("sec-1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.IncrementCountTx(context.Background(), tx, "sec-1"))
	assert.ErrorIs(t, repo.IncrementCountTx(context.Background(), tx, "sec-1"), ErrSectionFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryAssignAdvisorTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	tx := beginTx(t, db, mock)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM sections WHERE grade_level = $1 AND advisor_id IS NULL ORDER BY name LIMIT 1 FOR UPDATE")).
		WithArgs("Grade 2").
		WillReturnRows(sqlmock.NewRows(sectionRowColumns).AddRow("sec-2", "Rosal", "Grade 2", 30, 0, nil, now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET advisor_id = $2")).
		WithArgs("sec-2", "tch-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	section, err := repo.AssignAdvisorTx(context.Background(), tx, "Grade 2", "tch-1")
	require.NoError(t, err)
	require.NotNil(t, section.AdvisorID)
	assert.Equal(t, "tch-1", *section.AdvisorID)

	mock.ExpectQuery("advisor_id IS NULL").WithArgs("Grade 3").WillReturnError(sql.ErrNoRows)
	section, err = repo.AssignAdvisorTx(context.Background(), tx, "Grade 3", "tch-1")
	require.NoError(t, err)
	assert.Nil(t, section)
	assert.NoError(t, mock.ExpectationsWereMet())
}
