package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sics-enrollment-api/internal/models"
)

func TestFormatStudentNumber(t *testing.T) {
	assert.Equal(t, "SICS-2026-0001", FormatStudentNumber(2026, 1))
	assert.Equal(t, "SICS-2026-0123", FormatStudentNumber(2026, 123))
	assert.Equal(t, "SICS-2026-12345", FormatStudentNumber(2026, 12345))
}

func TestStudentRepositoryNextStudentNumberTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	tx := beginTx(t, db, mock)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO student_id_sequences (year, last_value)")).
		WithArgs(2026, "SICS-2026-%").
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(7))

	number, err := repo.NextStudentNumberTx(context.Background(), tx, 2026)
	require.NoError(t, err)
	assert.Equal(t, "SICS-2026-0007", number)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_number", "enrollment_id", "section_id", "first_name", "middle_name", "last_name", "birth_date",
		"gender", "address", "grade_level", "parent_name", "parent_contact", "parent_email", "status", "created_at", "updated_at", "section_name"}).
		AddRow("stu-1", "SICS-2026-0001", "enr-1", "sec-1", "Juan", "", "Cruz", now, "Male", "Manila", "Grade 1", "Maria", "0917", "m@example.com", "active", now, now, "Sampaguita")
	mock.ExpectQuery(regexp.QuoteMeta("FROM students s JOIN sections sec ON sec.id = s.section_id WHERE 1=1 AND s.section_id = $1 ORDER BY s.student_number LIMIT 20 OFFSET 0")).
		WithArgs("sec-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students s JOIN sections sec ON sec.id = s.section_id WHERE 1=1 AND s.section_id = $1")).
		WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{SectionID: "sec-1"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Sampaguita", students[0].SectionName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	tx := beginTx(t, db, mock)
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))

	student := models.StudentFromEnrollment(models.Enrollment{ID: "enr-1", FirstName: "Juan", LastName: "Cruz"})
	student.StudentNumber = "SICS-2026-0001"
	student.SectionID = "sec-1"
	require.NoError(t, repo.CreateTx(context.Background(), tx, &student))
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, models.StudentStatusActive, student.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
