package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStudentFromEnrollment(t *testing.T) {
	e := Enrollment{
		ID:          "enr-1",
		FirstName:   "Juan",
		MiddleName:  " ",
		LastName:    "Dela Cruz",
		BirthDate:   time.Date(2019, 3, 2, 0, 0, 0, 0, time.UTC),
		GradeLevel:  "Grade 1",
		ParentEmail: "parent@example.com",
		Status:      EnrollmentStatusPending,
	}
	s := StudentFromEnrollment(e)
	assert.Equal(t, "enr-1", *s.EnrollmentID)
	assert.Equal(t, StudentStatusActive, s.Status)
	assert.Equal(t, "Juan Dela Cruz", s.FullName())
	assert.Equal(t, e.BirthDate, s.BirthDate)
	assert.True(t, e.IsPending())
}

func TestPaymentMethodValid(t *testing.T) {
	assert.True(t, PaymentMethodBankTransfer.Valid())
	assert.True(t, PaymentMethod("GCash").Valid())
	assert.False(t, PaymentMethod("Card").Valid())
	assert.False(t, PaymentMethod("cash").Valid())
}

func TestSectionHasVacancy(t *testing.T) {
	assert.True(t, Section{Capacity: 2, StudentsCount: 1}.HasVacancy())
	assert.False(t, Section{Capacity: 2, StudentsCount: 2}.HasVacancy())
}

func TestNormalizePage(t *testing.T) {
	p, s := NormalizePage(0, 500)
	assert.Equal(t, 1, p)
	assert.Equal(t, 20, s)
	assert.Equal(t, &Pagination{Page: 3, PageSize: 50, TotalCount: 7}, NewPagination(3, 50, 7))
}
