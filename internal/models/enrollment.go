package models

import (
	"strings"
	"time"
)

// EnrollmentStatus represents the lifecycle of an enrollment application.
type EnrollmentStatus string

// Possible enrollment statuses. An application leaves pending exactly once.
const (
	EnrollmentStatusPending  EnrollmentStatus = "pending"
	EnrollmentStatusApproved EnrollmentStatus = "approved"
	EnrollmentStatusRejected EnrollmentStatus = "rejected"
)

// Enrollment is an application for admission submitted by or for a prospective student.
type Enrollment struct {
	ID              string           `db:"id" json:"id"`
	FirstName       string           `db:"first_name" json:"first_name"`
	MiddleName      string           `db:"middle_name" json:"middle_name,omitempty"`
	LastName        string           `db:"last_name" json:"last_name"`
	BirthDate       time.Time        `db:"birth_date" json:"birth_date"`
	Gender          string           `db:"gender" json:"gender"`
	Address         string           `db:"address" json:"address"`
	GradeLevel      string           `db:"grade_level" json:"grade_level"`
	PreviousSchool  string           `db:"previous_school" json:"previous_school,omitempty"`
	ParentName      string           `db:"parent_name" json:"parent_name"`
	ParentContact   string           `db:"parent_contact" json:"parent_contact"`
	ParentEmail     string           `db:"parent_email" json:"parent_email"`
	GuardianName    string           `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianContact string           `db:"guardian_contact" json:"guardian_contact,omitempty"`
	Status          EnrollmentStatus `db:"status" json:"status"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// FullName joins the applicant's names.
func (e Enrollment) FullName() string {
	return joinNames(e.FirstName, e.MiddleName, e.LastName)
}

// IsPending reports whether the application can still be decided.
func (e Enrollment) IsPending() bool {
	return e.Status == EnrollmentStatusPending
}

// Sibling is a brother or sister declared on an application.
type Sibling struct {
	ID           string     `db:"id" json:"id"`
	EnrollmentID string     `db:"enrollment_id" json:"enrollment_id"`
	Name         string     `db:"name" json:"name"`
	BirthDate    *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// EnrollmentDetail adds siblings and pre-approval payments to an application.
type EnrollmentDetail struct {
	Enrollment
	Siblings []Sibling `json:"siblings"`
	Payments []Payment `json:"payments"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	Status     EnrollmentStatus
	GradeLevel string
	Search     string
	Page       int
	PageSize   int
}

func joinNames(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
