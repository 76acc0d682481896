package models

import "time"

// StudentStatus tracks whether a student is currently enrolled.
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "active"
	StudentStatusInactive StudentStatus = "inactive"
)

// Student is an admitted learner. StudentNumber has the form SICS-{year}-{NNNN}.
type Student struct {
	ID            string        `db:"id" json:"id"`
	StudentNumber string        `db:"student_number" json:"student_number"`
	EnrollmentID  *string       `db:"enrollment_id" json:"enrollment_id,omitempty"`
	SectionID     string        `db:"section_id" json:"section_id"`
	FirstName     string        `db:"first_name" json:"first_name"`
	MiddleName    string        `db:"middle_name" json:"middle_name,omitempty"`
	LastName      string        `db:"last_name" json:"last_name"`
	BirthDate     time.Time     `db:"birth_date" json:"birth_date"`
	Gender        string        `db:"gender" json:"gender"`
	Address       string        `db:"address" json:"address"`
	GradeLevel    string        `db:"grade_level" json:"grade_level"`
	ParentName    string        `db:"parent_name" json:"parent_name"`
	ParentContact string        `db:"parent_contact" json:"parent_contact"`
	ParentEmail   string        `db:"parent_email" json:"parent_email"`
	Status        StudentStatus `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// FullName joins the student's names.
func (s Student) FullName() string {
	return joinNames(s.FirstName, s.MiddleName, s.LastName)
}

// StudentFromEnrollment copies the biographical fields of an approved application.
func StudentFromEnrollment(e Enrollment) Student {
	id := e.ID
	return Student{
		EnrollmentID:  &id,
		FirstName:     e.FirstName,
		MiddleName:    e.MiddleName,
		LastName:      e.LastName,
		BirthDate:     e.BirthDate,
		Gender:        e.Gender,
		Address:       e.Address,
		GradeLevel:    e.GradeLevel,
		ParentName:    e.ParentName,
		ParentContact: e.ParentContact,
		ParentEmail:   e.ParentEmail,
		Status:        StudentStatusActive,
	}
}

// StudentDetail contains student information with section context.
type StudentDetail struct {
	Student
	SectionName string `db:"section_name" json:"section_name"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	SectionID  string
	GradeLevel string
	Page       int
	PageSize   int
}
