package dto

import "github.com/noah-isme/sics-enrollment-api/internal/models"

// CreateTeacherRequest creates a teacher and their login.
type CreateTeacherRequest struct {
	FirstName      string  `json:"first_name" validate:"required,max=100"`
	LastName       string  `json:"last_name" validate:"required,max=100"`
	Email          string  `json:"email" validate:"required,email"`
	Specialization string  `json:"specialization,omitempty" validate:"max=100"`
	AdvisoryGrade  *string `json:"advisory_grade,omitempty" validate:"omitempty,max=50"`
}

// CreateTeacherResult returns the generated password exactly once.
type CreateTeacherResult struct {
	Teacher           models.Teacher  `json:"teacher"`
	TemporaryPassword string          `json:"temporary_password"`
	AdvisorySection   *models.Section `json:"advisory_section,omitempty"`
}

// CreateSectionRequest creates a section.
type CreateSectionRequest struct {
	Name       string  `json:"name" validate:"required,max=100"`
	GradeLevel string  `json:"grade_level" validate:"required,max=50"`
	Capacity   int     `json:"capacity" validate:"required,min=1,max=200"`
	AdvisorID  *string `json:"advisor_id,omitempty"`
}

// CreateSubjectRequest creates a subject.
type CreateSubjectRequest struct {
	SubjectCode string `json:"subject_code" validate:"required,max=30"`
	Name        string `json:"name" validate:"required,max=150"`
	GradeLevel  string `json:"grade_level" validate:"required,max=50"`
}

// CreateRoomRequest creates a room.
type CreateRoomRequest struct {
	Name     string `json:"name" validate:"required,max=50"`
	Capacity int    `json:"capacity" validate:"omitempty,min=1"`
}

// CreateTimeSlotRequest creates a time slot. Times use 24h HH:MM.
type CreateTimeSlotRequest struct {
	Label     string `json:"label" validate:"required,max=50"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
}
