package models

import "time"

// Section is a class group of one grade level with a seat capacity.
type Section struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	GradeLevel    string    `db:"grade_level" json:"grade_level"`
	Capacity      int       `db:"capacity" json:"capacity"`
	StudentsCount int       `db:"students_count" json:"students_count"`
	AdvisorID     *string   `db:"advisor_id" json:"advisor_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// HasVacancy reports whether another student fits.
func (s Section) HasVacancy() bool {
	return s.StudentsCount < s.Capacity
}

// SectionDetail adds the adviser's display name.
type SectionDetail struct {
	Section
	AdvisorName *string `db:"advisor_name" json:"advisor_name,omitempty"`
}
