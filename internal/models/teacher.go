package models

import "time"

// Teacher is a faculty member. Every teacher owns a users row for login.
type Teacher struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Email          string    `db:"email" json:"email"`
	Specialization string    `db:"specialization" json:"specialization,omitempty"`
	AdvisoryGrade  *string   `db:"advisory_grade" json:"advisory_grade,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (t Teacher) FullName() string {
	return joinNames(t.FirstName, t.LastName)
}
