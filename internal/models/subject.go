package models

import "time"

// Subject is a course offered to one grade level. (SubjectCode, GradeLevel) is unique.
type Subject struct {
	ID          string    `db:"id" json:"id"`
	SubjectCode string    `db:"subject_code" json:"subject_code"`
	Name        string    `db:"name" json:"name"`
	GradeLevel  string    `db:"grade_level" json:"grade_level"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
