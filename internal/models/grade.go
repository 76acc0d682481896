package models

import "time"

// Quarter is a grading period.
type Quarter string

const (
	QuarterOne   Quarter = "Q1"
	QuarterTwo   Quarter = "Q2"
	QuarterThree Quarter = "Q3"
	QuarterFour  Quarter = "Q4"
)

// Grade is one teacher's score for a student in a subject and quarter.
// (TeacherID, StudentID, SubjectID, Quarter) is unique.
type Grade struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	Quarter   Quarter   `db:"quarter" json:"quarter"`
	Score     float64   `db:"score" json:"score"`
	Remarks   *string   `db:"remarks" json:"remarks,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GradeDetail adds subject and teacher names for report views.
type GradeDetail struct {
	Grade
	SubjectName string `db:"subject_name" json:"subject_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}
