package dto

import "github.com/noah-isme/sics-enrollment-api/internal/models"

// SubmitGradeRequest is a teacher's grade entry. Quarter defaults to Q1.
type SubmitGradeRequest struct {
	StudentID string         `json:"student_id" validate:"required"`
	SubjectID string         `json:"subject_id" validate:"required"`
	Quarter   models.Quarter `json:"quarter,omitempty" validate:"omitempty,oneof=Q1 Q2 Q3 Q4"`
	Score     *float64       `json:"score" validate:"required,gte=0,lte=100"`
	Remarks   *string        `json:"remarks,omitempty" validate:"omitempty,max=255"`
}

// UpdateGradeRequest is the administrative correction of an existing grade.
type UpdateGradeRequest struct {
	Score   *float64 `json:"score" validate:"required,gte=0,lte=100"`
	Remarks *string  `json:"remarks,omitempty" validate:"omitempty,max=255"`
}
