package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sics-enrollment-api/internal/models"
)

// DateLayout is the accepted format for dates in request bodies.
const DateLayout = "2006-01-02"

// SiblingInput declares a sibling on the application form.
type SiblingInput struct {
	Name      string `json:"name" validate:"required,max=150"`
	BirthDate string `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// ApplicantInput is the applicant and parent/guardian portion shared by public and walk-in forms.
type ApplicantInput struct {
	FirstName       string         `json:"first_name" validate:"required,max=100"`
	MiddleName      string         `json:"middle_name,omitempty" validate:"max=100"`
	LastName        string         `json:"last_name" validate:"required,max=100"`
	BirthDate       string         `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Gender          string         `json:"gender" validate:"required,oneof=Male Female"`
	Address         string         `json:"address" validate:"required,max=255"`
	GradeLevel      string         `json:"grade_level" validate:"required,max=50"`
	PreviousSchool  string         `json:"previous_school,omitempty" validate:"max=200"`
	ParentName      string         `json:"parent_name" validate:"required,max=150"`
	ParentContact   string         `json:"parent_contact" validate:"required,max=50"`
	ParentEmail     string         `json:"parent_email" validate:"required,email"`
	GuardianName    string         `json:"guardian_name,omitempty" validate:"max=150"`
	GuardianContact string         `json:"guardian_contact,omitempty" validate:"max=50"`
	Siblings        []SiblingInput `json:"siblings,omitempty" validate:"omitempty,max=20,dive"`
}

// PaymentInput is a payment captured together with an application.
type PaymentInput struct {
	Amount          decimal.Decimal      `json:"amount"`
	PaymentMethod   models.PaymentMethod `json:"payment_method" validate:"required,oneof=Cash GCash 'Bank Transfer'"`
	PaymentType     string               `json:"payment_type" validate:"required,max=50"`
	ReferenceNumber string               `json:"reference_number,omitempty" validate:"max=100"`
}

// SubmitEnrollmentRequest is the public application form.
type SubmitEnrollmentRequest struct {
	ApplicantInput
	Payment *PaymentInput `json:"payment,omitempty"`
}

// ReceiptUpload is the raw receipt attached to a public application.
type ReceiptUpload struct {
	Filename string
	Data     []byte
}

// WalkInEnrollmentRequest is the staff-assisted form; the initial payment is mandatory.
type WalkInEnrollmentRequest struct {
	ApplicantInput
	Payment PaymentInput `json:"payment"`
}

// EnrollmentDecision is returned by approve and walk-in.
type EnrollmentDecision struct {
	EnrollmentID     string                  `json:"enrollment_id"`
	Status           models.EnrollmentStatus `json:"status"`
	StudentID        string                  `json:"student_id,omitempty"`
	StudentNumber    string                  `json:"student_number,omitempty"`
	SectionID        string                  `json:"section_id,omitempty"`
	SectionName      string                  `json:"section_name,omitempty"`
	NotificationSent bool                    `json:"notification_sent"`
	Message          string                  `json:"message"`
}
