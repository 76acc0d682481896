package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how the money was received.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodGCash        PaymentMethod = "GCash"
	PaymentMethodBankTransfer PaymentMethod = "Bank Transfer"
)

// Valid reports whether m is an accepted method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodGCash, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// PaymentStatus is the settlement state of a payment row.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusPaid      PaymentStatus = "paid"
)

// Payment is a recorded tuition payment. StudentID stays nil until the enrollment is approved.
type Payment struct {
	ID              string          `db:"id" json:"id"`
	EnrollmentID    *string         `db:"enrollment_id" json:"enrollment_id,omitempty"`
	StudentID       *string         `db:"student_id" json:"student_id,omitempty"`
	AmountPaid      decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	PaymentMethod   PaymentMethod   `db:"payment_method" json:"payment_method"`
	PaymentType     string          `db:"payment_type" json:"payment_type"`
	ReferenceNumber string          `db:"reference_number" json:"reference_number"`
	ReceiptURL      *string         `db:"receipt_url" json:"receipt_url,omitempty"`
	PaymentDate     time.Time       `db:"payment_date" json:"payment_date"`
	PaymentStatus   PaymentStatus   `db:"payment_status" json:"payment_status"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// AccountStatus summarises a ledger.
type AccountStatus string

const (
	AccountStatusPaid    AccountStatus = "paid"
	AccountStatusPartial AccountStatus = "partial"
	AccountStatusUnpaid  AccountStatus = "unpaid"
)

// Ledger is a student's tuition account.
type Ledger struct {
	StudentID     string          `json:"student_id"`
	StudentNumber string          `json:"student_number"`
	StudentName   string          `json:"student_name"`
	GradeLevel    string          `json:"grade_level"`
	Tuition       decimal.Decimal `json:"tuition"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	Balance       decimal.Decimal `json:"balance"`
	AccountStatus AccountStatus   `json:"account_status"`
	Payments      []Payment       `json:"payments"`
}
