package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sics-enrollment-api/internal/models"
)

// RecordPaymentRequest records a payment against a student's ledger.
type RecordPaymentRequest struct {
	Amount          decimal.Decimal      `json:"amount"`
	PaymentMethod   models.PaymentMethod `json:"payment_method" validate:"required,oneof=Cash GCash 'Bank Transfer'"`
	PaymentType     string               `json:"payment_type" validate:"required,max=50"`
	ReferenceNumber string               `json:"reference_number,omitempty" validate:"max=100"`
}

// RecordPaymentResult reports the stored payment and the ledger position after it.
type RecordPaymentResult struct {
	Payment   models.Payment  `json:"payment"`
	Balance   decimal.Decimal `json:"balance"`
	FullyPaid bool            `json:"fully_paid"`
}

// LedgerExportFormat selects the statement format.
type LedgerExportFormat string

const (
	LedgerExportCSV LedgerExportFormat = "csv"
	LedgerExportPDF LedgerExportFormat = "pdf"
)

// ExportedFile is a generated download.
type ExportedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
