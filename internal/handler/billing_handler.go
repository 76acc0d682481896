package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sics-enrollment-api/internal/dto"
	"github.com/noah-isme/sics-enrollment-api/internal/models"
	"github.com/noah-isme/sics-enrollment-api/pkg/response"
)

type billingService interface {
	RecordPayment(ctx context.Context, studentID string, req dto.RecordPaymentRequest) (*dto.RecordPaymentResult, error)
	GetLedger(ctx context.Context, studentID string) (*models.Ledger, error)
	ExportLedger(ctx context.Context, studentID string, format dto.LedgerExportFormat) (*dto.ExportedFile, error)
}

// BillingHandler exposes payment and ledger endpoints.
type BillingHandler struct {
	billing billingService
}

// NewBillingHandler constructs BillingHandler.
func NewBillingHandler(billing billingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// RecordPayment godoc
// @Summary Record a payment for a student
// @Tags Billing
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.RecordPaymentRequest true "Payment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/payments [post]
func (h *BillingHandler) RecordPayment(c *gin.Context) {
	var req dto.RecordPaymentRequest
	if !bindJSON(c, &req, "invalid payment payload") {
		return
	}
	result, err := h.billing.RecordPayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Ledger godoc
// @Summary Student statement of account
// @Tags Billing
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/ledger [get]
func (h *BillingHandler) Ledger(c *gin.Context) {
	ledger, err := h.billing.GetLedger(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ledger, nil)
}

// ExportLedger godoc
// @Summary Download the statement of account
// @Tags Billing
// @Produce text/csv,application/pdf
// @Param id path string true "Student ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /students/{id}/ledger/export [get]
func (h *BillingHandler) ExportLedger(c *gin.Context) {
	format := dto.LedgerExportFormat(strings.ToLower(c.DefaultQuery("format", string(dto.LedgerExportCSV))))
	file, err := h.billing.ExportLedger(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
