package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sics-enrollment-api/internal/dto"
	"github.com/noah-isme/sics-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/sics-enrollment-api/pkg/errors"
	"github.com/noah-isme/sics-enrollment-api/pkg/export"
	"github.com/noah-isme/sics-enrollment-api/pkg/validation"
)

type billingStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByIDForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Student, error)
}

type billingPaymentRepository interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) error
	SumByStudentTx(ctx context.Context, tx *sqlx.Tx, studentID string) (decimal.Decimal, error)
	SettleLedgerTx(ctx context.Context, tx *sqlx.Tx, studentID string) (int64, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error)
}

type ledgerCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

func ledgerCacheKey(studentID string) string {
	return "ledger:" + studentID
}

// CashReference synthesises a reference number for payments recorded without one.
func CashReference(at time.Time) string {
	return fmt.Sprintf("CASH-%d", at.UnixMilli())
}

// BillingService records tuition payments and reports student ledgers.
type BillingService struct {
	tx        txProvider
	students  billingStudentRepository
	payments  billingPaymentRepository
	tuition   *TuitionTable
	cache     ledgerCache
	cacheTTL  time.Duration
	csv       datasetRenderer
	pdf       datasetRenderer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBillingService constructs the billing service.
func NewBillingService(tx txProvider, students billingStudentRepository, payments billingPaymentRepository, tuition *TuitionTable, cache ledgerCache, cacheTTL time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *BillingService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingService{
		tx:        tx,
		students:  students,
		payments:  payments,
		tuition:   tuition,
		cache:     cache,
		cacheTTL:  cacheTTL,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordPayment stores a completed payment for the student and settles the ledger
// when the balance reaches zero. All writes share one transaction.
func (s *BillingService) RecordPayment(ctx context.Context, studentID string, req dto.RecordPaymentRequest) (*dto.RecordPaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid payment payload")
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	now := s.now().UTC()
	reference := strings.TrimSpace(req.ReferenceNumber)
	if reference == "" {
		reference = CashReference(now)
	}

	var (
		student   *models.Student
		payment   *models.Payment
		balance   decimal.Decimal
		fullyPaid bool
	)
	err := inTx(ctx, s.tx, "payment", func(tx *sqlx.Tx) error {
		var err error
		student, err = s.students.FindByIDForUpdateTx(ctx, tx, studentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		previous, err := s.payments.SumByStudentTx(ctx, tx, student.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
		}

		payment = &models.Payment{
			EnrollmentID:    student.EnrollmentID,
			StudentID:       &student.ID,
			AmountPaid:      req.Amount,
			PaymentMethod:   req.PaymentMethod,
			PaymentType:     strings.TrimSpace(req.PaymentType),
			ReferenceNumber: reference,
			PaymentDate:     now,
			PaymentStatus:   models.PaymentStatusCompleted,
		}
		if err := s.payments.CreateTx(ctx, tx, payment); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
		}

		balance = s.tuition.Lookup(student.GradeLevel).Sub(previous.Add(req.Amount))
		fullyPaid = !balance.IsPositive()
		if !fullyPaid {
			return nil
		}
		if _, err := s.payments.SettleLedgerTx(ctx, tx, student.ID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to settle ledger")
		}
		payment.PaymentStatus = models.PaymentStatusPaid
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateLedger(ctx, student.ID)
	s.metrics.RecordPayment(payment.PaymentMethod)
	s.logger.Info("payment recorded",
		zap.String("student_id", student.ID),
		zap.String("payment_id", payment.ID),
		zap.String("amount", payment.AmountPaid.StringFixed(2)),
		zap.Bool("fully_paid", fullyPaid))

	return &dto.RecordPaymentResult{Payment: *payment, Balance: balance, FullyPaid: fullyPaid}, nil
}

// GetLedger returns tuition, payments and balance for the student.
func (s *BillingService) GetLedger(ctx context.Context, studentID string) (*models.Ledger, error) {
	return readThrough(ctx, s.cache, ledgerCacheKey(studentID), s.cacheTTL, func(ctx context.Context) (*models.Ledger, error) {
		student, err := s.students.FindByID(ctx, studentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		payments, err := s.payments.ListByStudent(ctx, studentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payments")
		}
		return s.buildLedger(student.Student, payments), nil
	})
}

func (s *BillingService) buildLedger(student models.Student, payments []models.Payment) *models.Ledger {
	if payments == nil {
		payments = []models.Payment{}
	}
	totalPaid := decimal.Zero
	for _, p := range payments {
		totalPaid = totalPaid.Add(p.AmountPaid)
	}
	tuition := s.tuition.Lookup(student.GradeLevel)
	balance := tuition.Sub(totalPaid)
	return &models.Ledger{
		StudentID:     student.ID,
		StudentNumber: student.StudentNumber,
		StudentName:   student.FullName(),
		GradeLevel:    student.GradeLevel,
		Tuition:       tuition,
		TotalPaid:     totalPaid,
		Balance:       balance,
		AccountStatus: ComputeAccountStatus(totalPaid, balance),
		Payments:      payments,
	}
}

// ExportLedger renders the ledger as a CSV or PDF statement of account.
func (s *BillingService) ExportLedger(ctx context.Context, studentID string, format dto.LedgerExportFormat) (*dto.ExportedFile, error) {
	var renderer datasetRenderer
	var contentType string
	switch format {
	case dto.LedgerExportCSV, "":
		format, renderer, contentType = dto.LedgerExportCSV, s.csv, "text/csv"
	case dto.LedgerExportPDF:
		renderer, contentType = s.pdf, "application/pdf"
	default:
		return nil, appErrors.Validation("format", "must be one of: csv pdf")
	}

	ledger, err := s.GetLedger(ctx, studentID)
	if err != nil {
		return nil, err
	}

	data, err := renderer.Render(ledgerDataset(ledger))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render ledger")
	}
	return &dto.ExportedFile{
		Filename:    fmt.Sprintf("ledger-%s.%s", ledger.StudentNumber, format),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func ledgerDataset(ledger *models.Ledger) export.Dataset {
	rows := make([]map[string]string, 0, len(ledger.Payments))
	for _, p := range ledger.Payments {
		rows = append(rows, map[string]string{
			"Date":      p.PaymentDate.Format("2006-01-02"),
			"Reference": p.ReferenceNumber,
			"Method":    string(p.PaymentMethod),
			"Type":      p.PaymentType,
			"Amount":    p.AmountPaid.StringFixed(2),
			"Status":    string(p.PaymentStatus),
		})
	}
	return export.Dataset{
		Title: "Statement of Account",
		Summary: []export.Field{
			{Label: "Student No.", Value: ledger.StudentNumber},
			{Label: "Name", Value: ledger.StudentName},
			{Label: "Grade Level", Value: ledger.GradeLevel},
			{Label: "Tuition", Value: ledger.Tuition.StringFixed(2)},
			{Label: "Total Paid", Value: ledger.TotalPaid.StringFixed(2)},
			{Label: "Balance", Value: ledger.Balance.StringFixed(2)},
			{Label: "Status", Value: string(ledger.AccountStatus)},
		},
		Headers: []string{"Date", "Reference", "Method", "Type", "Amount", "Status"},
		Rows:    rows,
	}
}

func (s *BillingService) invalidateLedger(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, ledgerCacheKey(studentID)); err != nil {
		s.logger.Warn("failed to invalidate ledger cache", zap.String("student_id", studentID), zap.Error(err))
	}
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return appErrors.Validation("amount", "must be greater than 0")
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return appErrors.Validation("amount", "must have at most 2 decimal places")
	}
	return nil
}
