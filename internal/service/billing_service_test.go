package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sics-enrollment-api/internal/dto"
	"github.com/noah-isme/sics-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/sics-enrollment-api/pkg/errors"
)

type billingStudentRepoMock struct {
	students map[string]*models.Student
	locked   []string
}

func (m *billingStudentRepoMock) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.StudentDetail{Student: *s, SectionName: "Sampaguita"}, nil
}

func (m *billingStudentRepoMock) FindByIDForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Student, error) {
	m.locked = append(m.locked, id)
	s, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *s
	return &clone, nil
}

type paymentRepoMock struct {
	payments []models.Payment
	settled  []string
	lists    int
}

func (m *paymentRepoMock) CreateTx(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) error {
	payment.ID = fmt.Sprintf("pay-%d", len(m.payments)+1)
	m.payments = append(m.payments, *payment)
	return nil
}

func (m *paymentRepoMock) SumByStudentTx(ctx context.Context, tx *sqlx.Tx, studentID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range m.payments {
		if p.StudentID != nil && *p.StudentID == studentID {
			total = total.Add(p.AmountPaid)
		}
	}
	return total, nil
}

func (m *paymentRepoMock) SettleLedgerTx(ctx context.Context, tx *sqlx.Tx, studentID string) (int64, error) {
	m.settled = append(m.settled, studentID)
	var n int64
	for i := range m.payments {
		if m.payments[i].StudentID != nil && *m.payments[i].StudentID == studentID {
			m.payments[i].PaymentStatus = models.PaymentStatusPaid
			n++
		}
	}
	return n, nil
}

func (m *paymentRepoMock) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	m.lists++
	var out []models.Payment
	for _, p := range m.payments {
		if p.StudentID != nil && *p.StudentID == studentID {
			out = append(out, p)
		}
	}
	return out, nil
}

type ledgerCacheMock struct {
	store       map[string]interface{}
	invalidated []string
}

func (m *ledgerCacheMock) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	v, ok := m.store[key]
	if !ok {
		return false, nil
	}
	*(dest.(*models.Ledger)) = *(v.(*models.Ledger))
	return true, nil
}

func (m *ledgerCacheMock) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.store[key] = value
	return nil
}

func (m *ledgerCacheMock) Invalidate(ctx context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	delete(m.store, pattern)
	return nil
}

func newBillingFixture(t *testing.T) (*BillingService, *paymentRepoMock, *ledgerCacheMock, *billingStudentRepoMock) {
	t.Helper()
	enrollmentID := "enr-1"
	students := &billingStudentRepoMock{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1", StudentNumber: "SICS-2026-0001", EnrollmentID: &enrollmentID, FirstName: "Juan", LastName: "Dela Cruz", GradeLevel: "Grade 1"},
	}}
	payments := &paymentRepoMock{}
	cache := &ledgerCacheMock{store: map[string]interface{}{}}
	tuition := NewTuitionTable(decimalRates(defaultTuitionRates), DefaultTuition)
	return NewBillingService(nil, students, payments, tuition, cache, time.Minute, nil, nil, nil), payments, cache, students
}

func TestBillingRecordPaymentPartialThenFull(t *testing.T) {
	svc, payments, cache, _ := newBillingFixture(t)

	txProvider, mock := newTxProviderMock(t)
	svc.tx = txProvider
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	first, err := svc.RecordPayment(context.Background(), "stu-1", dto.RecordPaymentRequest{
		Amount:        decimal.NewFromInt(10000),
		PaymentMethod: models.PaymentMethodCash,
		PaymentType:   "Tuition",
	})
	require.NoError(t, err)
	assert.False(t, first.FullyPaid)
	assert.True(t, first.Balance.Equal(decimal.NewFromInt(15000)))
	assert.Equal(t, models.PaymentStatusCompleted, first.Payment.PaymentStatus)
	assert.Contains(t, first.Payment.ReferenceNumber, "CASH-")
	require.NotNil(t, first.Payment.EnrollmentID)
	assert.Equal(t, "enr-1", *first.Payment.EnrollmentID)
	assert.Empty(t, payments.settled)

	second, err := svc.RecordPayment(context.Background(), "stu-1", dto.RecordPaymentRequest{
		Amount:          decimal.NewFromInt(15000),
		PaymentMethod:   models.PaymentMethodGCash,
		PaymentType:     "Tuition",
		ReferenceNumber: "GC-123",
	})
	require.NoError(t, err)
	assert.True(t, second.FullyPaid)
	assert.True(t, second.Balance.IsZero())
	assert.Equal(t, models.PaymentStatusPaid, second.Payment.PaymentStatus)
	assert.Equal(t, "GC-123", second.Payment.ReferenceNumber)
	assert.Equal(t, []string{"stu-1"}, payments.settled)
	for _, p := range payments.payments {
		assert.Equal(t, models.PaymentStatusPaid, p.PaymentStatus)
	}
	assert.Equal(t, []string{"ledger:stu-1", "ledger:stu-1"}, cache.invalidated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBillingRecordPaymentOverpaymentSettles(t *testing.T) {
	svc, payments, _, _ := newBillingFixture(t)
	txProvider, mock := newTxProviderMock(t)
	svc.tx = txProvider
	mock.ExpectBegin()
	mock.ExpectCommit()

	res, err := svc.RecordPayment(context.Background(), "stu-1", dto.RecordPaymentRequest{
		Amount:        decimal.NewFromInt(30000),
		PaymentMethod: models.PaymentMethodBankTransfer,
		PaymentType:   "Tuition",
	})
	require.NoError(t, err)
	assert.True(t, res.FullyPaid)
	assert.True(t, res.Balance.Equal(decimal.NewFromInt(-5000)))
	assert.Len(t, payments.settled, 1)
}

func TestBillingRecordPaymentRejectsNonPositiveAmount(t *testing.T) {
	svc, payments, _, students := newBillingFixture(t)

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		_, err := svc.RecordPayment(context.Background(), "stu-1", dto.RecordPaymentRequest{
			Amount:        amount,
			PaymentMethod: models.PaymentMethodCash,
			PaymentType:   "Tuition",
		})
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	}
	assert.Empty(t, payments.payments)
	assert.Empty(t, students.locked)
}

func TestBillingRecordPaymentRejectsUnknownMethod(t *testing.T) {
	svc, _, _, _ := newBillingFixture(t)
	_, err := svc.RecordPayment(context.Background(), "stu-1", dto.RecordPaymentRequest{
		Amount:        decimal.NewFromInt(100),
		PaymentMethod: "Cheque",
		PaymentType:   "Tuition",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBillingRecordPaymentUnknownStudentRollsBack(t *testing.T) {
	svc, payments, _, _ := newBillingFixture(t)
	txProvider, mock := newTxProviderMock(t)
	svc.tx = txProvider
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.RecordPayment(context.Background(), "missing", dto.RecordPaymentRequest{
		Amount:        decimal.NewFromInt(100),
		PaymentMethod: models.PaymentMethodCash,
		PaymentType:   "Tuition",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, payments.payments)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBillingGetLedgerUsesCache(t *testing.T) {
	svc, payments, cache, _ := newBillingFixture(t)
	sid := "stu-1"
	payments.payments = []models.Payment{
		{ID: "p1", StudentID: &sid, AmountPaid: decimal.NewFromInt(5000), PaymentMethod: models.PaymentMethodCash, PaymentStatus: models.PaymentStatusCompleted},
	}

	ledger, err := svc.GetLedger(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, "Juan Dela Cruz", ledger.StudentName)
	assert.True(t, ledger.Tuition.Equal(decimal.NewFromInt(25000)))
	assert.True(t, ledger.Balance.Equal(decimal.NewFromInt(20000)))
	assert.Equal(t, models.AccountStatusPartial, ledger.AccountStatus)
	assert.Contains(t, cache.store, "ledger:stu-1")

	_, err = svc.GetLedger(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, 1, payments.lists)
}

func TestBillingGetLedgerUnknownStudent(t *testing.T) {
	svc, _, _, _ := newBillingFixture(t)
	_, err := svc.GetLedger(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestBillingExportLedger(t *testing.T) {
	svc, payments, _, _ := newBillingFixture(t)
	sid := "stu-1"
	payments.payments = []models.Payment{
		{ID: "p1", StudentID: &sid, AmountPaid: decimal.NewFromInt(5000), PaymentMethod: models.PaymentMethodCash, ReferenceNumber: "CASH-1", PaymentStatus: models.PaymentStatusCompleted},
	}

	file, err := svc.ExportLedger(context.Background(), sid, dto.LedgerExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "ledger-SICS-2026-0001.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Contains(t, string(file.Data), "CASH-1")
	assert.Contains(t, string(file.Data), "Balance,20000.00")

	file, err = svc.ExportLedger(context.Background(), sid, dto.LedgerExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)

	_, err = svc.ExportLedger(context.Background(), sid, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

// decimalRates converts the integer default rate table to the decimal form NewTuitionTable takes.
func decimalRates(rates map[string]int64) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(rates))
	for level, amount := range rates {
		out[level] = decimal.NewFromInt(amount)
	}
	return out
}
