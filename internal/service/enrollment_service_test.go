package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sics-enrollment-api/internal/dto"
	"github.com/noah-isme/sics-enrollment-api/internal/models"
	"github.com/noah-isme/sics-enrollment-api/internal/repository"
	appErrors "github.com/noah-isme/sics-enrollment-api/pkg/errors"
	"github.com/noah-isme/sics-enrollment-api/pkg/storage"
)

type mockEnrollmentRepo struct {
	enrollments map[string]*models.Enrollment
	siblings    map[string][]models.Sibling
	createErr   error
	seq         int
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{enrollments: map[string]*models.Enrollment{}, siblings: map[string][]models.Sibling{}}
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	var out []models.Enrollment
	for _, e := range m.enrollments {
		if filter.Status == "" || e.Status == filter.Status {
			out = append(out, *e)
		}
	}
	return out, len(out), nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	e, ok := m.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *e
	return &clone, nil
}

func (m *mockEnrollmentRepo) FindByIDForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Enrollment, error) {
	return m.FindByID(ctx, id)
}

func (m *mockEnrollmentRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	enrollment.ID = fmt.Sprintf("enr-%d", m.seq)
	clone := *enrollment
	m.enrollments[enrollment.ID] = &clone
	return nil
}

func (m *mockEnrollmentRepo) CreateSiblingsTx(ctx context.Context, tx *sqlx.Tx, enrollmentID string, siblings []models.Sibling) error {
	m.siblings[enrollmentID] = append(m.siblings[enrollmentID], siblings...)
	return nil
}

func (m *mockEnrollmentRepo) ListSiblings(ctx context.Context, enrollmentID string) ([]models.Sibling, error) {
	return m.siblings[enrollmentID], nil
}

func (m *mockEnrollmentRepo) TransitionStatus(ctx context.Context, id string, from, to models.EnrollmentStatus) (bool, error) {
	e, ok := m.enrollments[id]
	if !ok || e.Status != from {
		return false, nil
	}
	e.Status = to
	return true, nil
}

func (m *mockEnrollmentRepo) TransitionStatusTx(ctx context.Context, tx *sqlx.Tx, id string, from, to models.EnrollmentStatus) (bool, error) {
	return m.TransitionStatus(ctx, id, from, to)
}

type mockSeatAllocator struct {
	sections []*models.Section
}

func (m *mockSeatAllocator) LockVacantTx(ctx context.Context, tx *sqlx.Tx, gradeLevel string) (*models.Section, error) {
	for _, s := range m.sections {
		if s.GradeLevel == gradeLevel && s.HasVacancy() {
			clone := *s
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSeatAllocator) IncrementCountTx(ctx context.Context, tx *sqlx.Tx, id string) error {
	for _, s := range m.sections {
		if s.ID == id {
			if !s.HasVacancy() {
				return repository.ErrSectionFull
			}
			s.StudentsCount++
			return nil
		}
	}
	return repository.ErrSectionFull
}

type mockStudentWriter struct {
	counters map[int]int
	students []models.Student
}

func (m *mockStudentWriter) NextStudentNumberTx(ctx context.Context, tx *sqlx.Tx, year int) (string, error) {
	if m.counters == nil {
		m.counters = map[int]int{}
	}
	m.counters[year]++
	return repository.FormatStudentNumber(year, m.counters[year]), nil
}

func (m *mockStudentWriter) CreateTx(ctx context.Context, tx *sqlx.Tx, student *models.Student) error {
	student.ID = fmt.Sprintf("stu-%d", len(m.students)+1)
	m.students = append(m.students, *student)
	return nil
}

type mockEnrollmentPayments struct {
	payments []*models.Payment
	settled  []string
}

func (m *mockEnrollmentPayments) CreateTx(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) error {
	payment.ID = fmt.Sprintf("pay-%d", len(m.payments)+1)
	clone := *payment
	m.payments = append(m.payments, &clone)
	return nil
}

func (m *mockEnrollmentPayments) AssignStudentTx(ctx context.Context, tx *sqlx.Tx, enrollmentID, studentID string) (int64, error) {
	var n int64
	for _, p := range m.payments {
		if p.EnrollmentID != nil && *p.EnrollmentID == enrollmentID {
			sid := studentID
			p.StudentID = &sid
			n++
		}
	}
	return n, nil
}

func (m *mockEnrollmentPayments) SettleLedgerTx(ctx context.Context, tx *sqlx.Tx, studentID string) (int64, error) {
	m.settled = append(m.settled, studentID)
	return 1, nil
}

func (m *mockEnrollmentPayments) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range m.payments {
		if p.EnrollmentID != nil && *p.EnrollmentID == enrollmentID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockReceiptStore struct {
	err     error
	stored  []string
	removed []string
}

func (m *mockReceiptStore) Store(ctx context.Context, data []byte) (*storage.StoredObject, error) {
	if m.err != nil {
		return nil, m.err
	}
	key := fmt.Sprintf("2026/06/receipt-%d.png", len(m.stored)+1)
	m.stored = append(m.stored, key)
	return &storage.StoredObject{ID: "obj", Key: key, ContentType: "image/png", Size: len(data), URL: "http://files/" + key}, nil
}

func (m *mockReceiptStore) Remove(ctx context.Context, key string) error {
	m.removed = append(m.removed, key)
	return nil
}

type mockNotifier struct {
	sent     bool
	note     string
	notified []string
}

func (m *mockNotifier) Notify(ctx context.Context, studentID string) (bool, string) {
	m.notified = append(m.notified, studentID)
	return m.sent, m.note
}

type enrollmentFixture struct {
	svc      *EnrollmentService
	repo     *mockEnrollmentRepo
	seats    *mockSeatAllocator
	students *mockStudentWriter
	payments *mockEnrollmentPayments
	receipts *mockReceiptStore
	notifier *mockNotifier
	cache    *ledgerCacheMock
}

func newEnrollmentFixture(t *testing.T) (*enrollmentFixture, sqlmock.Sqlmock) {
	t.Helper()
	f := &enrollmentFixture{
		repo: newMockEnrollmentRepo(),
		seats: &mockSeatAllocator{sections: []*models.Section{
			{ID: "sec-1", Name: "Sampaguita", GradeLevel: "Grade 1", Capacity: 2},
			{ID: "sec-7", Name: "Narra", GradeLevel: "Grade 7", Capacity: 40},
		}},
		students: &mockStudentWriter{},
		payments: &mockEnrollmentPayments{},
		receipts: &mockReceiptStore{},
		notifier: &mockNotifier{sent: true, note: "Load slip emailed to parent."},
		cache:    &ledgerCacheMock{store: map[string]interface{}{}},
	}
	txProvider, mock := newTxProviderMock(t)
	f.svc = NewEnrollmentService(txProvider, f.repo, f.seats, f.students, f.payments, f.receipts,
		NewTuitionTable(decimalRates(defaultTuitionRates), DefaultTuition), f.notifier, f.cache, nil, nil, nil)
	f.svc.now = func() time.Time { return time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return f, mock
}

func applicant(grade string) dto.ApplicantInput {
	return dto.ApplicantInput{
		FirstName:     "Juan",
		LastName:      "Dela Cruz",
		BirthDate:     "2019-02-14",
		Gender:        "Male",
		Address:       "Quezon City",
		GradeLevel:    grade,
		ParentName:    "Maria Dela Cruz",
		ParentContact: "09171234567",
		ParentEmail:   "Maria@Example.com",
		Siblings:      []dto.SiblingInput{{Name: "Ana Dela Cruz", BirthDate: "2016-05-01"}},
	}
}

func seedPending(f *enrollmentFixture, grade string) string {
	f.repo.seq++
	id := fmt.Sprintf("enr-%d", f.repo.seq)
	f.repo.enrollments[id] = &models.Enrollment{ID: id, FirstName: "Juan", LastName: "Dela Cruz", GradeLevel: grade, ParentEmail: "maria@example.com", Status: models.EnrollmentStatusPending}
	return id
}

func TestEnrollmentApproveAdmitsStudent(t *testing.T) {
	f, mock := newEnrollmentFixture(t)
	id := seedPending(f, "Grade 1")
	pre := "enr-1"
	f.payments.payments = []*models.Payment{{ID: "pay-0", EnrollmentID: &pre, AmountPaid: decimal.NewFromInt(5000), PaymentStatus: models.PaymentStatusPending}}

	mock.ExpectBegin()
	mock.ExpectCommit()

	decision, err := f.svc.Approve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusApproved, decision.Status)
	assert.Equal(t, "SICS-2026-0001", decision.StudentNumber)
	assert.Equal(t, "Sampaguita", decision.SectionName)
	assert.True(t, decision.NotificationSent)
	assert.Contains(t, decision.Message, "SICS-2026-0001")
	assert.Contains(t, decision.Message, "Load slip emailed")

	assert.Equal(t, models.EnrollmentStatusApproved, f.repo.enrollments[id].Status)
	assert.Equal(t, 1, f.seats.sections[0].StudentsCount)
	require.Len(t, f.students.students, 1)
	student := f.students.students[0]
	assert.Equal(t, "sec-1", student.SectionID)
	assert.Equal(t, models.StudentStatusActive, student.Status)
	require.NotNil(t, student.EnrollmentID)
	assert.Equal(t, id, *student.EnrollmentID)
	require.NotNil(t, f.payments.payments[0].StudentID)
	assert.Equal(t, student.ID, *f.payments.payments[0].StudentID)
	assert.Equal(t, []string{student.ID}, f.notifier.notified)
	assert.Equal(t, []string{"ledger:" + student.ID}, f.cache.invalidated)
}

func TestEnrollmentApproveMintsSequentialNumbers(t *testing.T) {
	f, mock := newEnrollmentFixture(t)
	first := seedPending(f, "Grade 1")
	second := seedPending(f, "Grade 1")

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	a, err := f.svc.Approve(context.Background(), first)
	require.NoError(t, err)
	b, err := f.svc.Approve(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, "SICS-2026-0001", a.StudentNumber)
	assert.Equal(t, "SICS-2026-0002", b.StudentNumber)
	assert.Equal(t, 2, f.seats.sections[0].StudentsCount)
}

func TestEnrollmentApproveWithoutVacancyKeepsPending(t *testing.T) {
	f, mock := newEnrollmentFixture(t)
	f.seats.sections[0].StudentsCount = f.seats.sections[0].Capacity
	id := seedPending(f, "Grade 1")

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := f.svc.Approve(context.Background(), id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNoVacancy))
	assert.Equal(t, models.EnrollmentStatusPending, f.repo.enrollments[id].Status)
	assert.Empty(t, f.students.students)
	assert.Empty(t, f.notifier.notified)
	assert.Equal(t, 40, f.seats.sections[1].Capacity)
}

func TestEnrollmentApproveRequiresPending(t *testing.T) {
	f, _ := newEnrollmentFixture(t)
	id := seedPending(f, "Grade 1")
	f.repo.enrollments[id].Status = models.EnrollmentStatusRejected

	_, err := f.svc.Approve(context.Background(), id)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "rejected")

	_, err = f.svc.Approve(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentApproveNotificationFailureIsNonFatal(t *testing.T) {
	f, mock := newEnrollmentFixture(t)
	f.notifier.sent = false
	f.notifier.note = "Load slip could not be emailed: failed to email load slip."
	id := seedPending(f, "Grade 1")

	mock.ExpectBegin()
	mock.ExpectCommit()

	decision, err := f.svc.Approve(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, decision.NotificationSent)
	assert.Contains(t, decision.Message, "could not be emailed")
	assert.Equal(t, models.EnrollmentStatusApproved, f.repo.enrollments[id].Status)
}

func TestEnrollmentReject(t *testing.T) {
	f, _ := newEnrollmentFixture(t)
	id := seedPending(f, "Grade 1")

	rejected, err := f.svc.Reject(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusRejected, rejected.Status)
	assert.Empty(t, f.students.students)

	_, err = f.svc.Reject(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Reject(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentSubmitWithReceipt(t *testing.T) {
	f, mock := newEnrollmentFixture(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	detail, err := f.svc.Submit(context.Background(), dto.SubmitEnrollmentRequest{
		ApplicantInput: applicant("Grade 1"),
		Payment: &dto.PaymentInput{
			Amount:        decimal.NewFromInt(5000),
			PaymentMethod: models.PaymentMethodGCash,
			PaymentType:   "Downpayment",
		},
	}, &dto.ReceiptUpload{Filename: "receipt.png", Data: []byte("png")})
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusPending, detail.Status)
	assert.Equal(t, "maria@example.com", detail.ParentEmail)
	require.Len(t, detail.Siblings, 1)
	require.NotNil(t, detail.Siblings[0].BirthDate)
	require.Len(t, detail.Payments, 1)
	payment := detail.Payments[0]
	assert.Nil(t, payment.StudentID)
	require.NotNil(t, payment.EnrollmentID)
	assert.Equal(t, detail.ID, *payment.EnrollmentID)
	assert.Equal(t, models.PaymentStatusPending, payment.PaymentStatus)
	require.NotNil(t, payment.ReceiptURL)
	assert.Contains(t, *payment.ReceiptURL, "receipt-1.png")
	assert.Empty(t, f.receipts.removed)
}

func TestEnrollmentSubmitReceiptStoreFailureAborts(t *testing.T) {
	f, _ := newEnrollmentFixture(t)
	f.receipts.err = errors.New("disk unavailable")

	_, err := f.svc.Submit(context.Background(), dto.SubmitEnrollmentRequest{
		ApplicantInput: applicant("Grade 1"),
		Payment:        &dto.PaymentInput{Amount: decimal.NewFromInt(100), PaymentMethod: models.PaymentMethodCash, PaymentType: "Downpayment"},
	}, &dto.ReceiptUpload{Data: []byte("png")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDependency.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.repo.enrollments)
}

func TestEnrollmentSubmitRejectsUnsupportedReceipt(t *testing.T) {
	f, _ := newEnrollmentFixture(t)
	f.receipts.err = fmt.Errorf("%w: text/plain", storage.ErrUnsupportedType)

	_, err := f.svc.Submit(context.Background(), dto.SubmitEnrollmentRequest{
		ApplicantInput: applicant("Grade 1"),
		Payment:        &dto.PaymentInput{Amount: decimal.NewFromInt(100), PaymentMethod: models.PaymentMethodCash, PaymentType: "Downpayment"},
	}, &dto.ReceiptUpload{Data: []byte("hello")})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "receipt")
}

func TestEnrollmentSubmitRemovesReceiptWhenTransactionFails(t *testing.T) {
	f, mock := newEnrollmentFixture(t)
	f.repo.createErr = errors.New("insert failed")
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := f.svc.Submit(context.Background(), dto.SubmitEnrollmentRequest{
		ApplicantInput: applicant("Grade 1"),
		Payment:        &dto.PaymentInput{Amount: decimal.NewFromInt(100), PaymentMethod: models.PaymentMethodCash, PaymentType: "Downpayment"},
	}, &dto.ReceiptUpload{Data: []byte("png")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Equal(t, f.receipts.stored, f.receipts.removed)
}

func TestEnrollmentSubmitValidation(t *testing.T) {
	f, _ := newEnrollmentFixture(t)
	input := applicant("Grade 1")
	input.ParentEmail = "not-an-email"
	input.FirstName = ""

	_, err := f.svc.Submit(context.Background(), dto.SubmitEnrollmentRequest{ApplicantInput: input}, nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.NotEmpty(t, appErr.Fields)

	_, err = f.svc.Submit(context.Background(), dto.SubmitEnrollmentRequest{ApplicantInput: applicant("Grade 1")}, &dto.ReceiptUpload{Data: []byte("png")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.receipts.stored)
}

func TestEnrollmentWalkInSettlesWhenTuitionCovered(t *testing.T) {
	f, mock := newEnrollmentFixture(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	decision, err := f.svc.EnrollAndApprove(context.Background(), dto.WalkInEnrollmentRequest{
		ApplicantInput: applicant("Grade 1"),
		Payment:        dto.PaymentInput{Amount: decimal.NewFromInt(25000), PaymentMethod: models.PaymentMethodCash, PaymentType: "Full Payment"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SICS-2026-0001", decision.StudentNumber)
	assert.Equal(t, models.EnrollmentStatusApproved, f.repo.enrollments[decision.EnrollmentID].Status)
	require.Len(t, f.payments.payments, 1)
	payment := f.payments.payments[0]
	require.NotNil(t, payment.StudentID)
	assert.Equal(t, decision.StudentID, *payment.StudentID)
	assert.Equal(t, "CASH-1780304400000", payment.ReferenceNumber)
	assert.Equal(t, []string{decision.StudentID}, f.payments.settled)
}

func TestEnrollmentWalkInPartialPaymentStaysOpen(t *testing.T) {
	f, mock := newEnrollmentFixture(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := f.svc.EnrollAndApprove(context.Background(), dto.WalkInEnrollmentRequest{
		ApplicantInput: applicant("Grade 7"),
		Payment:        dto.PaymentInput{Amount: decimal.NewFromInt(25000), PaymentMethod: models.PaymentMethodBankTransfer, PaymentType: "Downpayment", ReferenceNumber: "BT-99"},
	})
	require.NoError(t, err)
	assert.Empty(t, f.payments.settled)
	assert.Equal(t, models.PaymentStatusCompleted, f.payments.payments[0].PaymentStatus)
}

func TestEnrollmentWalkInWithoutVacancyRollsBack(t *testing.T) {
	f, mock := newEnrollmentFixture(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := f.svc.EnrollAndApprove(context.Background(), dto.WalkInEnrollmentRequest{
		ApplicantInput: applicant("Grade 3"),
		Payment:        dto.PaymentInput{Amount: decimal.NewFromInt(1000), PaymentMethod: models.PaymentMethodCash, PaymentType: "Downpayment"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNoVacancy))
	assert.Empty(t, f.students.students)
	assert.Empty(t, f.payments.payments)
}

func TestEnrollmentGetAndList(t *testing.T) {
	f, _ := newEnrollmentFixture(t)
	id := seedPending(f, "Grade 1")

	detail, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.NotNil(t, detail.Siblings)
	assert.NotNil(t, detail.Payments)

	items, pagination, err := f.svc.List(context.Background(), models.EnrollmentFilter{Status: models.EnrollmentStatusPending})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)

	_, err = f.svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
