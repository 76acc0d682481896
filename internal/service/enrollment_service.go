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
	"go.uber.org/zap"

	"github.com/noah-isme/sics-enrollment-api/internal/dto"
	"github.com/noah-isme/sics-enrollment-api/internal/models"
	"github.com/noah-isme/sics-enrollment-api/internal/repository"
	appErrors "github.com/noah-isme/sics-enrollment-api/pkg/errors"
	"github.com/noah-isme/sics-enrollment-api/pkg/storage"
	"github.com/noah-isme/sics-enrollment-api/pkg/validation"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByIDForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Enrollment, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error
	CreateSiblingsTx(ctx context.Context, tx *sqlx.Tx, enrollmentID string, siblings []models.Sibling) error
	ListSiblings(ctx context.Context, enrollmentID string) ([]models.Sibling, error)
	TransitionStatus(ctx context.Context, id string, from, to models.EnrollmentStatus) (bool, error)
	TransitionStatusTx(ctx context.Context, tx *sqlx.Tx, id string, from, to models.EnrollmentStatus) (bool, error)
}

type seatAllocator interface {
	LockVacantTx(ctx context.Context, tx *sqlx.Tx, gradeLevel string) (*models.Section, error)
	IncrementCountTx(ctx context.Context, tx *sqlx.Tx, id string) error
}

type studentWriter interface {
	NextStudentNumberTx(ctx context.Context, tx *sqlx.Tx, year int) (string, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, student *models.Student) error
}

type enrollmentPaymentRepository interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) error
	AssignStudentTx(ctx context.Context, tx *sqlx.Tx, enrollmentID, studentID string) (int64, error)
	SettleLedgerTx(ctx context.Context, tx *sqlx.Tx, studentID string) (int64, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Payment, error)
}

type receiptStore interface {
	Store(ctx context.Context, data []byte) (*storage.StoredObject, error)
	Remove(ctx context.Context, key string) error
}

type admissionNotifier interface {
	Notify(ctx context.Context, studentID string) (bool, string)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// admission is the outcome of seating one applicant.
type admission struct {
	student *models.Student
	section *models.Section
}

// EnrollmentService runs applications from submission to admission.
type EnrollmentService struct {
	tx        txProvider
	repo      enrollmentRepository
	sections  seatAllocator
	students  studentWriter
	payments  enrollmentPaymentRepository
	receipts  receiptStore
	tuition   *TuitionTable
	notifier  admissionNotifier
	cache     cacheInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(tx txProvider, repo enrollmentRepository, sections seatAllocator, students studentWriter, payments enrollmentPaymentRepository, receipts receiptStore, tuition *TuitionTable, notifier admissionNotifier, cache cacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		tx:        tx,
		repo:      repo,
		sections:  sections,
		students:  students,
		payments:  payments,
		receipts:  receipts,
		tuition:   tuition,
		notifier:  notifier,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error) {
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns an application with its siblings and payments.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	enrollment, err := s.findEnrollment(ctx, id)
	if err != nil {
		return nil, err
	}
	siblings, err := s.repo.ListSiblings(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load siblings")
	}
	payments, err := s.payments.ListByEnrollment(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payments")
	}
	if siblings == nil {
		siblings = []models.Sibling{}
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return &models.EnrollmentDetail{Enrollment: *enrollment, Siblings: siblings, Payments: payments}, nil
}

// Submit stores a public application. An attached receipt is persisted first and
// its failure aborts the submission.
func (s *EnrollmentService) Submit(ctx context.Context, req dto.SubmitEnrollmentRequest, receipt *dto.ReceiptUpload) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid enrollment payload")
	}
	enrollment, siblings, err := buildEnrollment(req.ApplicantInput)
	if err != nil {
		return nil, err
	}
	hasReceipt := receipt != nil && len(receipt.Data) > 0
	if req.Payment != nil {
		if err := validateAmount(req.Payment.Amount); err != nil {
			return nil, err
		}
	} else if hasReceipt {
		return nil, appErrors.Validation("payment", "required when a receipt is attached")
	}

	var stored *storage.StoredObject
	if hasReceipt {
		if s.receipts == nil {
			return nil, appErrors.Clone(appErrors.ErrDependency, "receipt storage unavailable")
		}
		stored, err = s.receipts.Store(ctx, receipt.Data)
		if err != nil {
			return nil, receiptError(err)
		}
	}

	var payment *models.Payment
	if req.Payment != nil {
		payment = s.newPayment(*req.Payment, models.PaymentStatusPending)
		if stored != nil {
			payment.ReceiptURL = &stored.URL
		}
	}

	if err := s.createApplication(ctx, enrollment, siblings, payment); err != nil {
		if stored != nil {
			if rmErr := s.receipts.Remove(ctx, stored.Key); rmErr != nil {
				s.logger.Warn("failed to remove orphaned receipt", zap.String("key", stored.Key), zap.Error(rmErr))
			}
		}
		return nil, err
	}

	s.metrics.RecordEnrollmentTransition(models.EnrollmentStatusPending)
	s.logger.Info("enrollment submitted", zap.String("enrollment_id", enrollment.ID), zap.String("grade_level", enrollment.GradeLevel))

	detail := &models.EnrollmentDetail{Enrollment: *enrollment, Siblings: siblings, Payments: []models.Payment{}}
	if detail.Siblings == nil {
		detail.Siblings = []models.Sibling{}
	}
	if payment != nil {
		detail.Payments = append(detail.Payments, *payment)
	}
	return detail, nil
}

func (s *EnrollmentService) createApplication(ctx context.Context, enrollment *models.Enrollment, siblings []models.Sibling, payment *models.Payment) error {
	return inTx(ctx, s.tx, "enrollment", func(tx *sqlx.Tx) error {
		if err := s.repo.CreateTx(ctx, tx, enrollment); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
		}
		if err := s.repo.CreateSiblingsTx(ctx, tx, enrollment.ID, siblings); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save siblings")
		}
		if payment == nil {
			return nil
		}
		payment.EnrollmentID = &enrollment.ID
		if err := s.payments.CreateTx(ctx, tx, payment); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
		}
		return nil
	})
}

// Approve admits a pending applicant: seat, student number, student record and
// payment re-homing commit together; the load slip is attempted afterwards.
func (s *EnrollmentService) Approve(ctx context.Context, id string) (*dto.EnrollmentDecision, error) {
	current, err := s.findEnrollment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsPending() {
		return nil, notPendingError(current.Status)
	}

	var admitted *admission
	if err := inTx(ctx, s.tx, "approval", func(tx *sqlx.Tx) (err error) {
		admitted, err = s.approveTx(ctx, tx, id)
		return err
	}); err != nil {
		return nil, err
	}

	s.metrics.RecordEnrollmentTransition(models.EnrollmentStatusApproved)
	s.logger.Info("enrollment approved",
		zap.String("enrollment_id", id),
		zap.String("student_number", admitted.student.StudentNumber),
		zap.String("section_id", admitted.section.ID))

	return s.decide(ctx, id, admitted), nil
}

func (s *EnrollmentService) approveTx(ctx context.Context, tx *sqlx.Tx, id string) (*admission, error) {
	enrollment, err := s.repo.FindByIDForUpdateTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock enrollment")
	}
	if !enrollment.IsPending() {
		return nil, notPendingError(enrollment.Status)
	}

	admitted, err := s.seatTx(ctx, tx, enrollment)
	if err != nil {
		return nil, err
	}
	if _, err := s.payments.AssignStudentTx(ctx, tx, enrollment.ID, admitted.student.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link payments")
	}
	moved, err := s.repo.TransitionStatusTx(ctx, tx, enrollment.ID, models.EnrollmentStatusPending, models.EnrollmentStatusApproved)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
	}
	if !moved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment is no longer pending")
	}
	return admitted, nil
}

// seatTx allocates a seat in the first vacant section of the grade and creates the
// student. The section row stays locked until the transaction ends.
func (s *EnrollmentService) seatTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) (*admission, error) {
	section, err := s.sections.LockVacantTx(ctx, tx, enrollment.GradeLevel)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, noVacancyError(enrollment.GradeLevel)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate section")
	}
	if err := s.sections.IncrementCountTx(ctx, tx, section.ID); err != nil {
		if errors.Is(err, repository.ErrSectionFull) {
			return nil, noVacancyError(enrollment.GradeLevel)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate section")
	}
	section.StudentsCount++

	number, err := s.students.NextStudentNumberTx(ctx, tx, s.now().Year())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate student number")
	}

	student := models.StudentFromEnrollment(*enrollment)
	student.StudentNumber = number
	student.SectionID = section.ID
	if err := s.students.CreateTx(ctx, tx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return &admission{student: &student, section: section}, nil
}

// Reject declines a pending application. Nothing else changes.
func (s *EnrollmentService) Reject(ctx context.Context, id string) (*models.Enrollment, error) {
	moved, err := s.repo.TransitionStatus(ctx, id, models.EnrollmentStatusPending, models.EnrollmentStatusRejected)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject enrollment")
	}
	enrollment, err := s.findEnrollment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, notPendingError(enrollment.Status)
	}
	s.metrics.RecordEnrollmentTransition(models.EnrollmentStatusRejected)
	s.logger.Info("enrollment rejected", zap.String("enrollment_id", id))
	return enrollment, nil
}

// EnrollAndApprove admits a walk-in applicant and records the initial payment in
// the same transaction.
func (s *EnrollmentService) EnrollAndApprove(ctx context.Context, req dto.WalkInEnrollmentRequest) (*dto.EnrollmentDecision, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid walk-in enrollment payload")
	}
	if err := validateAmount(req.Payment.Amount); err != nil {
		return nil, err
	}
	enrollment, siblings, err := buildEnrollment(req.ApplicantInput)
	if err != nil {
		return nil, err
	}
	enrollment.Status = models.EnrollmentStatusApproved
	payment := s.newPayment(req.Payment, models.PaymentStatusCompleted)

	var admitted *admission
	if err := inTx(ctx, s.tx, "walk-in enrollment", func(tx *sqlx.Tx) (err error) {
		admitted, err = s.walkInTx(ctx, tx, enrollment, siblings, payment)
		return err
	}); err != nil {
		return nil, err
	}

	s.metrics.RecordEnrollmentTransition(models.EnrollmentStatusApproved)
	s.metrics.RecordPayment(payment.PaymentMethod)
	s.logger.Info("walk-in enrollment approved",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_number", admitted.student.StudentNumber))

	return s.decide(ctx, enrollment.ID, admitted), nil
}

func (s *EnrollmentService) walkInTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment, siblings []models.Sibling, payment *models.Payment) (*admission, error) {
	if err := s.repo.CreateTx(ctx, tx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	if err := s.repo.CreateSiblingsTx(ctx, tx, enrollment.ID, siblings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save siblings")
	}
	admitted, err := s.seatTx(ctx, tx, enrollment)
	if err != nil {
		return nil, err
	}

	payment.EnrollmentID = &enrollment.ID
	payment.StudentID = &admitted.student.ID
	if err := s.payments.CreateTx(ctx, tx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}
	if !s.tuition.Lookup(enrollment.GradeLevel).Sub(payment.AmountPaid).IsPositive() {
		if _, err := s.payments.SettleLedgerTx(ctx, tx, admitted.student.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to settle ledger")
		}
		payment.PaymentStatus = models.PaymentStatusPaid
	}
	return admitted, nil
}

// decide runs the post-commit steps. Nothing here can undo the admission.
func (s *EnrollmentService) decide(ctx context.Context, enrollmentID string, admitted *admission) *dto.EnrollmentDecision {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, ledgerCacheKey(admitted.student.ID)); err != nil {
			s.logger.Warn("failed to invalidate ledger cache", zap.String("student_id", admitted.student.ID), zap.Error(err))
		}
	}

	decision := &dto.EnrollmentDecision{
		EnrollmentID:  enrollmentID,
		Status:        models.EnrollmentStatusApproved,
		StudentID:     admitted.student.ID,
		StudentNumber: admitted.student.StudentNumber,
		SectionID:     admitted.section.ID,
		SectionName:   admitted.section.Name,
		Message: fmt.Sprintf("Enrollment approved. Student number %s assigned to section %s.",
			admitted.student.StudentNumber, admitted.section.Name),
	}
	if s.notifier == nil {
		return decision
	}
	sent, note := s.notifier.Notify(ctx, admitted.student.ID)
	decision.NotificationSent = sent
	if note != "" {
		decision.Message += " " + note
	}
	return decision
}

func (s *EnrollmentService) findEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

func (s *EnrollmentService) newPayment(in dto.PaymentInput, status models.PaymentStatus) *models.Payment {
	now := s.now().UTC()
	reference := strings.TrimSpace(in.ReferenceNumber)
	if reference == "" {
		reference = CashReference(now)
	}
	return &models.Payment{
		AmountPaid:      in.Amount,
		PaymentMethod:   in.PaymentMethod,
		PaymentType:     strings.TrimSpace(in.PaymentType),
		ReferenceNumber: reference,
		PaymentDate:     now,
		PaymentStatus:   status,
	}
}

func buildEnrollment(in dto.ApplicantInput) (*models.Enrollment, []models.Sibling, error) {
	birthDate, err := time.Parse(dto.DateLayout, in.BirthDate)
	if err != nil {
		return nil, nil, appErrors.Validation("birth_date", "must be a date in YYYY-MM-DD format")
	}
	enrollment := &models.Enrollment{
		FirstName:       strings.TrimSpace(in.FirstName),
		MiddleName:      strings.TrimSpace(in.MiddleName),
		LastName:        strings.TrimSpace(in.LastName),
		BirthDate:       birthDate,
		Gender:          in.Gender,
		Address:         strings.TrimSpace(in.Address),
		GradeLevel:      strings.TrimSpace(in.GradeLevel),
		PreviousSchool:  strings.TrimSpace(in.PreviousSchool),
		ParentName:      strings.TrimSpace(in.ParentName),
		ParentContact:   strings.TrimSpace(in.ParentContact),
		ParentEmail:     strings.ToLower(strings.TrimSpace(in.ParentEmail)),
		GuardianName:    strings.TrimSpace(in.GuardianName),
		GuardianContact: strings.TrimSpace(in.GuardianContact),
		Status:          models.EnrollmentStatusPending,
	}

	siblings := make([]models.Sibling, 0, len(in.Siblings))
	for i, sib := range in.Siblings {
		sibling := models.Sibling{Name: strings.TrimSpace(sib.Name)}
		if sib.BirthDate != "" {
			bd, err := time.Parse(dto.DateLayout, sib.BirthDate)
			if err != nil {
				return nil, nil, appErrors.Validation(fmt.Sprintf("siblings[%d].birth_date", i), "must be a date in YYYY-MM-DD format")
			}
			sibling.BirthDate = &bd
		}
		siblings = append(siblings, sibling)
	}
	return enrollment, siblings, nil
}

func receiptError(err error) error {
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		return appErrors.Validation("receipt", "must be a JPEG, PNG or PDF file")
	case errors.Is(err, storage.ErrTooLarge):
		return appErrors.Validation("receipt", "file is too large")
	case errors.Is(err, storage.ErrEmpty):
		return appErrors.Validation("receipt", "file is empty")
	}
	return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to store receipt")
}

func notPendingError(status models.EnrollmentStatus) error {
	return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("enrollment is already %s", status))
}

func noVacancyError(gradeLevel string) error {
	return appErrors.Clone(appErrors.ErrNoVacancy, fmt.Sprintf("no section with available seats for %s", gradeLevel))
}
