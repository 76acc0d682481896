package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sics-enrollment-api/internal/dto"
	"github.com/noah-isme/sics-enrollment-api/internal/models"
	"github.com/noah-isme/sics-enrollment-api/pkg/config"
	appErrors "github.com/noah-isme/sics-enrollment-api/pkg/errors"
	"github.com/noah-isme/sics-enrollment-api/pkg/export"
	"github.com/noah-isme/sics-enrollment-api/pkg/jobs"
	"github.com/noah-isme/sics-enrollment-api/pkg/mail"
)

const defaultSchoolName = "SICS"

type loadSlipStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type loadSlipSectionReader interface {
	FindByID(ctx context.Context, id string) (*models.SectionDetail, error)
}

type timetableReader interface {
	ListBySection(ctx context.Context, sectionID string) ([]models.ScheduleDetail, error)
}

type ledgerReader interface {
	GetLedger(ctx context.Context, studentID string) (*models.Ledger, error)
}

type loadSlipRenderer interface {
	Render(slip export.LoadSlip) ([]byte, error)
}

// LoadSlipService renders admission load slips and emails them to the parent.
type LoadSlipService struct {
	students  loadSlipStudentReader
	sections  loadSlipSectionReader
	schedules timetableReader
	ledgers   ledgerReader
	renderer  loadSlipRenderer
	sender    mail.Sender
	queue     *jobs.Queue[string]
	cfg       config.LoadSlipConfig
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewLoadSlipService constructs the load slip service. A nil sender disables delivery.
func NewLoadSlipService(students loadSlipStudentReader, sections loadSlipSectionReader, schedules timetableReader, ledgers ledgerReader, sender mail.Sender, cfg config.LoadSlipConfig, metrics *MetricsService, logger *zap.Logger) *LoadSlipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.SchoolName) == "" {
		cfg.SchoolName = defaultSchoolName
	}
	return &LoadSlipService{
		students:  students,
		sections:  sections,
		schedules: schedules,
		ledgers:   ledgers,
		renderer:  export.NewLoadSlipRenderer(),
		sender:    sender,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// AttachQueue routes Resend requests through a background queue.
func (s *LoadSlipService) AttachQueue(queue *jobs.Queue[string]) {
	s.queue = queue
}

// HandleJob delivers the load slip of the student carried by the job payload.
func (s *LoadSlipService) HandleJob(ctx context.Context, job jobs.Job[string]) error {
	err := s.Send(ctx, job.Payload)
	if err != nil && !errors.Is(err, appErrors.ErrDependency) {
		// Missing students or disabled delivery will not improve on retry.
		s.logger.Warn("load slip job abandoned", zap.String("student_id", job.Payload), zap.Error(err))
		return nil
	}
	return err
}

// Render builds the load slip PDF for download.
func (s *LoadSlipService) Render(ctx context.Context, studentID string) (*dto.ExportedFile, error) {
	slip, _, err := s.build(ctx, studentID)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.Render(*slip)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render load slip")
	}
	return &dto.ExportedFile{
		Filename:    loadSlipFilename(slip.StudentNumber),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

// Send renders and emails the load slip once.
func (s *LoadSlipService) Send(ctx context.Context, studentID string) error {
	if !s.cfg.Enabled || s.sender == nil {
		s.metrics.RecordNotification(NotificationSkipped)
		return appErrors.Clone(appErrors.ErrConflict, "load slip delivery is disabled")
	}

	slip, student, err := s.build(ctx, studentID)
	if err != nil {
		return err
	}
	data, err := s.renderer.Render(*slip)
	if err != nil {
		s.metrics.RecordNotification(NotificationFailed)
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to render load slip")
	}

	msg := mail.Message{
		To:      netmail.Address{Name: student.ParentName, Address: student.ParentEmail},
		Subject: fmt.Sprintf("%s Load Slip - %s", s.cfg.SchoolName, slip.StudentNumber),
		TextContent: fmt.Sprintf("Dear %s,\n\n%s has been admitted to %s, section %s. Student number: %s.\nThe load slip is attached.\n\n%s Registrar",
			student.ParentName, slip.StudentName, slip.GradeLevel, slip.SectionName, slip.StudentNumber, s.cfg.SchoolName),
		Attachments: []mail.Attachment{{
			Filename:    loadSlipFilename(slip.StudentNumber),
			ContentType: "application/pdf",
			Content:     data,
		}},
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.metrics.RecordNotification(NotificationFailed)
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to email load slip")
	}

	s.metrics.RecordNotification(NotificationSent)
	s.logger.Info("load slip sent", zap.String("student_id", studentID), zap.String("student_number", slip.StudentNumber))
	return nil
}

// Notify attempts delivery once after admission. The returned note is appended to the
// caller's response; it is empty when delivery is disabled.
func (s *LoadSlipService) Notify(ctx context.Context, studentID string) (bool, string) {
	err := s.Send(ctx, studentID)
	switch {
	case err == nil:
		return true, "Load slip emailed to parent."
	case errors.Is(err, appErrors.ErrConflict):
		return false, ""
	default:
		s.logger.Warn("load slip notification failed", zap.String("student_id", studentID), zap.Error(err))
		return false, "Load slip could not be emailed: " + appErrors.FromError(err).Message + "."
	}
}

// Resend queues another delivery of the student's load slip.
func (s *LoadSlipService) Resend(ctx context.Context, studentID string) error {
	if !s.cfg.Enabled || s.sender == nil {
		return appErrors.Clone(appErrors.ErrConflict, "load slip delivery is disabled")
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if s.queue == nil {
		return s.Send(ctx, studentID)
	}
	err := s.queue.Enqueue(jobs.Job[string]{ID: studentID, Type: "load_slip", Payload: studentID})
	switch {
	case errors.Is(err, jobs.ErrDuplicate):
		// an earlier resend is still pending; repeated clicks collapse into it
		return nil
	case err != nil:
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to queue load slip")
	}
	s.metrics.RecordNotification(NotificationQueued)
	return nil
}

func (s *LoadSlipService) build(ctx context.Context, studentID string) (*export.LoadSlip, *models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	slip := &export.LoadSlip{
		SchoolName:    s.cfg.SchoolName,
		StudentNumber: student.StudentNumber,
		StudentName:   student.FullName(),
		GradeLevel:    student.GradeLevel,
		SectionName:   student.SectionName,
		IssuedAt:      s.now(),
	}

	section, err := s.sections.FindByID(ctx, student.SectionID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if section != nil && section.AdvisorName != nil {
		slip.Adviser = *section.AdvisorName
	}

	classes, err := s.schedules.ListBySection(ctx, student.SectionID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	for _, c := range classes {
		slip.Classes = append(slip.Classes, export.LoadSlipClass{
			Day:     c.Day,
			Time:    clockLabel(c.StartTime) + "-" + clockLabel(c.EndTime),
			Subject: c.SubjectName,
			Teacher: c.TeacherName,
			Room:    c.RoomName,
		})
	}

	ledger, err := s.ledgers.GetLedger(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	slip.Tuition = ledger.Tuition.StringFixed(2)
	slip.TotalPaid = ledger.TotalPaid.StringFixed(2)
	slip.Balance = ledger.Balance.StringFixed(2)

	return slip, student, nil
}

func loadSlipFilename(studentNumber string) string {
	return fmt.Sprintf("load-slip-%s.pdf", studentNumber)
}

// clockLabel trims "08:00:00" to "08:00".
func clockLabel(v string) string {
	if len(v) > 5 {
		return v[:5]
	}
	return v
}
