package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sics-enrollment-api/internal/dto"
	"github.com/noah-isme/sics-enrollment-api/internal/models"
	"github.com/noah-isme/sics-enrollment-api/internal/repository"
	appErrors "github.com/noah-isme/sics-enrollment-api/pkg/errors"
	"github.com/noah-isme/sics-enrollment-api/pkg/validation"
)

type scheduleRepository interface {
	FindSlotConflict(ctx context.Context, dimension, day, timeSlotID, resourceID string) (*models.Schedule, error)
	FindSubjectDuplicate(ctx context.Context, sectionID, subjectID string) (*models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	Delete(ctx context.Context, id string) (bool, error)
	ListBySection(ctx context.Context, sectionID string) ([]models.ScheduleDetail, error)
}

type teacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// ScheduleService places classes into the weekly timetable without double booking.
type ScheduleService struct {
	repo      scheduleRepository
	teachers  teacherLookup
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, teachers teacherLookup, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, teachers: teachers, metrics: metrics, validator: validate, logger: logger}
}

// ListBySection returns the timetable of a section.
func (s *ScheduleService) ListBySection(ctx context.Context, sectionID string) ([]models.ScheduleDetail, error) {
	schedules, err := s.repo.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list section schedules")
	}
	if schedules == nil {
		schedules = []models.ScheduleDetail{}
	}
	return schedules, nil
}

// Propose creates the schedule when no room, teacher, section or subject conflict exists.
// The first conflict found is reported.
func (s *ScheduleService) Propose(ctx context.Context, req dto.ProposeScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid schedule payload")
	}

	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	schedule := models.Schedule{
		SectionID:  req.SectionID,
		SubjectID:  req.SubjectID,
		TeacherID:  req.TeacherID,
		Day:        req.Day,
		TimeSlotID: req.TimeSlotID,
		RoomID:     req.RoomID,
	}
	if err := s.ensureNoConflict(ctx, schedule, teacher); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &schedule); err != nil {
		if index, ok := repository.UniqueViolation(err); ok {
			if dim, known := repository.ScheduleIndexDimension(index); known {
				return nil, s.wrapConflict(dim, conflictMessage(dim, teacher), schedule)
			}
		}
		if _, ok := repository.ForeignKeyViolation(err); ok {
			return nil, appErrors.Validation("schedule", "section, subject, room or time slot does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}

	s.logger.Info("schedule created",
		zap.String("schedule_id", schedule.ID),
		zap.String("section_id", schedule.SectionID),
		zap.String("day", schedule.Day))
	return &schedule, nil
}

// Remove deletes a schedule entry.
func (s *ScheduleService) Remove(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	return nil
}

func (s *ScheduleService) ensureNoConflict(ctx context.Context, schedule models.Schedule, teacher *models.Teacher) error {
	checks := []struct {
		dimension string
		resource  string
	}{
		{models.ConflictRoom, schedule.RoomID},
		{models.ConflictTeacher, schedule.TeacherID},
		{models.ConflictSection, schedule.SectionID},
	}
	for _, check := range checks {
		existing, err := s.repo.FindSlotConflict(ctx, check.dimension, schedule.Day, schedule.TimeSlotID, check.resource)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule conflicts")
		}
		if existing != nil {
			return s.wrapConflict(check.dimension, conflictMessage(check.dimension, teacher), *existing)
		}
	}

	existing, err := s.repo.FindSubjectDuplicate(ctx, schedule.SectionID, schedule.SubjectID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule conflicts")
	}
	if existing != nil {
		return s.wrapConflict(models.ConflictSubject, conflictMessage(models.ConflictSubject, teacher), *existing)
	}
	return nil
}

func (s *ScheduleService) wrapConflict(dimension, message string, existing models.Schedule) error {
	s.metrics.RecordScheduleConflict(dimension)
	domainErr := &models.ScheduleConflictError{
		Type:    dimension,
		Message: message,
		Conflict: models.ScheduleConflict{
			ScheduleID: existing.ID,
			Dimension:  dimension,
			Day:        existing.Day,
			TimeSlotID: existing.TimeSlotID,
		},
	}
	out := appErrors.Wrap(domainErr, appErrors.ErrScheduleConflict.Code, appErrors.ErrScheduleConflict.Status, message)
	out.Fields = map[string]string{"type": dimension}
	if existing.ID != "" {
		out.Fields["schedule_id"] = existing.ID
	}
	return out
}

func conflictMessage(dimension string, teacher *models.Teacher) string {
	switch dimension {
	case models.ConflictRoom:
		return "Room occupied."
	case models.ConflictTeacher:
		return fmt.Sprintf("Teacher %s is already teaching at this time.", teacher.FullName())
	case models.ConflictSection:
		return "Section already has a class at this time."
	default:
		return "Subject already scheduled for this section."
	}
}
