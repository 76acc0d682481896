package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sics-enrollment-api/internal/dto"
	"github.com/noah-isme/sics-enrollment-api/internal/models"
	"github.com/noah-isme/sics-enrollment-api/internal/repository"
	appErrors "github.com/noah-isme/sics-enrollment-api/pkg/errors"
	"github.com/noah-isme/sics-enrollment-api/pkg/validation"
)

type sectionCatalog interface {
	Create(ctx context.Context, section *models.Section) error
	List(ctx context.Context, gradeLevel string) ([]models.SectionDetail, error)
	FindByID(ctx context.Context, id string) (*models.SectionDetail, error)
}

type subjectCatalog interface {
	Create(ctx context.Context, subject *models.Subject) error
	List(ctx context.Context, gradeLevel string) ([]models.Subject, error)
}

type roomCatalog interface {
	Create(ctx context.Context, room *models.Room) error
	List(ctx context.Context) ([]models.Room, error)
}

type timeSlotCatalog interface {
	Create(ctx context.Context, slot *models.TimeSlot) error
	List(ctx context.Context) ([]models.TimeSlot, error)
}

// CatalogService manages the reference data schedules and admissions depend on.
type CatalogService struct {
	sections  sectionCatalog
	subjects  subjectCatalog
	rooms     roomCatalog
	slots     timeSlotCatalog
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(sections sectionCatalog, subjects subjectCatalog, rooms roomCatalog, slots timeSlotCatalog, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{sections: sections, subjects: subjects, rooms: rooms, slots: slots, validator: validate, logger: logger}
}

// CreateSection adds a section with no students.
func (s *CatalogService) CreateSection(ctx context.Context, req dto.CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid section payload")
	}
	section := &models.Section{
		Name:       strings.TrimSpace(req.Name),
		GradeLevel: strings.TrimSpace(req.GradeLevel),
		Capacity:   req.Capacity,
		AdvisorID:  req.AdvisorID,
	}
	if err := s.sections.Create(ctx, section); err != nil {
		if _, ok := repository.UniqueViolation(err); ok {
			return nil, appErrors.Clone(appErrors.ErrConflict, "section already exists for this grade level")
		}
		if _, ok := repository.ForeignKeyViolation(err); ok {
			return nil, appErrors.Validation("advisor_id", "teacher does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	return section, nil
}

// ListSections returns sections, optionally for one grade level.
func (s *CatalogService) ListSections(ctx context.Context, gradeLevel string) ([]models.SectionDetail, error) {
	sections, err := s.sections.List(ctx, strings.TrimSpace(gradeLevel))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	if sections == nil {
		sections = []models.SectionDetail{}
	}
	return sections, nil
}

// GetSection returns one section.
func (s *CatalogService) GetSection(ctx context.Context, id string) (*models.SectionDetail, error) {
	section, err := s.sections.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

// CreateSubject adds a subject. A code may repeat only across grade levels.
func (s *CatalogService) CreateSubject(ctx context.Context, req dto.CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid subject payload")
	}
	subject := &models.Subject{
		SubjectCode: strings.ToUpper(strings.TrimSpace(req.SubjectCode)),
		Name:        strings.TrimSpace(req.Name),
		GradeLevel:  strings.TrimSpace(req.GradeLevel),
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		if _, ok := repository.UniqueViolation(err); ok {
			return nil, appErrors.Clone(appErrors.ErrConflict, "subject code already exists for this grade level")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// ListSubjects returns subjects, optionally for one grade level.
func (s *CatalogService) ListSubjects(ctx context.Context, gradeLevel string) ([]models.Subject, error) {
	subjects, err := s.subjects.List(ctx, strings.TrimSpace(gradeLevel))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	if subjects == nil {
		subjects = []models.Subject{}
	}
	return subjects, nil
}

// CreateRoom adds a room.
func (s *CatalogService) CreateRoom(ctx context.Context, req dto.CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid room payload")
	}
	room := &models.Room{Name: strings.TrimSpace(req.Name), Capacity: req.Capacity}
	if err := s.rooms.Create(ctx, room); err != nil {
		if _, ok := repository.UniqueViolation(err); ok {
			return nil, appErrors.Clone(appErrors.ErrConflict, "room already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	return room, nil
}

// ListRooms returns all rooms.
func (s *CatalogService) ListRooms(ctx context.Context) ([]models.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	return rooms, nil
}

// CreateTimeSlot adds a period; it must end after it starts.
func (s *CatalogService) CreateTimeSlot(ctx context.Context, req dto.CreateTimeSlotRequest) (*models.TimeSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid time slot payload")
	}
	start, _ := time.Parse("15:04", req.StartTime)
	end, _ := time.Parse("15:04", req.EndTime)
	if !end.After(start) {
		return nil, appErrors.Validation("end_time", "must be after start_time")
	}
	slot := &models.TimeSlot{Label: strings.TrimSpace(req.Label), StartTime: req.StartTime, EndTime: req.EndTime}
	if err := s.slots.Create(ctx, slot); err != nil {
		if _, ok := repository.UniqueViolation(err); ok {
			return nil, appErrors.Clone(appErrors.ErrConflict, "time slot already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create time slot")
	}
	return slot, nil
}

// ListTimeSlots returns periods ordered by start time.
func (s *CatalogService) ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	slots, err := s.slots.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time slots")
	}
	if slots == nil {
		slots = []models.TimeSlot{}
	}
	return slots, nil
}
