package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sics-enrollment-api/internal/dto"
	"github.com/noah-isme/sics-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/sics-enrollment-api/pkg/errors"
	"github.com/noah-isme/sics-enrollment-api/pkg/validation"
)

type gradeRepo interface {
	Upsert(ctx context.Context, grade *models.Grade) error
	UpdateScore(ctx context.Context, id string, score float64, remarks *string) (*models.Grade, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.GradeDetail, error)
}

type gradeTeacherReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
}

type studentExistence interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// GradeService records quarterly grades. One row exists per teacher, student, subject and quarter.
type GradeService struct {
	repo      gradeRepo
	teachers  gradeTeacherReader
	students  studentExistence
	subjects  subjectReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs the grade service.
func NewGradeService(repo gradeRepo, teachers gradeTeacherReader, students studentExistence, subjects subjectReader, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, teachers: teachers, students: students, subjects: subjects, validator: validate, logger: logger}
}

// Submit creates or overwrites the calling teacher's grade for the student, subject and quarter.
func (s *GradeService) Submit(ctx context.Context, userID string, req dto.SubmitGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid grade payload")
	}
	if req.Quarter == "" {
		req.Quarter = models.QuarterOne
	}

	teacher, err := s.teachers.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can submit grades")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	exists, err := s.students.Exists(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	grade := &models.Grade{
		TeacherID: teacher.ID,
		StudentID: req.StudentID,
		SubjectID: req.SubjectID,
		Quarter:   req.Quarter,
		Score:     *req.Score,
		Remarks:   req.Remarks,
	}
	if err := s.repo.Upsert(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grade")
	}
	s.logger.Debug("grade saved",
		zap.String("grade_id", grade.ID),
		zap.String("teacher_id", teacher.ID),
		zap.String("quarter", string(grade.Quarter)))
	return grade, nil
}

// AdminUpdate corrects score and remarks of any grade by id.
func (s *GradeService) AdminUpdate(ctx context.Context, id string, req dto.UpdateGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid grade payload")
	}
	grade, err := s.repo.UpdateScore(ctx, id, *req.Score, req.Remarks)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
	}
	return grade, nil
}

// ListByStudent returns the student's grades across subjects and quarters.
func (s *GradeService) ListByStudent(ctx context.Context, studentID string) ([]models.GradeDetail, error) {
	grades, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	if grades == nil {
		grades = []models.GradeDetail{}
	}
	return grades, nil
}
