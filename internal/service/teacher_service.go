package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sics-enrollment-api/internal/dto"
	"github.com/noah-isme/sics-enrollment-api/internal/models"
	"github.com/noah-isme/sics-enrollment-api/internal/repository"
	appErrors "github.com/noah-isme/sics-enrollment-api/pkg/errors"
	"github.com/noah-isme/sics-enrollment-api/pkg/validation"
)

const (
	temporaryPasswordLength = 12
	passwordAlphabet        = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"
)

type teacherRepository interface {
	List(ctx context.Context) ([]models.Teacher, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, teacher *models.Teacher) error
}

type teacherAccountWriter interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, user *models.User) error
}

type advisoryAssigner interface {
	AssignAdvisorTx(ctx context.Context, tx *sqlx.Tx, gradeLevel, teacherID string) (*models.Section, error)
}

// TeacherService creates faculty records together with their login.
type TeacherService struct {
	tx        txProvider
	repo      teacherRepository
	users     teacherAccountWriter
	sections  advisoryAssigner
	validator *validator.Validate
	logger    *zap.Logger
	password  func() (string, error)
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(tx txProvider, repo teacherRepository, users teacherAccountWriter, sections advisoryAssigner, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{tx: tx, repo: repo, users: users, sections: sections, validator: validate, logger: logger, password: generatePassword}
}

// List returns all teachers ordered by name.
func (s *TeacherService) List(ctx context.Context) ([]models.Teacher, error) {
	teachers, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	if teachers == nil {
		teachers = []models.Teacher{}
	}
	return teachers, nil
}

// Create inserts the teacher and a TEACHER login with a generated password. When an
// advisory grade is given, the teacher advises the first unadvised section of it.
func (s *TeacherService) Create(ctx context.Context, req dto.CreateTeacherRequest) (*dto.CreateTeacherResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FromValidation(err, "invalid teacher payload")
	}

	password, err := s.password()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	teacher := &models.Teacher{
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Email:          email,
		Specialization: strings.TrimSpace(req.Specialization),
	}
	if req.AdvisoryGrade != nil && strings.TrimSpace(*req.AdvisoryGrade) != "" {
		grade := strings.TrimSpace(*req.AdvisoryGrade)
		teacher.AdvisoryGrade = &grade
	}
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     teacher.FullName(),
		Role:         models.RoleTeacher,
		Active:       true,
	}

	var advisory *models.Section
	err = inTx(ctx, s.tx, "teacher", func(tx *sqlx.Tx) error {
		if err := s.users.CreateTx(ctx, tx, user); err != nil {
			return teacherWriteError(err)
		}
		teacher.UserID = user.ID
		if err := s.repo.CreateTx(ctx, tx, teacher); err != nil {
			return teacherWriteError(err)
		}
		if teacher.AdvisoryGrade == nil {
			return nil
		}
		var err error
		advisory, err = s.sections.AssignAdvisorTx(ctx, tx, *teacher.AdvisoryGrade, teacher.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign advisory section")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("teacher created", zap.String("teacher_id", teacher.ID), zap.Bool("advisory", advisory != nil))
	return &dto.CreateTeacherResult{Teacher: *teacher, TemporaryPassword: password, AdvisorySection: advisory}, nil
}

func teacherWriteError(err error) error {
	if _, ok := repository.UniqueViolation(err); ok {
		return appErrors.Clone(appErrors.ErrConflict, "email already in use")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
}

func generatePassword() (string, error) {
	limit := big.NewInt(int64(len(passwordAlphabet)))
	var b strings.Builder
	for i := 0; i < temporaryPasswordLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		b.WriteByte(passwordAlphabet[n.Int64()])
	}
	return b.String(), nil
}
