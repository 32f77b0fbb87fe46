package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dputra/student-records-api/internal/etl"
	"github.com/dputra/student-records-api/internal/models"
	appErrors "github.com/dputra/student-records-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByNumber(ctx context.Context, number int) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error
}

// CreateStudentRequest holds payload for registering a student. The
// student number and birth date are validated with the same rules the
// batch pipeline applies, so both ingestion paths accept the same data.
type CreateStudentRequest struct {
	StudentNumber string `json:"student_number" validate:"required"`
	FirstName     string `json:"first_name" validate:"required,min=2,max=50"`
	LastName      string `json:"last_name" validate:"required,min=2,max=50"`
	DateOfBirth   string `json:"date_of_birth" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
}

// UpdateStudentStatusRequest holds payload for a status transition.
type UpdateStudentStatusRequest struct {
	Status models.StudentStatus `json:"status" validate:"required"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	pagination := models.NewPagination(filter.Page, filter.PageSize, total)
	return students, pagination, nil
}

// Get returns one student by ID.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student after format, range, and uniqueness
// checks. Email is stored lowercase.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	now := time.Now().UTC()
	if ok, code, detail := etl.CheckStudentNumber(req.StudentNumber, now); !ok {
		return nil, appErrors.New(code, appErrors.ErrValidation.Status, detail)
	}
	if ok, code, detail := etl.CheckDateOfBirth(req.DateOfBirth, now); !ok {
		return nil, appErrors.New(code, appErrors.ErrValidation.Status, detail)
	}

	number, err := strconv.Atoi(req.StudentNumber)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrFormat, "student_number must be numeric")
	}
	dob, err := etl.ParseDate(req.DateOfBirth)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrFormat, "date_of_birth must be a valid date")
	}

	exists, err := s.repo.ExistsByNumber(ctx, number)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrUniqueness, "student number already registered")
	}

	student := &models.Student{
		StudentNumber: number,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		DateOfBirth:   dob,
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Status:        models.StudentStatusActive,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	s.logger.Info("student registered", zap.String("student_id", student.ID), zap.Int("student_number", number))
	return student, nil
}

// UpdateStatus transitions a student to a new lifecycle status.
func (s *StudentService) UpdateStatus(ctx context.Context, id string, req UpdateStudentStatusRequest) (*models.Student, error) {
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of: active, inactive, graduated")
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student status")
	}
	return s.Get(ctx, id)
}

// Deactivate flips a student to inactive. Records are never hard-deleted
// so existing enrollments keep a valid parent.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	if err := s.repo.UpdateStatus(ctx, id, models.StudentStatusInactive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	s.logger.Info("student deactivated", zap.String("student_id", id))
	return nil
}
