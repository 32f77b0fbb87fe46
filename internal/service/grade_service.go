package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dputra/student-records-api/internal/models"
	appErrors "github.com/dputra/student-records-api/pkg/errors"
)

type gradeRepository interface {
	Create(ctx context.Context, grade *models.Grade) error
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Grade, error)
}

type gradeEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

type transcriptInvalidator interface {
	InvalidateStudent(ctx context.Context, studentID string)
}

// RecordGradeRequest holds payload for recording a grade.
type RecordGradeRequest struct {
	EnrollmentID string           `json:"enrollment_id" validate:"required"`
	GradeType    models.GradeType `json:"grade_type" validate:"required"`
	GradeValue   *int             `json:"grade_value" validate:"required"`
}

// GradeService handles grade recording and retrieval.
type GradeService struct {
	repo        gradeRepository
	enrollments gradeEnrollmentRepository
	invalidator transcriptInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs the grade service. The invalidator may be
// nil when no report cache is in play.
func NewGradeService(repo gradeRepository, enrollments gradeEnrollmentRepository, invalidator transcriptInvalidator, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, enrollments: enrollments, invalidator: invalidator, validator: validate, logger: logger}
}

// Record persists a grade for an existing enrollment. Values are whole
// numbers in [0,100]; the pointer distinguishes a recorded zero from a
// missing field.
func (s *GradeService) Record(ctx context.Context, req RecordGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if !req.GradeType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade_type must be one of: test, assignment, exam")
	}
	value := *req.GradeValue
	if value < 0 || value > 100 {
		return nil, appErrors.Clone(appErrors.ErrRange, "grade must be between 0 and 100")
	}

	enrollment, err := s.enrollments.FindByID(ctx, req.EnrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrReferential, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	grade := &models.Grade{
		EnrollmentID: req.EnrollmentID,
		GradeType:    req.GradeType,
		GradeValue:   value,
	}
	if err := s.repo.Create(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}

	// Cached transcripts are stale once a new grade lands.
	if s.invalidator != nil {
		s.invalidator.InvalidateStudent(ctx, enrollment.StudentID)
	}

	s.logger.Info("grade recorded",
		zap.String("grade_id", grade.ID),
		zap.String("enrollment_id", req.EnrollmentID),
		zap.String("grade_type", string(req.GradeType)),
		zap.Int("grade_value", value),
	)
	return grade, nil
}

// ListByEnrollment returns grades recorded for an enrollment.
func (s *GradeService) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Grade, error) {
	grades, err := s.repo.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}
