package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dputra/student-records-api/internal/etl"
	"github.com/dputra/student-records-api/internal/models"
	appErrors "github.com/dputra/student-records-api/pkg/errors"
)

type attendanceRepository interface {
	Create(ctx context.Context, attendance *models.Attendance) error
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Attendance, error)
}

type attendanceEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

// MarkAttendanceRequest holds payload for marking attendance. RecordedAt
// is optional and defaults to the current time.
type MarkAttendanceRequest struct {
	EnrollmentID string                  `json:"enrollment_id" validate:"required"`
	Status       models.AttendanceStatus `json:"status" validate:"required"`
	RecordedAt   string                  `json:"recorded_at"`
}

// AttendanceService handles attendance use-cases.
type AttendanceService struct {
	repo        attendanceRepository
	enrollments attendanceEnrollmentRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, enrollments attendanceEnrollmentRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, enrollments: enrollments, validator: validate, logger: logger}
}

// Mark records a student's presence for one session.
func (s *AttendanceService) Mark(ctx context.Context, req MarkAttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of: present, absent, late")
	}

	var recordedAt time.Time
	if req.RecordedAt != "" {
		ts, err := etl.ParseTimestamp(req.RecordedAt)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrFormat, "recorded_at must be a valid date or timestamp")
		}
		recordedAt = ts
	}

	if _, err := s.enrollments.FindByID(ctx, req.EnrollmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrReferential, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	attendance := &models.Attendance{
		EnrollmentID: req.EnrollmentID,
		Status:       req.Status,
		RecordedAt:   recordedAt,
	}
	if err := s.repo.Create(ctx, attendance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}

	s.logger.Info("attendance marked",
		zap.String("attendance_id", attendance.ID),
		zap.String("enrollment_id", req.EnrollmentID),
		zap.String("status", string(req.Status)),
	)
	return attendance, nil
}

// ListByEnrollment returns attendance records for an enrollment.
func (s *AttendanceService) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Attendance, error) {
	records, err := s.repo.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}
