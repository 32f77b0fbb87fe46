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

type enrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Exists(ctx context.Context, studentID, courseID, academicYear string, term int) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
}

type enrollmentStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type enrollmentCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// EnrollRequest holds payload for enrolling a student into a course.
type EnrollRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	CourseID     string `json:"course_id" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
	Term         int    `json:"term" validate:"required,min=1,max=2"`
}

// EnrollmentService handles enrollment use-cases. Enrolling checks both
// parent references and the composite uniqueness key before writing, so
// a single enrollment mirrors the referential guarantees of the batch
// pipeline.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  enrollmentStudentRepository
	courses   enrollmentCourseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, students enrollmentStudentRepository, courses enrollmentCourseRepository, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, courses: courses, validator: validate, logger: logger}
}

// Get returns one enrollment by ID.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// Enroll registers a student into a course for an academic year and term.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if ok, code, detail := etl.CheckAcademicYear(req.AcademicYear, time.Now().UTC()); !ok {
		return nil, appErrors.New(code, appErrors.ErrValidation.Status, detail)
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrReferential, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Status != models.StudentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is not active")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrReferential, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.Status != models.CourseStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course is not active")
	}

	exists, err := s.repo.Exists(ctx, req.StudentID, req.CourseID, req.AcademicYear, req.Term)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrUniqueness, "student already enrolled in this course for the term")
	}

	enrollment := &models.Enrollment{
		StudentID:    req.StudentID,
		CourseID:     req.CourseID,
		AcademicYear: req.AcademicYear,
		Term:         req.Term,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.logger.Info("student enrolled",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", req.StudentID),
		zap.String("course_id", req.CourseID),
	)
	return enrollment, nil
}

// ListByStudent returns a student's enrollments with course context.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	details, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return details, nil
}

// ListByCourse returns a course's enrollments with student context.
func (s *EnrollmentService) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	details, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return details, nil
}
