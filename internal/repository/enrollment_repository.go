package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dputra/student-records-api/internal/models"
)

// EnrollmentRepository manages persistence for enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID fetches an enrollment by ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, academic_year, term, enrollment_date, created_at
        FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Exists reports whether the composite uniqueness key is already taken.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, courseID, academicYear string, term int) (bool, error) {
	const query = `SELECT 1 FROM enrollments
        WHERE student_id = $1 AND course_id = $2 AND academic_year = $3 AND term = $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID, academicYear, term); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Create inserts a new enrollment. The store's unique constraint on the
// composite key backs the service-level existence check.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	if enrollment.EnrollmentDate.IsZero() {
		enrollment.EnrollmentDate = now
	}
	const query = `INSERT INTO enrollments (id, student_id, course_id, academic_year, term, enrollment_date, created_at)
        VALUES (:id, :student_id, :course_id, :academic_year, :term, :enrollment_date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// ListByStudent returns a student's enrollments with course context,
// newest academic year first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.academic_year, e.term, e.enrollment_date, e.created_at,
        s.student_number, s.first_name || ' ' || s.last_name AS student_name,
        c.course_code, c.course_name
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1
        ORDER BY e.academic_year DESC, e.term ASC`
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return details, nil
}

// ListByCourse returns a course's enrollments with student context,
// ordered by student number.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.academic_year, e.term, e.enrollment_date, e.created_at,
        s.student_number, s.first_name || ' ' || s.last_name AS student_name,
        c.course_code, c.course_name
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.course_id = $1
        ORDER BY s.student_number ASC`
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query, courseID); err != nil {
		return nil, fmt.Errorf("list course enrollments: %w", err)
	}
	return details, nil
}
