package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dputra/student-records-api/internal/models"
)

// AttendanceRepository handles attendance persistence and aggregates.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts a new attendance row.
func (r *AttendanceRepository) Create(ctx context.Context, attendance *models.Attendance) error {
	if attendance.ID == "" {
		attendance.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if attendance.CreatedAt.IsZero() {
		attendance.CreatedAt = now
	}
	if attendance.RecordedAt.IsZero() {
		attendance.RecordedAt = now
	}
	const query = `INSERT INTO attendance (id, enrollment_id, status, recorded_at, created_at)
        VALUES (:id, :enrollment_id, :status, :recorded_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attendance); err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// ListByEnrollment returns attendance rows for one enrollment, newest first.
func (r *AttendanceRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Attendance, error) {
	const query = `SELECT id, enrollment_id, status, recorded_at, created_at
        FROM attendance WHERE enrollment_id = $1 ORDER BY recorded_at DESC`
	var rows []models.Attendance
	if err := r.db.SelectContext(ctx, &rows, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return rows, nil
}

// RosterCounts returns per-enrollment attendance counts for one course.
func (r *AttendanceRepository) RosterCounts(ctx context.Context, courseID string) ([]models.RosterRow, error) {
	const query = `SELECT e.id AS enrollment_id, s.id AS student_id, s.student_number, s.first_name, s.last_name,
        e.academic_year, e.term,
        COUNT(a.id) FILTER (WHERE a.status = 'present') AS present_count,
        COUNT(a.id) FILTER (WHERE a.status = 'absent') AS absent_count,
        COUNT(a.id) FILTER (WHERE a.status = 'late') AS late_count
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        LEFT JOIN attendance a ON a.enrollment_id = e.id
        WHERE e.course_id = $1
        GROUP BY e.id, s.id, s.student_number, s.first_name, s.last_name, e.academic_year, e.term
        ORDER BY s.student_number ASC`
	var rows []models.RosterRow
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("roster counts: %w", err)
	}
	return rows, nil
}

// SummaryByStudent returns per-enrollment attendance counts for one student.
func (r *AttendanceRepository) SummaryByStudent(ctx context.Context, studentID string) ([]models.AttendanceSummaryRow, error) {
	const query = `SELECT e.id AS enrollment_id, c.course_code, c.course_name,
        COUNT(a.id) FILTER (WHERE a.status = 'present') AS present_count,
        COUNT(a.id) FILTER (WHERE a.status = 'absent') AS absent_count,
        COUNT(a.id) FILTER (WHERE a.status = 'late') AS late_count,
        COUNT(a.id) AS total_sessions
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        LEFT JOIN attendance a ON a.enrollment_id = e.id
        WHERE e.student_id = $1
        GROUP BY e.id, c.course_code, c.course_name
        ORDER BY c.course_code ASC`
	var rows []models.AttendanceSummaryRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	return rows, nil
}

// LowAttendance lists students whose attendance rate for a course sits
// below the threshold percentage. Late counts as attended.
func (r *AttendanceRepository) LowAttendance(ctx context.Context, threshold float64) ([]models.LowAttendanceRow, error) {
	const query = `SELECT s.id AS student_id, s.student_number, s.first_name, s.last_name, c.course_code,
        COUNT(a.id) AS total_sessions,
        COUNT(a.id) FILTER (WHERE a.status = 'present') AS present_count,
        ROUND(COUNT(a.id) FILTER (WHERE a.status IN ('present', 'late'))::NUMERIC * 100 / COUNT(a.id), 2) AS attendance_rate
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        JOIN attendance a ON a.enrollment_id = e.id
        GROUP BY s.id, s.student_number, s.first_name, s.last_name, c.course_code
        HAVING COUNT(a.id) FILTER (WHERE a.status IN ('present', 'late'))::NUMERIC * 100 / COUNT(a.id) < $1
        ORDER BY attendance_rate ASC`
	var rows []models.LowAttendanceRow
	if err := r.db.SelectContext(ctx, &rows, query, threshold); err != nil {
		return nil, fmt.Errorf("low attendance: %w", err)
	}
	return rows, nil
}
