package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dputra/student-records-api/internal/models"
)

// ReportRepository reads the joined grade rows the result engine
// aggregates over. It exposes raw shapes only; all weighting happens in
// the results package.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs a ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const enrollmentGradeColumns = `s.id AS student_id, s.student_number, s.first_name, s.last_name,
        e.id AS enrollment_id, c.course_code, c.course_name, e.academic_year, e.term,
        g.grade_type, g.grade_value`

// GradeRowsByStudent returns every grade of one student joined with its
// enrollment and course context.
func (r *ReportRepository) GradeRowsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentGradeRow, error) {
	query := fmt.Sprintf(`SELECT %s
        FROM grades g
        JOIN enrollments e ON e.id = g.enrollment_id
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        WHERE s.id = $1
        ORDER BY e.academic_year DESC, e.term ASC, c.course_code ASC`, enrollmentGradeColumns)
	var rows []models.EnrollmentGradeRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("grade rows by student: %w", err)
	}
	return rows, nil
}

// AllGradeRows returns every grade joined with context, for cross-student
// rankings.
func (r *ReportRepository) AllGradeRows(ctx context.Context) ([]models.EnrollmentGradeRow, error) {
	query := fmt.Sprintf(`SELECT %s
        FROM grades g
        JOIN enrollments e ON e.id = g.enrollment_id
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        ORDER BY s.student_number ASC, e.academic_year DESC`, enrollmentGradeColumns)
	var rows []models.EnrollmentGradeRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("all grade rows: %w", err)
	}
	return rows, nil
}
