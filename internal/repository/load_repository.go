package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dputra/student-records-api/internal/etl"
	"github.com/dputra/student-records-api/internal/models"
)

// LoadRepository applies pipeline-accepted rows to the store. Every insert
// is parameterized and conflicts on a uniqueness key are skipped, never
// overwritten, so re-running the pipeline over the same source cannot
// create duplicates. Each entity stage runs in its own transaction; a
// failure rolls back only the stage in flight.
type LoadRepository struct {
	db *sqlx.DB
}

// NewLoadRepository constructs a LoadRepository.
func NewLoadRepository(db *sqlx.DB) *LoadRepository {
	return &LoadRepository{db: db}
}

func (r *LoadRepository) insertBatch(ctx context.Context, query string, rows []interface{}) (etl.LoadStats, error) {
	var stats etl.LoadStats
	if len(rows) == 0 {
		return stats, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin stage transaction: %w", err)
	}
	for _, row := range rows {
		result, err := tx.NamedExecContext(ctx, query, row)
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return etl.LoadStats{}, fmt.Errorf("insert row: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return etl.LoadStats{}, fmt.Errorf("rows affected: %w", err)
		}
		if affected > 0 {
			stats.Inserted++
		} else {
			stats.Skipped++
		}
	}
	if err := tx.Commit(); err != nil {
		return etl.LoadStats{}, fmt.Errorf("commit stage: %w", err)
	}
	return stats, nil
}

// InsertStudents loads accepted student rows, skipping unique-key
// conflicts on id or student_number.
func (r *LoadRepository) InsertStudents(ctx context.Context, rows []models.Student) (etl.LoadStats, error) {
	const query = `INSERT INTO students (id, student_number, first_name, last_name, date_of_birth, email, status, created_at, updated_at)
        VALUES (:id, :student_number, :first_name, :last_name, :date_of_birth, :email, :status, :created_at, :updated_at)
        ON CONFLICT DO NOTHING`
	return r.insertBatch(ctx, query, stampStudents(rows))
}

// InsertCourses loads accepted course rows.
func (r *LoadRepository) InsertCourses(ctx context.Context, rows []models.Course) (etl.LoadStats, error) {
	const query = `INSERT INTO courses (id, course_code, course_name, credits, status, created_at, updated_at)
        VALUES (:id, :course_code, :course_name, :credits, :status, :created_at, :updated_at)
        ON CONFLICT DO NOTHING`
	return r.insertBatch(ctx, query, stampCourses(rows))
}

// InsertEnrollments loads accepted enrollment rows, skipping conflicts on
// the composite (student_id, course_id, academic_year, term) key.
func (r *LoadRepository) InsertEnrollments(ctx context.Context, rows []models.Enrollment) (etl.LoadStats, error) {
	const query = `INSERT INTO enrollments (id, student_id, course_id, academic_year, term, enrollment_date, created_at)
        VALUES (:id, :student_id, :course_id, :academic_year, :term, :enrollment_date, :created_at)
        ON CONFLICT DO NOTHING`
	return r.insertBatch(ctx, query, stampEnrollments(rows))
}

// InsertGrades loads accepted grade rows.
func (r *LoadRepository) InsertGrades(ctx context.Context, rows []models.Grade) (etl.LoadStats, error) {
	const query = `INSERT INTO grades (id, enrollment_id, grade_type, grade_value, grade_date, created_at)
        VALUES (:id, :enrollment_id, :grade_type, :grade_value, :grade_date, :created_at)
        ON CONFLICT DO NOTHING`
	return r.insertBatch(ctx, query, stampGrades(rows))
}

// InsertAttendance loads accepted attendance rows.
func (r *LoadRepository) InsertAttendance(ctx context.Context, rows []models.Attendance) (etl.LoadStats, error) {
	const query = `INSERT INTO attendance (id, enrollment_id, status, recorded_at, created_at)
        VALUES (:id, :enrollment_id, :status, :recorded_at, :created_at)
        ON CONFLICT DO NOTHING`
	return r.insertBatch(ctx, query, stampAttendance(rows))
}

func stampStudents(rows []models.Student) []interface{} {
	now := time.Now().UTC()
	out := make([]interface{}, 0, len(rows))
	for i := range rows {
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
		rows[i].UpdatedAt = now
		out = append(out, rows[i])
	}
	return out
}

func stampCourses(rows []models.Course) []interface{} {
	now := time.Now().UTC()
	out := make([]interface{}, 0, len(rows))
	for i := range rows {
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
		rows[i].UpdatedAt = now
		out = append(out, rows[i])
	}
	return out
}

func stampEnrollments(rows []models.Enrollment) []interface{} {
	now := time.Now().UTC()
	out := make([]interface{}, 0, len(rows))
	for i := range rows {
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
		out = append(out, rows[i])
	}
	return out
}

func stampGrades(rows []models.Grade) []interface{} {
	now := time.Now().UTC()
	out := make([]interface{}, 0, len(rows))
	for i := range rows {
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
		out = append(out, rows[i])
	}
	return out
}

func stampAttendance(rows []models.Attendance) []interface{} {
	now := time.Now().UTC()
	out := make([]interface{}, 0, len(rows))
	for i := range rows {
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
		out = append(out, rows[i])
	}
	return out
}
