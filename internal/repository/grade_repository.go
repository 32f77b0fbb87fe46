package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dputra/student-records-api/internal/models"
)

// GradeRepository handles grade persistence.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Create inserts a new grade row.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	if grade.GradeDate.IsZero() {
		grade.GradeDate = now
	}
	const query = `INSERT INTO grades (id, enrollment_id, grade_type, grade_value, grade_date, created_at)
        VALUES (:id, :enrollment_id, :grade_type, :grade_value, :grade_date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// ListByEnrollment returns grades for one enrollment, newest first.
func (r *GradeRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Grade, error) {
	const query = `SELECT id, enrollment_id, grade_type, grade_value, grade_date, created_at
        FROM grades WHERE enrollment_id = $1 ORDER BY grade_date DESC`
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}
