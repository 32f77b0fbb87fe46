package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dputra/student-records-api/internal/models"
)

// GradeWeightRepository reads the configured grade-type weights.
type GradeWeightRepository struct {
	db *sqlx.DB
}

// NewGradeWeightRepository constructs a GradeWeightRepository.
func NewGradeWeightRepository(db *sqlx.DB) *GradeWeightRepository {
	return &GradeWeightRepository{db: db}
}

// List returns all configured weights.
func (r *GradeWeightRepository) List(ctx context.Context) ([]models.GradeWeight, error) {
	const query = `SELECT grade_type, weight FROM grade_weights ORDER BY grade_type`
	var weights []models.GradeWeight
	if err := r.db.SelectContext(ctx, &weights, query); err != nil {
		return nil, fmt.Errorf("list grade weights: %w", err)
	}
	return weights, nil
}

// Map returns weights keyed by grade type for the result engine.
func (r *GradeWeightRepository) Map(ctx context.Context) (map[models.GradeType]int, error) {
	weights, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[models.GradeType]int, len(weights))
	for _, w := range weights {
		out[w.GradeType] = w.Weight
	}
	return out, nil
}
