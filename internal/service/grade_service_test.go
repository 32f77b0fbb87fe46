package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dputra/student-records-api/internal/models"
	appErrors "github.com/dputra/student-records-api/pkg/errors"
)

type mockGradeRepo struct {
	grades []models.Grade
}

func (m *mockGradeRepo) Create(_ context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = "G1"
	}
	m.grades = append(m.grades, *grade)
	return nil
}

func (m *mockGradeRepo) ListByEnrollment(_ context.Context, enrollmentID string) ([]models.Grade, error) {
	var out []models.Grade
	for _, g := range m.grades {
		if g.EnrollmentID == enrollmentID {
			out = append(out, g)
		}
	}
	return out, nil
}

type mockEnrollmentFinder struct {
	ids map[string]bool
}

func (m *mockEnrollmentFinder) FindByID(_ context.Context, id string) (*models.Enrollment, error) {
	if !m.ids[id] {
		return nil, sql.ErrNoRows
	}
	return &models.Enrollment{ID: id}, nil
}

func intPtr(v int) *int { return &v }

func newGradeFixture() (*GradeService, *mockGradeRepo) {
	repo := &mockGradeRepo{}
	enrollments := &mockEnrollmentFinder{ids: map[string]bool{"E1": true}}
	return NewGradeService(repo, enrollments, nil, nil, nil), repo
}

func TestGradeServiceRecord(t *testing.T) {
	svc, repo := newGradeFixture()

	grade, err := svc.Record(context.Background(), RecordGradeRequest{
		EnrollmentID: "E1",
		GradeType:    models.GradeTypeExam,
		GradeValue:   intPtr(90),
	})
	require.NoError(t, err)
	assert.Equal(t, 90, grade.GradeValue)
	assert.Len(t, repo.grades, 1)
}

func TestGradeServiceRecordZeroIsValid(t *testing.T) {
	svc, _ := newGradeFixture()

	grade, err := svc.Record(context.Background(), RecordGradeRequest{
		EnrollmentID: "E1",
		GradeType:    models.GradeTypeTest,
		GradeValue:   intPtr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, grade.GradeValue)
}

func TestGradeServiceRecordOutOfRange(t *testing.T) {
	svc, _ := newGradeFixture()

	for _, value := range []int{-1, 101} {
		_, err := svc.Record(context.Background(), RecordGradeRequest{
			EnrollmentID: "E1",
			GradeType:    models.GradeTypeExam,
			GradeValue:   intPtr(value),
		})
		require.Error(t, err, "value %d", value)
		assert.Equal(t, appErrors.ErrRange.Code, appErrors.FromError(err).Code)
	}
}

func TestGradeServiceRecordUnknownType(t *testing.T) {
	svc, _ := newGradeFixture()

	_, err := svc.Record(context.Background(), RecordGradeRequest{
		EnrollmentID: "E1",
		GradeType:    models.GradeType("quiz"),
		GradeValue:   intPtr(50),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGradeServiceRecordMissingEnrollment(t *testing.T) {
	svc, _ := newGradeFixture()

	_, err := svc.Record(context.Background(), RecordGradeRequest{
		EnrollmentID: "E404",
		GradeType:    models.GradeTypeExam,
		GradeValue:   intPtr(70),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReferential.Code, appErrors.FromError(err).Code)
}
