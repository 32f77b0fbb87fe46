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

type mockCourseRepo struct {
	courses map[string]models.Course
	codes   map[string]bool
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: map[string]models.Course{}, codes: map[string]bool{}}
}

func (m *mockCourseRepo) List(_ context.Context, _ models.CourseFilter) ([]models.Course, int, error) {
	var out []models.Course
	for _, c := range m.courses {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *mockCourseRepo) FindByID(_ context.Context, id string) (*models.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (m *mockCourseRepo) ExistsByCode(_ context.Context, code string) (bool, error) {
	return m.codes[code], nil
}

func (m *mockCourseRepo) Create(_ context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = "generated"
	}
	m.courses[course.ID] = *course
	m.codes[course.CourseCode] = true
	return nil
}

func (m *mockCourseRepo) UpdateStatus(_ context.Context, id string, status models.CourseStatus) error {
	c, ok := m.courses[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.Status = status
	m.courses[id] = c
	return nil
}

func validCourseRequest() CreateCourseRequest {
	return CreateCourseRequest{CourseCode: "math101", CourseName: "Calculus I", Credits: 4}
}

func TestCourseServiceCreateUppercasesCode(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(), nil, nil)

	course, err := svc.Create(context.Background(), validCourseRequest())
	require.NoError(t, err)
	assert.Equal(t, "MATH101", course.CourseCode)
	assert.Equal(t, models.CourseStatusActive, course.Status)
}

func TestCourseServiceCreateDuplicateCode(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(), nil, nil)

	_, err := svc.Create(context.Background(), validCourseRequest())
	require.NoError(t, err)

	// Codes collide case-insensitively since both normalize to MATH101.
	req := validCourseRequest()
	req.CourseCode = "MATH101"
	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUniqueness.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceCreateRejectsBadCredits(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(), nil, nil)

	for _, credits := range []int{0, 31} {
		req := validCourseRequest()
		req.Credits = credits
		_, err := svc.Create(context.Background(), req)
		require.Error(t, err, "credits %d", credits)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestCourseServiceUpdateStatus(t *testing.T) {
	repo := newMockCourseRepo()
	svc := NewCourseService(repo, nil, nil)

	course, err := svc.Create(context.Background(), validCourseRequest())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), course.ID, UpdateCourseStatusRequest{Status: models.CourseStatusInactive})
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusInactive, updated.Status)

	_, err = svc.UpdateStatus(context.Background(), course.ID, UpdateCourseStatusRequest{Status: "archived"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceGetNotFound(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(), nil, nil)
	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
