package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dputra/student-records-api/internal/models"
	appErrors "github.com/dputra/student-records-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	keys        map[string]bool
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{}, keys: map[string]bool{}}
}

func enrollmentKey(studentID, courseID, academicYear string, term int) string {
	return fmt.Sprintf("%s|%s|%s|%d", studentID, courseID, academicYear, term)
}

func (m *mockEnrollmentRepo) FindByID(_ context.Context, id string) (*models.Enrollment, error) {
	e, ok := m.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (m *mockEnrollmentRepo) Exists(_ context.Context, studentID, courseID, academicYear string, term int) (bool, error) {
	return m.keys[enrollmentKey(studentID, courseID, academicYear, term)], nil
}

func (m *mockEnrollmentRepo) Create(_ context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = fmt.Sprintf("E%d", len(m.enrollments)+1)
	}
	m.enrollments[enrollment.ID] = *enrollment
	m.keys[enrollmentKey(enrollment.StudentID, enrollment.CourseID, enrollment.AcademicYear, enrollment.Term)] = true
	return nil
}

func (m *mockEnrollmentRepo) ListByStudent(_ context.Context, _ string) ([]models.EnrollmentDetail, error) {
	return nil, nil
}

func (m *mockEnrollmentRepo) ListByCourse(_ context.Context, _ string) ([]models.EnrollmentDetail, error) {
	return nil, nil
}

type mockStudentFinder struct {
	students map[string]models.Student
}

func (m *mockStudentFinder) FindByID(_ context.Context, id string) (*models.Student, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

type mockCourseFinder struct {
	courses map[string]models.Course
}

func (m *mockCourseFinder) FindByID(_ context.Context, id string) (*models.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func newEnrollmentFixture() (*EnrollmentService, *mockEnrollmentRepo) {
	repo := newMockEnrollmentRepo()
	students := &mockStudentFinder{students: map[string]models.Student{
		"S1": {ID: "S1", Status: models.StudentStatusActive},
		"S2": {ID: "S2", Status: models.StudentStatusInactive},
	}}
	courses := &mockCourseFinder{courses: map[string]models.Course{
		"C1": {ID: "C1", Status: models.CourseStatusActive},
		"C2": {ID: "C2", Status: models.CourseStatusInactive},
	}}
	return NewEnrollmentService(repo, students, courses, nil, nil), repo
}

func validEnrollRequest() EnrollRequest {
	return EnrollRequest{StudentID: "S1", CourseID: "C1", AcademicYear: "2024-2025", Term: 1}
}

func TestEnrollmentServiceEnroll(t *testing.T) {
	svc, repo := newEnrollmentFixture()

	enrollment, err := svc.Enroll(context.Background(), validEnrollRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.ID)
	assert.Len(t, repo.enrollments, 1)
}

func TestEnrollmentServiceEnrollMissingStudent(t *testing.T) {
	svc, _ := newEnrollmentFixture()

	req := validEnrollRequest()
	req.StudentID = "S404"
	_, err := svc.Enroll(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReferential.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollInactiveParents(t *testing.T) {
	svc, _ := newEnrollmentFixture()

	req := validEnrollRequest()
	req.StudentID = "S2"
	_, err := svc.Enroll(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req = validEnrollRequest()
	req.CourseID = "C2"
	_, err = svc.Enroll(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollDuplicateKey(t *testing.T) {
	svc, _ := newEnrollmentFixture()

	_, err := svc.Enroll(context.Background(), validEnrollRequest())
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), validEnrollRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUniqueness.Code, appErrors.FromError(err).Code)

	// Same pair in a different term is a distinct key.
	req := validEnrollRequest()
	req.Term = 2
	_, err = svc.Enroll(context.Background(), req)
	assert.NoError(t, err)
}

func TestEnrollmentServiceEnrollBadAcademicYear(t *testing.T) {
	svc, _ := newEnrollmentFixture()

	req := validEnrollRequest()
	req.AcademicYear = "2024-2026"
	_, err := svc.Enroll(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFormat.Code, appErrors.FromError(err).Code)
}
