package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dputra/student-records-api/internal/models"
	appErrors "github.com/dputra/student-records-api/pkg/errors"
)

type mockReportRepo struct {
	rows []models.EnrollmentGradeRow
}

func (m *mockReportRepo) GradeRowsByStudent(_ context.Context, studentID string) ([]models.EnrollmentGradeRow, error) {
	var out []models.EnrollmentGradeRow
	for _, row := range m.rows {
		if row.StudentID == studentID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *mockReportRepo) AllGradeRows(_ context.Context) ([]models.EnrollmentGradeRow, error) {
	return m.rows, nil
}

type mockWeightRepo struct{}

func (m *mockWeightRepo) Map(_ context.Context) (map[models.GradeType]int, error) {
	return map[models.GradeType]int{
		models.GradeTypeAssignment: 30,
		models.GradeTypeTest:       30,
		models.GradeTypeExam:       40,
	}, nil
}

type mockReportAttendanceRepo struct {
	summary []models.AttendanceSummaryRow
	roster  []models.RosterRow
	low     []models.LowAttendanceRow
}

func (m *mockReportAttendanceRepo) SummaryByStudent(_ context.Context, _ string) ([]models.AttendanceSummaryRow, error) {
	return m.summary, nil
}

func (m *mockReportAttendanceRepo) RosterCounts(_ context.Context, _ string) ([]models.RosterRow, error) {
	return m.roster, nil
}

func (m *mockReportAttendanceRepo) LowAttendance(_ context.Context, _ float64) ([]models.LowAttendanceRow, error) {
	return m.low, nil
}

func gradeRow(studentID string, number int, enrollmentID, code string, gradeType models.GradeType, value int) models.EnrollmentGradeRow {
	return models.EnrollmentGradeRow{
		StudentID:     studentID,
		StudentNumber: number,
		FirstName:     "First",
		LastName:      "Last",
		EnrollmentID:  enrollmentID,
		CourseCode:    code,
		CourseName:    code + " name",
		AcademicYear:  "2024-2025",
		Term:          1,
		GradeType:     gradeType,
		GradeValue:    value,
	}
}

func newReportFixture(rows []models.EnrollmentGradeRow, attendance *mockReportAttendanceRepo) *ReportService {
	students := &mockStudentFinder{students: map[string]models.Student{
		"S1": {ID: "S1", StudentNumber: 202001, FirstName: "First", LastName: "Last", Status: models.StudentStatusActive},
	}}
	courses := &mockCourseFinder{courses: map[string]models.Course{
		"C1": {ID: "C1", CourseCode: "MATH101", CourseName: "Calculus", Status: models.CourseStatusActive},
	}}
	if attendance == nil {
		attendance = &mockReportAttendanceRepo{}
	}
	cache := NewCacheService(nil, 0, nil, false)
	return NewReportService(&mockReportRepo{rows: rows}, &mockWeightRepo{}, students, courses, attendance, cache, nil)
}

func TestReportServiceTranscript(t *testing.T) {
	rows := []models.EnrollmentGradeRow{
		gradeRow("S1", 202001, "E1", "MATH101", models.GradeTypeAssignment, 80),
		gradeRow("S1", 202001, "E1", "MATH101", models.GradeTypeTest, 90),
		gradeRow("S1", 202001, "E1", "MATH101", models.GradeTypeExam, 70),
		gradeRow("S1", 202001, "E2", "PHYS101", models.GradeTypeExam, 45),
	}
	svc := newReportFixture(rows, nil)

	transcript, err := svc.Transcript(context.Background(), "S1")
	require.NoError(t, err)
	require.Len(t, transcript.Courses, 2)

	assert.InDelta(t, 79.0, transcript.Courses[0].WeightedAverage, 0.001)
	assert.Equal(t, "Pass", transcript.Courses[0].Status)
	assert.InDelta(t, 45.0, transcript.Courses[1].WeightedAverage, 0.001)
	assert.Equal(t, "Supplementary", transcript.Courses[1].Status)

	require.NotNil(t, transcript.GPA)
	assert.InDelta(t, 62.0, *transcript.GPA, 0.001)
	require.NotNil(t, transcript.GradePoint)
	assert.Equal(t, 1.0, *transcript.GradePoint)
}

func TestReportServiceTranscriptNoGrades(t *testing.T) {
	svc := newReportFixture(nil, nil)

	transcript, err := svc.Transcript(context.Background(), "S1")
	require.NoError(t, err)
	assert.Empty(t, transcript.Courses)
	assert.Nil(t, transcript.GPA)
	assert.Nil(t, transcript.GradePoint)
}

func TestReportServiceTranscriptUnknownStudent(t *testing.T) {
	svc := newReportFixture(nil, nil)
	_, err := svc.Transcript(context.Background(), "S404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportServiceTopStudentsRanking(t *testing.T) {
	rows := []models.EnrollmentGradeRow{
		gradeRow("S1", 202001, "E1", "MATH101", models.GradeTypeExam, 70),
		gradeRow("S2", 202002, "E2", "MATH101", models.GradeTypeExam, 95),
		gradeRow("S3", 202003, "E3", "MATH101", models.GradeTypeExam, 95),
	}
	svc := newReportFixture(rows, nil)

	ranking, err := svc.TopStudents(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, ranking, 2)
	// Equal GPAs break ties on student number.
	assert.Equal(t, "S2", ranking[0].StudentID)
	assert.Equal(t, 1, ranking[0].Rank)
	assert.Equal(t, "S3", ranking[1].StudentID)
	assert.Equal(t, 2, ranking[1].Rank)
}

func TestReportServiceAttendanceSummaryRates(t *testing.T) {
	attendance := &mockReportAttendanceRepo{summary: []models.AttendanceSummaryRow{
		{EnrollmentID: "E1", CourseCode: "MATH101", PresentCount: 6, AbsentCount: 2, LateCount: 2, TotalSessions: 10},
	}}
	svc := newReportFixture(nil, attendance)

	summary, err := svc.AttendanceSummary(context.Background(), "S1")
	require.NoError(t, err)
	require.Len(t, summary.Rows, 1)
	assert.InDelta(t, 80.0, summary.Rows[0].AttendanceRate, 0.001)
}

func TestReportServiceLowAttendanceThreshold(t *testing.T) {
	svc := newReportFixture(nil, &mockReportAttendanceRepo{})

	_, err := svc.LowAttendance(context.Background(), 120)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	rows, err := svc.LowAttendance(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReportServiceExportTranscriptCSV(t *testing.T) {
	rows := []models.EnrollmentGradeRow{
		gradeRow("S1", 202001, "E1", "MATH101", models.GradeTypeExam, 90),
	}
	svc := newReportFixture(rows, nil)

	payload, filename, err := svc.ExportTranscript(context.Background(), "S1", ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "transcript_202001.csv", filename)
	content := string(payload)
	assert.True(t, strings.HasPrefix(content, "Course Code,"))
	assert.Contains(t, content, "MATH101")
	assert.Contains(t, content, "90.00")

	_, _, err = svc.ExportTranscript(context.Background(), "S1", ExportFormat("xml"))
	require.Error(t, err)
}
