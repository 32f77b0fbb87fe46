package etl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dputra/student-records-api/internal/models"
	appErrors "github.com/dputra/student-records-api/pkg/errors"
)

// memStore keeps inserted keys across runs so a second run over the same
// files exercises the skip-on-conflict path.
type memStore struct {
	students    map[int]bool
	courses     map[string]bool
	enrollments map[string]bool
	grades      map[string]bool
	attendance  map[string]bool
	failAt      Entity
}

func newMemStore() *memStore {
	return &memStore{
		students:    map[int]bool{},
		courses:     map[string]bool{},
		enrollments: map[string]bool{},
		grades:      map[string]bool{},
		attendance:  map[string]bool{},
	}
}

func (s *memStore) apply(keySeen func() bool, mark func()) LoadStats {
	if keySeen() {
		return LoadStats{Skipped: 1}
	}
	mark()
	return LoadStats{Inserted: 1}
}

func (s *memStore) InsertStudents(_ context.Context, rows []models.Student) (LoadStats, error) {
	if s.failAt == EntityStudents {
		return LoadStats{}, errors.New("connection refused")
	}
	var stats LoadStats
	for _, row := range rows {
		row := row
		st := s.apply(func() bool { return s.students[row.StudentNumber] }, func() { s.students[row.StudentNumber] = true })
		stats.Inserted += st.Inserted
		stats.Skipped += st.Skipped
	}
	return stats, nil
}

func (s *memStore) InsertCourses(_ context.Context, rows []models.Course) (LoadStats, error) {
	if s.failAt == EntityCourses {
		return LoadStats{}, errors.New("connection refused")
	}
	var stats LoadStats
	for _, row := range rows {
		row := row
		st := s.apply(func() bool { return s.courses[row.CourseCode] }, func() { s.courses[row.CourseCode] = true })
		stats.Inserted += st.Inserted
		stats.Skipped += st.Skipped
	}
	return stats, nil
}

func (s *memStore) InsertEnrollments(_ context.Context, rows []models.Enrollment) (LoadStats, error) {
	if s.failAt == EntityEnrollments {
		return LoadStats{}, errors.New("connection refused")
	}
	var stats LoadStats
	for _, row := range rows {
		key := EnrollmentKey(row)
		st := s.apply(func() bool { return s.enrollments[key] }, func() { s.enrollments[key] = true })
		stats.Inserted += st.Inserted
		stats.Skipped += st.Skipped
	}
	return stats, nil
}

func (s *memStore) InsertGrades(_ context.Context, rows []models.Grade) (LoadStats, error) {
	if s.failAt == EntityGrades {
		return LoadStats{}, errors.New("connection refused")
	}
	var stats LoadStats
	for _, row := range rows {
		row := row
		st := s.apply(func() bool { return s.grades[row.ID] }, func() { s.grades[row.ID] = true })
		stats.Inserted += st.Inserted
		stats.Skipped += st.Skipped
	}
	return stats, nil
}

func (s *memStore) InsertAttendance(_ context.Context, rows []models.Attendance) (LoadStats, error) {
	if s.failAt == EntityAttendance {
		return LoadStats{}, errors.New("connection refused")
	}
	var stats LoadStats
	for _, row := range rows {
		row := row
		st := s.apply(func() bool { return s.attendance[row.ID] }, func() { s.attendance[row.ID] = true })
		stats.Inserted += st.Inserted
		stats.Skipped += st.Skipped
	}
	return stats, nil
}

func writeSources(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"students.csv": strings.Join([]string{
			"student_id,student_number,first_name,last_name,date_of_birth,email,status",
			"S1,202001,Alice,Nguyen,2000-03-12,alice@example.com,active",
			"S2,202002,Bob,Okafor,1999-11-02,bob@example.com,active",
			"S3,12,Eve,Short,2001-01-01,eve@example.com,active",
		}, "\n"),
		"courses.csv": strings.Join([]string{
			"course_id,course_code,course_name,credits,status",
			"C1,MATH101,Calculus,6,active",
			"C2,PHYS101,Mechanics,6,active",
		}, "\n"),
		"enrollments.csv": strings.Join([]string{
			"enrollment_id,student_id,course_id,academic_year,term,enrollment_date",
			"E1,S1,C1,2024-2025,1,2024-09-01",
			"E2,S2,C1,2024-2025,1,2024-09-01",
			"E3,S3,C2,2024-2025,1,2024-09-01",
		}, "\n"),
		"grades.csv": strings.Join([]string{
			"grades_id,enrollment_id,grade_type,grade_value,grade_date",
			"G1,E1,exam,90,2025-01-10",
			"G2,E3,exam,80,2025-01-10",
		}, "\n"),
		"attendance.csv": strings.Join([]string{
			"attendance_id,enrollment_id,attendance_date,status",
			"A1,E1,2025-02-03,present",
			"A2,E2,2025-02-03,late",
		}, "\n"),
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content+"\n"), 0o644))
	}
	return dir
}

func TestPipelineRunContainsRowFailures(t *testing.T) {
	dir := writeSources(t)
	store := newMemStore()
	ref := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	p := NewPipeline(store, nil, nil, ',', ref)

	report, err := p.Run(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, report.Stages, 5)
	assert.Equal(t, EntityAttendance, report.LastCompletedStage)
	assert.Nil(t, report.Fatal)
	assert.Equal(t, ref, report.ReferenceDate)

	stages := map[Entity]StageReport{}
	for _, stage := range report.Stages {
		stages[stage.Entity] = stage
	}

	// S3 fails the student_number format rule; its enrollment E3 and the
	// grade on E3 cascade out as referential rejections.
	assert.Equal(t, 3, stages[EntityStudents].Read)
	assert.Equal(t, 2, stages[EntityStudents].Inserted)
	assert.Equal(t, 1, stages[EntityStudents].Rejected)
	assert.Equal(t, 2, stages[EntityEnrollments].Inserted)
	assert.Equal(t, 1, stages[EntityEnrollments].Rejected)
	assert.Equal(t, 1, stages[EntityGrades].Inserted)
	assert.Equal(t, 1, stages[EntityGrades].Rejected)
	assert.Equal(t, 2, stages[EntityAttendance].Inserted)
	assert.Len(t, report.Rejections, 3)
}

func TestPipelineRerunIsIdempotent(t *testing.T) {
	dir := writeSources(t)
	store := newMemStore()
	ref := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	p := NewPipeline(store, nil, nil, ',', ref)

	_, err := p.Run(context.Background(), dir)
	require.NoError(t, err)

	report, err := p.Run(context.Background(), dir)
	require.NoError(t, err)
	for _, stage := range report.Stages {
		assert.Zero(t, stage.Inserted, "stage %s inserted on re-run", stage.Entity)
	}
	assert.Len(t, store.students, 2)
	assert.Len(t, store.enrollments, 2)
	assert.Len(t, store.grades, 1)
}

func TestPipelineStoreFailureAbortsRemainingStages(t *testing.T) {
	dir := writeSources(t)
	store := newMemStore()
	store.failAt = EntityEnrollments
	ref := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	p := NewPipeline(store, nil, NewMetrics(), ',', ref)

	report, err := p.Run(context.Background(), dir)
	require.Error(t, err)
	require.NotNil(t, report.Fatal)
	assert.Equal(t, appErrors.ErrStore.Code, report.Fatal.Code)
	assert.Equal(t, EntityCourses, report.LastCompletedStage)
	assert.Len(t, report.Stages, 2)

	// Stages before the failure stay committed.
	assert.Len(t, store.students, 2)
	assert.Len(t, store.courses, 2)
	assert.Empty(t, store.grades)
	assert.Empty(t, store.attendance)
}

func TestPipelineMissingSourceIsFatal(t *testing.T) {
	dir := t.TempDir()
	p := NewPipeline(newMemStore(), nil, nil, ',', time.Time{})
	report, err := p.Run(context.Background(), dir)
	require.Error(t, err)
	require.NotNil(t, report.Fatal)
	assert.Empty(t, report.Stages)
}
