package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dputra/student-records-api/internal/models"
)

func newAttendanceMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositoryCreateDefaultsRecordedAt(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("INSERT INTO attendance").
		WillReturnResult(sqlmock.NewResult(0, 1))

	record := &models.Attendance{EnrollmentID: "E1", Status: models.AttendanceStatusPresent}
	require.NoError(t, repo.Create(context.Background(), record))
	assert.NotEmpty(t, record.ID)
	assert.False(t, record.RecordedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySummaryByStudent(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"enrollment_id", "course_code", "course_name", "present_count", "absent_count", "late_count", "total_sessions"}).
		AddRow("E1", "MATH101", "Calculus", 8, 1, 1, 10)
	mock.ExpectQuery(`(?s)SELECT e\.id AS enrollment_id, c\.course_code, .+ WHERE e\.student_id = \$1 .+`).
		WithArgs("S1").
		WillReturnRows(rows)

	summary, err := repo.SummaryByStudent(context.Background(), "S1")
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, 8, summary[0].PresentCount)
	assert.Equal(t, 10, summary[0].TotalSessions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryLowAttendance(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "student_number", "first_name", "last_name", "course_code", "total_sessions", "present_count", "attendance_rate"}).
		AddRow("S1", 202001, "Alice", "Nguyen", "MATH101", 10, 5, 60.0)
	mock.ExpectQuery(`(?s)SELECT s\.id AS student_id, .+ HAVING .+ < \$1 .+`).
		WithArgs(75.0).
		WillReturnRows(rows)

	flagged, err := repo.LowAttendance(context.Background(), 75.0)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.InDelta(t, 60.0, flagged[0].AttendanceRate, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListByEnrollment(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"id", "enrollment_id", "status", "recorded_at", "created_at"}).
		AddRow("A1", "E1", "present", time.Now(), time.Now())
	mock.ExpectQuery(`(?s)SELECT id, enrollment_id, status, recorded_at, created_at.+WHERE enrollment_id = \$1.+`).
		WithArgs("E1").
		WillReturnRows(rows)

	records, err := repo.ListByEnrollment(context.Background(), "E1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.AttendanceStatusPresent, records[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
