package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dputra/student-records-api/internal/models"
)

func newLoadMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLoadRepositoryCountsInsertedAndSkipped(t *testing.T) {
	db, mock, cleanup := newLoadMock(t)
	defer cleanup()
	repo := NewLoadRepository(db)

	mock.ExpectBegin()
	// First row inserts, second hits the unique key and affects 0 rows.
	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	stats, err := repo.InsertStudents(context.Background(), []models.Student{
		{ID: "S1", StudentNumber: 202001, FirstName: "Alice", LastName: "Nguyen", DateOfBirth: time.Now(), Email: "alice@example.com", Status: models.StudentStatusActive},
		{ID: "S2", StudentNumber: 202001, FirstName: "Dup", LastName: "Licate", DateOfBirth: time.Now(), Email: "dup@example.com", Status: models.StudentStatusActive},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)
	assert.Equal(t, 1, stats.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRepositoryEmptyBatchSkipsTransaction(t *testing.T) {
	db, mock, cleanup := newLoadMock(t)
	defer cleanup()
	repo := NewLoadRepository(db)

	stats, err := repo.InsertGrades(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, stats.Inserted)
	assert.Zero(t, stats.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRepositoryRollsBackStageOnFailure(t *testing.T) {
	db, mock, cleanup := newLoadMock(t)
	defer cleanup()
	repo := NewLoadRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.InsertEnrollments(context.Background(), []models.Enrollment{
		{ID: "E1", StudentID: "S1", CourseID: "C1", AcademicYear: "2024-2025", Term: 1, EnrollmentDate: time.Now()},
		{ID: "E2", StudentID: "S2", CourseID: "C1", AcademicYear: "2024-2025", Term: 1, EnrollmentDate: time.Now()},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
