package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dputra/student-records-api/internal/models"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentColumns() []string {
	return []string{"id", "student_number", "first_name", "last_name", "date_of_birth", "email", "status", "created_at", "updated_at"}
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows(studentColumns()).
		AddRow("S1", 202001, "Alice", "Nguyen", time.Now(), "alice@example.com", "active", time.Now(), time.Now())
	mock.ExpectQuery(`(?s)SELECT s\.id, s\.student_number, .+ FROM students s WHERE 1=1 AND s\.status = \$1 ORDER BY s\.created_at DESC LIMIT 20 OFFSET 0`).
		WithArgs(models.StudentStatusActive).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students s WHERE 1=1 AND s.status = $1")).
		WithArgs(models.StudentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{Status: models.StudentStatusActive})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(0, 1))

	student := &models.Student{StudentNumber: 202001, FirstName: "Alice", LastName: "Nguyen", DateOfBirth: time.Now(), Email: "alice@example.com", Status: models.StudentStatusActive}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.NotEmpty(t, student.ID)
	assert.False(t, student.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByNumber(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE student_number = $1 LIMIT 1")).
		WithArgs(202001).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))
	exists, err := repo.ExistsByNumber(context.Background(), 202001)
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE student_number = $1 LIMIT 1")).
		WithArgs(999999).
		WillReturnError(sql.ErrNoRows)
	exists, err = repo.ExistsByNumber(context.Background(), 999999)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateStatusNotFound(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students SET status").
		WithArgs("missing", models.StudentStatusInactive, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", models.StudentStatusInactive)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
