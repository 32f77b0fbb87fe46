package repository

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dputra/student-records-api/internal/models"
)

func tableDefinition(t *testing.T, schema, table string) string {
	t.Helper()
	start := strings.Index(schema, "CREATE TABLE IF NOT EXISTS "+table+" (")
	require.NotEqual(t, -1, start, "table %s missing from schema", table)
	end := strings.Index(schema[start:], ");")
	require.NotEqual(t, -1, end, "table %s definition not terminated", table)
	return schema[start : start+end]
}

// Every status the row validation layer accepts must also pass the store's
// check constraints, otherwise a valid batch aborts its stage at insert
// time.
func TestSchemaChecksAllowEveryValidEnumValue(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "scripts", "schema.sql"))
	require.NoError(t, err)
	schema := string(raw)

	students := tableDefinition(t, schema, "students")
	for _, status := range []models.StudentStatus{
		models.StudentStatusActive,
		models.StudentStatusInactive,
		models.StudentStatusGraduated,
	} {
		assert.Contains(t, students, "'"+string(status)+"'", "students check must allow %q", status)
	}

	courses := tableDefinition(t, schema, "courses")
	for _, status := range []models.CourseStatus{models.CourseStatusActive, models.CourseStatusInactive} {
		assert.Contains(t, courses, "'"+string(status)+"'", "courses check must allow %q", status)
	}

	grades := tableDefinition(t, schema, "grades")
	weights := tableDefinition(t, schema, "grade_weights")
	for _, gradeType := range []models.GradeType{
		models.GradeTypeAssignment,
		models.GradeTypeTest,
		models.GradeTypeExam,
	} {
		assert.Contains(t, grades, "'"+string(gradeType)+"'", "grades check must allow %q", gradeType)
		assert.Contains(t, weights, "'"+string(gradeType)+"'", "grade_weights check must allow %q", gradeType)
	}

	attendance := tableDefinition(t, schema, "attendance")
	for _, status := range []models.AttendanceStatus{
		models.AttendanceStatusPresent,
		models.AttendanceStatusAbsent,
		models.AttendanceStatusLate,
	} {
		assert.Contains(t, attendance, "'"+string(status)+"'", "attendance check must allow %q", status)
	}
}
