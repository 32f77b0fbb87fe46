package etl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSourceRequiresHeader(t *testing.T) {
	_, err := ReadSource(strings.NewReader(""), EntityStudents, ',')
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing header row")
}

func TestReadSourceMissingColumnsIsFatal(t *testing.T) {
	src := "student_id,first_name\nS1,Alice\n"
	_, err := ReadSource(strings.NewReader(src), EntityStudents, ',')
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing columns")
	assert.Contains(t, err.Error(), "student_number")
}

func TestReadSourceKeepsLineNumbersAndIgnoresExtras(t *testing.T) {
	src := strings.Join([]string{
		"grades_id,enrollment_id,grade_type,grade_value,grade_date,comment",
		"G1,E1,exam,90,2025-01-10,ignored",
		"G2,E1,test,75,2025-01-11,also ignored",
	}, "\n")
	rows, err := ReadSource(strings.NewReader(src), EntityGrades, ',')
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, 3, rows[1].Line)
	assert.Equal(t, "G2", rows[1].Fields["grades_id"])
	_, hasExtra := rows[0].Fields["comment"]
	assert.False(t, hasExtra)
}

func TestReadSourceCustomDelimiter(t *testing.T) {
	src := "course_id;course_code;course_name;credits;status\nC1;MATH101;Calculus;6;active\n"
	rows, err := ReadSource(strings.NewReader(src), EntityCourses, ';')
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "MATH101", rows[0].Fields["course_code"])
}
