package etl

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	appErrors "github.com/dputra/student-records-api/pkg/errors"
)

func TestMetricsCountRejectedRowsOncePerRow(t *testing.T) {
	m := NewMetrics()

	m.observeRejections([]Rejection{
		{
			Entity: EntityStudents,
			RowID:  "S1",
			Violations: []Violation{
				{Field: "student_number", Code: appErrors.ErrFormat.Code},
				{Field: "email", Code: appErrors.ErrFormat.Code},
				{Field: "status", Code: appErrors.ErrRange.Code},
			},
		},
		{
			Entity:     EntityGrades,
			RowID:      "G1",
			Violations: []Violation{{Field: "grade_value", Code: appErrors.ErrRange.Code}},
		},
	})

	// One row, three violations: still a single rejected row under the
	// first violation's code.
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rowsRejected.WithLabelValues("students", appErrors.ErrFormat.Code)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.rowsRejected.WithLabelValues("students", appErrors.ErrRange.Code)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rowsRejected.WithLabelValues("grades", appErrors.ErrRange.Code)))
}

func TestMetricsObserveRunOutcomes(t *testing.T) {
	m := NewMetrics()

	m.observeRun(false)
	m.observeRun(false)
	m.observeRun(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("fatal")))
}
