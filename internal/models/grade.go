package models

import "time"

// GradeType identifies which assessment produced a grade.
type GradeType string

const (
	GradeTypeAssignment GradeType = "assignment"
	GradeTypeTest       GradeType = "test"
	GradeTypeExam       GradeType = "exam"
)

// Valid returns true when the grade type is recognized.
func (t GradeType) Valid() bool {
	switch t {
	case GradeTypeAssignment, GradeTypeTest, GradeTypeExam:
		return true
	default:
		return false
	}
}

// Grade is a single assessment result for an enrollment. Values are
// integers in [0,100].
type Grade struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	GradeType    GradeType `db:"grade_type" json:"grade_type"`
	GradeValue   int       `db:"grade_value" json:"grade_value"`
	GradeDate    time.Time `db:"grade_date" json:"grade_date"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// GradeWeight maps a grade type to its contribution percentage. Weights
// across all recognized types sum to 100.
type GradeWeight struct {
	GradeType GradeType `db:"grade_type" json:"grade_type"`
	Weight    int       `db:"weight" json:"weight"`
}
