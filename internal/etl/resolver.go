package etl

import (
	"fmt"

	appErrors "github.com/dputra/student-records-api/pkg/errors"

	"github.com/dputra/student-records-api/internal/models"
)

// Resolver holds the valid parent-key sets for the current run. Children
// are admitted only when every foreign key is already present in the
// corresponding set, which forces the parent-before-child stage order.
type Resolver struct {
	students    map[string]struct{}
	courses     map[string]struct{}
	enrollments map[string]struct{}
}

// NewResolver returns an empty resolver for one pipeline run.
func NewResolver() *Resolver {
	return &Resolver{}
}

// AddStudents registers accepted student keys.
func (r *Resolver) AddStudents(rows []models.Student) {
	r.students = make(map[string]struct{}, len(rows))
	for _, row := range rows {
		r.students[row.ID] = struct{}{}
	}
}

// AddCourses registers accepted course keys.
func (r *Resolver) AddCourses(rows []models.Course) {
	r.courses = make(map[string]struct{}, len(rows))
	for _, row := range rows {
		r.courses[row.ID] = struct{}{}
	}
}

// AddEnrollments registers accepted enrollment keys.
func (r *Resolver) AddEnrollments(rows []models.Enrollment) {
	r.enrollments = make(map[string]struct{}, len(rows))
	for _, row := range rows {
		r.enrollments[row.ID] = struct{}{}
	}
}

func referentialViolation(field, key string) Violation {
	return Violation{
		Field:   field,
		Rule:    RuleReference,
		Code:    appErrors.ErrReferential.Code,
		Message: fmt.Sprintf("missing parent reference: %s %q", field, key),
	}
}

// ResolveEnrollments admits enrollments whose student and course both
// exist in the accepted parent sets. Calling it before both parent stages
// ran is a sequencing bug and fails the run.
func (r *Resolver) ResolveEnrollments(rows []models.Enrollment) ([]models.Enrollment, []Rejection, error) {
	if r.students == nil || r.courses == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrInternal, "parent keys not registered: students and courses must resolve before enrollments")
	}
	accepted := make([]models.Enrollment, 0, len(rows))
	var rejected []Rejection
	for _, row := range rows {
		var violations []Violation
		if _, ok := r.students[row.StudentID]; !ok {
			violations = append(violations, referentialViolation("student_id", row.StudentID))
		}
		if _, ok := r.courses[row.CourseID]; !ok {
			violations = append(violations, referentialViolation("course_id", row.CourseID))
		}
		if len(violations) > 0 {
			rejected = append(rejected, Rejection{Entity: EntityEnrollments, RowID: row.ID, Violations: violations})
			continue
		}
		accepted = append(accepted, row)
	}
	return accepted, rejected, nil
}

// ResolveGrades admits grades whose enrollment exists.
func (r *Resolver) ResolveGrades(rows []models.Grade) ([]models.Grade, []Rejection, error) {
	if r.enrollments == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrInternal, "parent keys not registered: enrollments must resolve before grades")
	}
	accepted := make([]models.Grade, 0, len(rows))
	var rejected []Rejection
	for _, row := range rows {
		if _, ok := r.enrollments[row.EnrollmentID]; !ok {
			rejected = append(rejected, Rejection{
				Entity:     EntityGrades,
				RowID:      row.ID,
				Violations: []Violation{referentialViolation("enrollment_id", row.EnrollmentID)},
			})
			continue
		}
		accepted = append(accepted, row)
	}
	return accepted, rejected, nil
}

// ResolveAttendance admits attendance rows whose enrollment exists.
func (r *Resolver) ResolveAttendance(rows []models.Attendance) ([]models.Attendance, []Rejection, error) {
	if r.enrollments == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrInternal, "parent keys not registered: enrollments must resolve before attendance")
	}
	accepted := make([]models.Attendance, 0, len(rows))
	var rejected []Rejection
	for _, row := range rows {
		if _, ok := r.enrollments[row.EnrollmentID]; !ok {
			rejected = append(rejected, Rejection{
				Entity:     EntityAttendance,
				RowID:      row.ID,
				Violations: []Violation{referentialViolation("enrollment_id", row.EnrollmentID)},
			})
			continue
		}
		accepted = append(accepted, row)
	}
	return accepted, rejected, nil
}
