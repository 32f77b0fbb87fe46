package etl

import (
	"strconv"
	"strings"
	"time"

	"github.com/dputra/student-records-api/internal/models"
)

// RawRow is one extracted record: field name to raw text, plus its
// position in the source for rejection reporting.
type RawRow struct {
	Line   int
	Fields map[string]string
}

// Validator applies the per-entity rule sets against raw rows and coerces
// accepted rows into canonical typed values. The reference date drives the
// derived rules (age, plausible years) so runs are reproducible.
type Validator struct {
	ref time.Time
}

// NewValidator builds a Validator pinned to a reference date.
func NewValidator(ref time.Time) *Validator {
	return &Validator{ref: ref}
}

// check evaluates every rule and reports all violations, not just the
// first, so a rejection names everything the row got wrong.
func (v *Validator) check(entity Entity, idField string, rules []Rule, row RawRow) (Rejection, bool) {
	var violations []Violation
	for _, rule := range rules {
		if violation := rule.Evaluate(row.Fields[rule.Field], v.ref); violation != nil {
			violations = append(violations, *violation)
		}
	}
	if len(violations) == 0 {
		return Rejection{}, true
	}
	return Rejection{
		Entity:     entity,
		RowID:      strings.TrimSpace(row.Fields[idField]),
		Line:       row.Line,
		Violations: violations,
	}, false
}

// Students validates and coerces raw student rows.
func (v *Validator) Students(rows []RawRow) ([]models.Student, []Rejection) {
	accepted := make([]models.Student, 0, len(rows))
	var rejected []Rejection
	rules := studentRules()
	for _, row := range rows {
		if rejection, ok := v.check(EntityStudents, "student_id", rules, row); !ok {
			rejected = append(rejected, rejection)
			continue
		}
		number, _ := strconv.Atoi(field(row, "student_number"))
		dob, _ := ParseDate(field(row, "date_of_birth"))
		accepted = append(accepted, models.Student{
			ID:            field(row, "student_id"),
			StudentNumber: number,
			FirstName:     field(row, "first_name"),
			LastName:      field(row, "last_name"),
			DateOfBirth:   dob,
			Email:         strings.ToLower(field(row, "email")),
			Status:        models.StudentStatus(lower(row, "status")),
		})
	}
	return accepted, rejected
}

// Courses validates and coerces raw course rows.
func (v *Validator) Courses(rows []RawRow) ([]models.Course, []Rejection) {
	accepted := make([]models.Course, 0, len(rows))
	var rejected []Rejection
	rules := courseRules()
	for _, row := range rows {
		if rejection, ok := v.check(EntityCourses, "course_id", rules, row); !ok {
			rejected = append(rejected, rejection)
			continue
		}
		credits, _ := strconv.Atoi(field(row, "credits"))
		accepted = append(accepted, models.Course{
			ID:         field(row, "course_id"),
			CourseCode: strings.ToUpper(field(row, "course_code")),
			CourseName: field(row, "course_name"),
			Credits:    credits,
			Status:     models.CourseStatus(lower(row, "status")),
		})
	}
	return accepted, rejected
}

// Enrollments validates and coerces raw enrollment rows.
func (v *Validator) Enrollments(rows []RawRow) ([]models.Enrollment, []Rejection) {
	accepted := make([]models.Enrollment, 0, len(rows))
	var rejected []Rejection
	rules := enrollmentRules()
	for _, row := range rows {
		if rejection, ok := v.check(EntityEnrollments, "enrollment_id", rules, row); !ok {
			rejected = append(rejected, rejection)
			continue
		}
		term, _ := strconv.Atoi(field(row, "term"))
		date, _ := ParseDate(field(row, "enrollment_date"))
		accepted = append(accepted, models.Enrollment{
			ID:             field(row, "enrollment_id"),
			StudentID:      field(row, "student_id"),
			CourseID:       field(row, "course_id"),
			AcademicYear:   canonicalAcademicYear(field(row, "academic_year")),
			Term:           term,
			EnrollmentDate: date,
		})
	}
	return accepted, rejected
}

// Grades validates and coerces raw grade rows.
func (v *Validator) Grades(rows []RawRow) ([]models.Grade, []Rejection) {
	accepted := make([]models.Grade, 0, len(rows))
	var rejected []Rejection
	rules := gradeRules()
	for _, row := range rows {
		if rejection, ok := v.check(EntityGrades, "grades_id", rules, row); !ok {
			rejected = append(rejected, rejection)
			continue
		}
		value, _ := strconv.Atoi(field(row, "grade_value"))
		date, _ := ParseDate(field(row, "grade_date"))
		accepted = append(accepted, models.Grade{
			ID:           field(row, "grades_id"),
			EnrollmentID: field(row, "enrollment_id"),
			GradeType:    models.GradeType(lower(row, "grade_type")),
			GradeValue:   value,
			GradeDate:    date,
		})
	}
	return accepted, rejected
}

// Attendance validates and coerces raw attendance rows.
func (v *Validator) Attendance(rows []RawRow) ([]models.Attendance, []Rejection) {
	accepted := make([]models.Attendance, 0, len(rows))
	var rejected []Rejection
	rules := attendanceRules()
	for _, row := range rows {
		if rejection, ok := v.check(EntityAttendance, "attendance_id", rules, row); !ok {
			rejected = append(rejected, rejection)
			continue
		}
		recorded, _ := ParseTimestamp(field(row, "attendance_date"))
		accepted = append(accepted, models.Attendance{
			ID:           field(row, "attendance_id"),
			EnrollmentID: field(row, "enrollment_id"),
			Status:       models.AttendanceStatus(lower(row, "status")),
			RecordedAt:   recorded,
		})
	}
	return accepted, rejected
}

func field(row RawRow, name string) string {
	return strings.TrimSpace(row.Fields[name])
}

func lower(row RawRow, name string) string {
	return strings.ToLower(field(row, name))
}

// canonicalAcademicYear strips whitespace around the year pair so
// representational variants compare equal on the enrollment key.
func canonicalAcademicYear(value string) string {
	parts := strings.Split(value, "-")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, "-")
}
