// Package etl implements the batch pipeline that turns raw tabular input
// into consistent relational state: per-row validation, normalization and
// deduplication, referential resolution, and dependency-ordered loading.
package etl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/dputra/student-records-api/pkg/errors"
)

// Entity names one of the five tabular sources, in load order.
type Entity string

const (
	EntityStudents    Entity = "students"
	EntityCourses     Entity = "courses"
	EntityEnrollments Entity = "enrollments"
	EntityGrades      Entity = "grades"
	EntityAttendance  Entity = "attendance"
)

// LoadOrder lists entities parent-first; children never load before the
// entities they reference.
var LoadOrder = []Entity{EntityStudents, EntityCourses, EntityEnrollments, EntityGrades, EntityAttendance}

// RuleKind tags the closed set of validation rule variants.
type RuleKind string

const (
	RuleFormat    RuleKind = "format"
	RuleRange     RuleKind = "range"
	RuleEnum      RuleKind = "enum"
	RuleDerived   RuleKind = "derived"
	RuleUnique    RuleKind = "unique"
	RuleReference RuleKind = "reference"
)

// Violation is one failed rule on one field. Code carries the error
// taxonomy class (FORMAT_ERROR, RANGE_ERROR, UNIQUENESS_ERROR,
// REFERENTIAL_ERROR).
type Violation struct {
	Field   string   `json:"field"`
	Rule    RuleKind `json:"rule"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
}

// Rejection is a row excluded from the load set, with every violated rule
// attached so rejection reports stay actionable.
type Rejection struct {
	Entity     Entity      `json:"entity"`
	RowID      string      `json:"row_id"`
	Line       int         `json:"line,omitempty"`
	Violations []Violation `json:"violations"`
}

// DerivedCheck evaluates a business rule computed from the field value and
// the injected reference date, never the wall clock.
type DerivedCheck func(value string, ref time.Time) (ok bool, code, detail string)

// Rule is one tagged validation rule variant. Exactly the fields matching
// Kind are consulted by Evaluate.
type Rule struct {
	Field   string
	Kind    RuleKind
	Pattern *regexp.Regexp // format
	Min     int            // range
	Max     int            // range
	Allowed []string       // enum, lowercase canonical values
	Check   DerivedCheck   // derived
	Message string
}

// Evaluate interprets the rule against a raw field value, returning nil on
// acceptance. Enum comparison is case-insensitive; the normalizer later
// canonicalizes casing on accepted rows.
func (r Rule) Evaluate(value string, ref time.Time) *Violation {
	value = strings.TrimSpace(value)
	switch r.Kind {
	case RuleFormat:
		if !r.Pattern.MatchString(value) {
			return &Violation{Field: r.Field, Rule: RuleFormat, Code: appErrors.ErrFormat.Code, Message: r.Message}
		}
	case RuleRange:
		n, err := strconv.Atoi(value)
		if err != nil {
			return &Violation{Field: r.Field, Rule: RuleRange, Code: appErrors.ErrFormat.Code, Message: fmt.Sprintf("%s must be a number", r.Field)}
		}
		if n < r.Min || n > r.Max {
			return &Violation{Field: r.Field, Rule: RuleRange, Code: appErrors.ErrRange.Code, Message: r.Message}
		}
	case RuleEnum:
		lowered := strings.ToLower(value)
		for _, allowed := range r.Allowed {
			if lowered == allowed {
				return nil
			}
		}
		return &Violation{Field: r.Field, Rule: RuleEnum, Code: appErrors.ErrRange.Code, Message: r.Message}
	case RuleDerived:
		ok, code, detail := r.Check(value, ref)
		if !ok {
			message := r.Message
			if detail != "" {
				message = detail
			}
			return &Violation{Field: r.Field, Rule: RuleDerived, Code: code, Message: message}
		}
	}
	return nil
}

var (
	idPattern    = regexp.MustCompile(`^\S+$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	namePattern  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z \-']{1,49}$`)
	codePattern  = regexp.MustCompile(`^[A-Za-z0-9\-_]{2,20}$`)
)

// CheckStudentNumber verifies the YYYYRR student number: six digits whose
// year prefix is plausible relative to the reference date.
func CheckStudentNumber(value string, ref time.Time) (bool, string, string) {
	value = strings.TrimSpace(value)
	if len(value) != 6 {
		return false, appErrors.ErrFormat.Code, "student_number must be exactly 6 digits (YYYYRR)"
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return false, appErrors.ErrFormat.Code, "student_number must be a 6-digit number"
	}
	year := n / 100
	if year < 1950 || year > ref.Year() {
		return false, appErrors.ErrRange.Code, fmt.Sprintf("student_number year must be between 1950 and %d", ref.Year())
	}
	return true, "", ""
}

// CheckDateOfBirth verifies the birth date implies an age between 18 and
// 100 at the reference date.
func CheckDateOfBirth(value string, ref time.Time) (bool, string, string) {
	dob, err := ParseDate(value)
	if err != nil {
		return false, appErrors.ErrFormat.Code, "date_of_birth must be a valid date (YYYY-MM-DD)"
	}
	age := ref.Year() - dob.Year()
	if ref.Month() < dob.Month() || (ref.Month() == dob.Month() && ref.Day() < dob.Day()) {
		age--
	}
	if age < 18 {
		return false, appErrors.ErrRange.Code, "student must be at least 18 years old"
	}
	if age > 100 {
		return false, appErrors.ErrRange.Code, "invalid date of birth (age > 100)"
	}
	return true, "", ""
}

// CheckAcademicYear verifies the YYYY-YYYY academic year where the end
// year equals start+1 and the start year is plausible.
func CheckAcademicYear(value string, ref time.Time) (bool, string, string) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, "-")
	if len(parts) != 2 {
		return false, appErrors.ErrFormat.Code, "academic_year must be in format YYYY-YYYY (e.g. 2024-2025)"
	}
	start, err1 := strconv.Atoi(parts[0])
	end, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || len(parts[0]) != 4 || len(parts[1]) != 4 {
		return false, appErrors.ErrFormat.Code, "academic_year must contain two 4-digit years"
	}
	if end != start+1 {
		return false, appErrors.ErrFormat.Code, fmt.Sprintf("academic_year end must be %d (start year + 1)", start+1)
	}
	if start < 2000 || start > ref.Year()+5 {
		return false, appErrors.ErrRange.Code, fmt.Sprintf("academic_year start must be between 2000 and %d", ref.Year()+5)
	}
	return true, "", ""
}

// CheckDate verifies a parseable calendar date.
func CheckDate(value string, _ time.Time) (bool, string, string) {
	if _, err := ParseDate(value); err != nil {
		return false, appErrors.ErrFormat.Code, "invalid date format, use YYYY-MM-DD"
	}
	return true, "", ""
}

// CheckTimestamp verifies a parseable timestamp or date.
func CheckTimestamp(value string, _ time.Time) (bool, string, string) {
	if _, err := ParseTimestamp(value); err != nil {
		return false, appErrors.ErrFormat.Code, "invalid timestamp format"
	}
	return true, "", ""
}

// ParseDate accepts the canonical YYYY-MM-DD plus the YYYY/MM/DD
// separator variant, normalizing both to the same value.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(strings.ReplaceAll(value, "/", "-"))
	return time.Parse("2006-01-02", value)
}

// ParseTimestamp accepts date-only and date-time attendance stamps.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(strings.ReplaceAll(value, "/", "-"))
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func studentRules() []Rule {
	return []Rule{
		{Field: "student_id", Kind: RuleFormat, Pattern: idPattern, Message: "student_id is required"},
		{Field: "student_number", Kind: RuleDerived, Check: CheckStudentNumber},
		{Field: "first_name", Kind: RuleFormat, Pattern: namePattern, Message: "first_name must be 2-50 letters, spaces, or hyphens"},
		{Field: "last_name", Kind: RuleFormat, Pattern: namePattern, Message: "last_name must be 2-50 letters, spaces, or hyphens"},
		{Field: "date_of_birth", Kind: RuleDerived, Check: CheckDateOfBirth},
		{Field: "email", Kind: RuleFormat, Pattern: emailPattern, Message: "invalid email format"},
		{Field: "status", Kind: RuleEnum, Allowed: []string{"active", "inactive", "graduated"}, Message: "status must be one of: active, inactive, graduated"},
	}
}

func courseRules() []Rule {
	return []Rule{
		{Field: "course_id", Kind: RuleFormat, Pattern: idPattern, Message: "course_id is required"},
		{Field: "course_code", Kind: RuleFormat, Pattern: codePattern, Message: "course_code must be 2-20 alphanumeric characters"},
		{Field: "course_name", Kind: RuleFormat, Pattern: regexp.MustCompile(`^.{2,100}$`), Message: "course_name must be 2-100 characters"},
		{Field: "credits", Kind: RuleRange, Min: 1, Max: 30, Message: "credits must be between 1 and 30"},
		{Field: "status", Kind: RuleEnum, Allowed: []string{"active", "inactive"}, Message: "status must be one of: active, inactive"},
	}
}

func enrollmentRules() []Rule {
	return []Rule{
		{Field: "enrollment_id", Kind: RuleFormat, Pattern: idPattern, Message: "enrollment_id is required"},
		{Field: "student_id", Kind: RuleFormat, Pattern: idPattern, Message: "student_id is required"},
		{Field: "course_id", Kind: RuleFormat, Pattern: idPattern, Message: "course_id is required"},
		{Field: "academic_year", Kind: RuleDerived, Check: CheckAcademicYear},
		{Field: "term", Kind: RuleRange, Min: 1, Max: 2, Message: "term must be 1 (Fall) or 2 (Spring)"},
		{Field: "enrollment_date", Kind: RuleDerived, Check: CheckDate},
	}
}

func gradeRules() []Rule {
	return []Rule{
		{Field: "grades_id", Kind: RuleFormat, Pattern: idPattern, Message: "grades_id is required"},
		{Field: "enrollment_id", Kind: RuleFormat, Pattern: idPattern, Message: "enrollment_id is required"},
		{Field: "grade_type", Kind: RuleEnum, Allowed: []string{"test", "assignment", "exam"}, Message: "grade_type must be one of: test, assignment, exam"},
		{Field: "grade_value", Kind: RuleRange, Min: 0, Max: 100, Message: "grade must be between 0 and 100"},
		{Field: "grade_date", Kind: RuleDerived, Check: CheckDate},
	}
}

func attendanceRules() []Rule {
	return []Rule{
		{Field: "attendance_id", Kind: RuleFormat, Pattern: idPattern, Message: "attendance_id is required"},
		{Field: "enrollment_id", Kind: RuleFormat, Pattern: idPattern, Message: "enrollment_id is required"},
		{Field: "attendance_date", Kind: RuleDerived, Check: CheckTimestamp},
		{Field: "status", Kind: RuleEnum, Allowed: []string{"present", "absent", "late"}, Message: "status must be one of: present, absent, late"},
	}
}
