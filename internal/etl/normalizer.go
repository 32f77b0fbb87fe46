package etl

import (
	"fmt"

	appErrors "github.com/dputra/student-records-api/pkg/errors"

	"github.com/dputra/student-records-api/internal/models"
)

// Deduplication collapses rows colliding on an entity's uniqueness key.
// The first occurrence in input order wins; every later collision is
// reported as a UniquenessError naming the colliding key, never silently
// dropped. Values were already canonicalized during validation so
// logically identical keys compare equal.

func uniquenessRejection(entity Entity, rowID, keyField, key string) Rejection {
	return Rejection{
		Entity: entity,
		RowID:  rowID,
		Violations: []Violation{{
			Field:   keyField,
			Rule:    RuleUnique,
			Code:    appErrors.ErrUniqueness.Code,
			Message: fmt.Sprintf("duplicate %s %q, first occurrence kept", keyField, key),
		}},
	}
}

// DedupeStudents enforces student_number uniqueness.
func DedupeStudents(rows []models.Student) ([]models.Student, []Rejection) {
	seen := make(map[int]bool, len(rows))
	kept := make([]models.Student, 0, len(rows))
	var rejected []Rejection
	for _, row := range rows {
		if seen[row.StudentNumber] {
			rejected = append(rejected, uniquenessRejection(EntityStudents, row.ID, "student_number", fmt.Sprintf("%06d", row.StudentNumber)))
			continue
		}
		seen[row.StudentNumber] = true
		kept = append(kept, row)
	}
	return kept, rejected
}

// DedupeCourses enforces course_code uniqueness.
func DedupeCourses(rows []models.Course) ([]models.Course, []Rejection) {
	seen := make(map[string]bool, len(rows))
	kept := make([]models.Course, 0, len(rows))
	var rejected []Rejection
	for _, row := range rows {
		if seen[row.CourseCode] {
			rejected = append(rejected, uniquenessRejection(EntityCourses, row.ID, "course_code", row.CourseCode))
			continue
		}
		seen[row.CourseCode] = true
		kept = append(kept, row)
	}
	return kept, rejected
}

// EnrollmentKey is the composite uniqueness key for enrollments.
func EnrollmentKey(row models.Enrollment) string {
	return fmt.Sprintf("%s|%s|%s|%d", row.StudentID, row.CourseID, row.AcademicYear, row.Term)
}

// DedupeEnrollments enforces the (student, course, academic year, term)
// composite uniqueness key.
func DedupeEnrollments(rows []models.Enrollment) ([]models.Enrollment, []Rejection) {
	seen := make(map[string]bool, len(rows))
	kept := make([]models.Enrollment, 0, len(rows))
	var rejected []Rejection
	for _, row := range rows {
		key := EnrollmentKey(row)
		if seen[key] {
			rejected = append(rejected, uniquenessRejection(EntityEnrollments, row.ID, "student_id,course_id,academic_year,term", key))
			continue
		}
		seen[key] = true
		kept = append(kept, row)
	}
	return kept, rejected
}

// DedupeGrades enforces source row id uniqueness so re-reads of the same
// file cannot double-count an assessment.
func DedupeGrades(rows []models.Grade) ([]models.Grade, []Rejection) {
	seen := make(map[string]bool, len(rows))
	kept := make([]models.Grade, 0, len(rows))
	var rejected []Rejection
	for _, row := range rows {
		if seen[row.ID] {
			rejected = append(rejected, uniquenessRejection(EntityGrades, row.ID, "grades_id", row.ID))
			continue
		}
		seen[row.ID] = true
		kept = append(kept, row)
	}
	return kept, rejected
}

// DedupeAttendance enforces source row id uniqueness.
func DedupeAttendance(rows []models.Attendance) ([]models.Attendance, []Rejection) {
	seen := make(map[string]bool, len(rows))
	kept := make([]models.Attendance, 0, len(rows))
	var rejected []Rejection
	for _, row := range rows {
		if seen[row.ID] {
			rejected = append(rejected, uniquenessRejection(EntityAttendance, row.ID, "attendance_id", row.ID))
			continue
		}
		seen[row.ID] = true
		kept = append(kept, row)
	}
	return kept, rejected
}
