package models

import "time"

// Enrollment registers a student into a course for one academic year and
// term. The (student_id, course_id, academic_year, term) tuple is unique.
type Enrollment struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	CourseID       string    `db:"course_id" json:"course_id"`
	AcademicYear   string    `db:"academic_year" json:"academic_year"`
	Term           int       `db:"term" json:"term"`
	EnrollmentDate time.Time `db:"enrollment_date" json:"enrollment_date"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentNumber int    `db:"student_number" json:"student_number"`
	StudentName   string `db:"student_name" json:"student_name"`
	CourseCode    string `db:"course_code" json:"course_code"`
	CourseName    string `db:"course_name" json:"course_name"`
}
