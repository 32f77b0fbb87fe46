package models

import "time"

// CourseStatus represents whether a course is offered.
type CourseStatus string

const (
	CourseStatusActive   CourseStatus = "active"
	CourseStatusInactive CourseStatus = "inactive"
)

// Valid returns true when the status is a supported value.
func (s CourseStatus) Valid() bool {
	return s == CourseStatusActive || s == CourseStatusInactive
}

// Course represents a unit of study students enroll into.
type Course struct {
	ID         string       `db:"id" json:"id"`
	CourseCode string       `db:"course_code" json:"course_code"`
	CourseName string       `db:"course_name" json:"course_name"`
	Credits    int          `db:"credits" json:"credits"`
	Status     CourseStatus `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	Status    CourseStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
