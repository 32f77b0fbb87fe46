package models

import "time"

// StudentStatus represents the lifecycle of a student record.
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "active"
	StudentStatusInactive  StudentStatus = "inactive"
	StudentStatusGraduated StudentStatus = "graduated"
)

// Valid returns true when the status is a supported value.
func (s StudentStatus) Valid() bool {
	switch s {
	case StudentStatusActive, StudentStatusInactive, StudentStatusGraduated:
		return true
	default:
		return false
	}
}

// Student represents a learner registered in the institution.
// Students are never hard-deleted; deactivation flips the status to
// inactive so enrollments keep a valid parent.
type Student struct {
	ID            string        `db:"id" json:"id"`
	StudentNumber int           `db:"student_number" json:"student_number"`
	FirstName     string        `db:"first_name" json:"first_name"`
	LastName      string        `db:"last_name" json:"last_name"`
	DateOfBirth   time.Time     `db:"date_of_birth" json:"date_of_birth"`
	Email         string        `db:"email" json:"email"`
	Status        StudentStatus `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Status    StudentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
