package models

// EnrollmentGradeRow is one grade joined with its enrollment and course
// context, the raw material for transcript and GPA aggregation.
type EnrollmentGradeRow struct {
	StudentID     string `db:"student_id" json:"student_id"`
	StudentNumber int    `db:"student_number" json:"student_number"`
	FirstName     string `db:"first_name" json:"first_name"`
	LastName      string `db:"last_name" json:"last_name"`

	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	CourseCode   string    `db:"course_code" json:"course_code"`
	CourseName   string    `db:"course_name" json:"course_name"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	Term         int       `db:"term" json:"term"`
	GradeType    GradeType `db:"grade_type" json:"grade_type"`
	GradeValue   int       `db:"grade_value" json:"grade_value"`
}

// TranscriptCourse is a per-enrollment line on a student transcript.
type TranscriptCourse struct {
	EnrollmentID    string  `json:"enrollment_id"`
	CourseCode      string  `json:"course_code"`
	CourseName      string  `json:"course_name"`
	AcademicYear    string  `json:"academic_year"`
	Term            int     `json:"term"`
	GradeCount      int     `json:"grade_count"`
	WeightedAverage float64 `json:"weighted_average"`
	Status          string  `json:"status"`
}

// StudentTranscript aggregates a student's weighted results.
type StudentTranscript struct {
	StudentID     string             `json:"student_id"`
	StudentNumber int                `json:"student_number"`
	FirstName     string             `json:"first_name"`
	LastName      string             `json:"last_name"`
	Courses       []TranscriptCourse `json:"courses"`
	GPA           *float64           `json:"gpa,omitempty"`
	GradePoint    *float64           `json:"grade_point,omitempty"`
}

// RosterRow is one student on a course roster with attendance counts.
type RosterRow struct {
	EnrollmentID  string `db:"enrollment_id" json:"enrollment_id"`
	StudentID     string `db:"student_id" json:"student_id"`
	StudentNumber int    `db:"student_number" json:"student_number"`
	FirstName     string `db:"first_name" json:"first_name"`
	LastName      string `db:"last_name" json:"last_name"`
	AcademicYear  string `db:"academic_year" json:"academic_year"`
	Term          int    `db:"term" json:"term"`
	PresentCount  int    `db:"present_count" json:"present_count"`
	AbsentCount   int    `db:"absent_count" json:"absent_count"`
	LateCount     int    `db:"late_count" json:"late_count"`
}

// CourseRoster lists enrolled students for one course.
type CourseRoster struct {
	CourseID   string      `json:"course_id"`
	CourseCode string      `json:"course_code"`
	CourseName string      `json:"course_name"`
	Rows       []RosterRow `json:"rows"`
}

// AttendanceSummaryRow aggregates attendance per enrollment for a student.
type AttendanceSummaryRow struct {
	EnrollmentID   string  `db:"enrollment_id" json:"enrollment_id"`
	CourseCode     string  `db:"course_code" json:"course_code"`
	CourseName     string  `db:"course_name" json:"course_name"`
	PresentCount   int     `db:"present_count" json:"present_count"`
	AbsentCount    int     `db:"absent_count" json:"absent_count"`
	LateCount      int     `db:"late_count" json:"late_count"`
	TotalSessions  int     `db:"total_sessions" json:"total_sessions"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// StudentAttendanceSummary is the per-student attendance view.
type StudentAttendanceSummary struct {
	StudentID     string                 `json:"student_id"`
	StudentNumber int                    `json:"student_number"`
	Rows          []AttendanceSummaryRow `json:"rows"`
}

// LowAttendanceRow flags a student below the attendance threshold.
type LowAttendanceRow struct {
	StudentID      string  `db:"student_id" json:"student_id"`
	StudentNumber  int     `db:"student_number" json:"student_number"`
	FirstName      string  `db:"first_name" json:"first_name"`
	LastName       string  `db:"last_name" json:"last_name"`
	CourseCode     string  `db:"course_code" json:"course_code"`
	TotalSessions  int     `db:"total_sessions" json:"total_sessions"`
	PresentCount   int     `db:"present_count" json:"present_count"`
	AttendanceRate float64 `db:"attendance_rate" json:"attendance_rate"`
}

// TopStudentRow ranks a student by GPA.
type TopStudentRow struct {
	Rank          int     `json:"rank"`
	StudentID     string  `json:"student_id"`
	StudentNumber int     `json:"student_number"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	GPA           float64 `json:"gpa"`
	GradePoint    float64 `json:"grade_point"`
	CourseCount   int     `json:"course_count"`
}
