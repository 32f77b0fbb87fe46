package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/dputra/student-records-api/internal/models"
	"github.com/dputra/student-records-api/internal/results"
	appErrors "github.com/dputra/student-records-api/pkg/errors"
	"github.com/dputra/student-records-api/pkg/export"
)

type reportRepository interface {
	GradeRowsByStudent(ctx context.Context, studentID string) ([]models.EnrollmentGradeRow, error)
	AllGradeRows(ctx context.Context) ([]models.EnrollmentGradeRow, error)
}

type gradeWeightRepository interface {
	Map(ctx context.Context) (map[models.GradeType]int, error)
}

type reportStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type reportCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type reportAttendanceRepository interface {
	SummaryByStudent(ctx context.Context, studentID string) ([]models.AttendanceSummaryRow, error)
	RosterCounts(ctx context.Context, courseID string) ([]models.RosterRow, error)
	LowAttendance(ctx context.Context, threshold float64) ([]models.LowAttendanceRow, error)
}

// ExportFormat selects the rendering of a downloadable report.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

const defaultAttendanceThreshold = 75.0

// ReportService derives read-only views from loaded data: transcripts,
// rosters, attendance summaries, and GPA rankings. All aggregation is
// computed on read from the relational store; Redis only shortens the
// path for repeated transcript reads.
type ReportService struct {
	grades     reportRepository
	weights    gradeWeightRepository
	students   reportStudentRepository
	courses    reportCourseRepository
	attendance reportAttendanceRepository
	cache      *CacheService
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(
	grades reportRepository,
	weights gradeWeightRepository,
	students reportStudentRepository,
	courses reportCourseRepository,
	attendance reportAttendanceRepository,
	cache *CacheService,
	logger *zap.Logger,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		grades:     grades,
		weights:    weights,
		students:   students,
		courses:    courses,
		attendance: attendance,
		cache:      cache,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
	}
}

// Transcript builds a student's transcript: one line per enrollment with
// the weighted average and pass status, plus overall GPA and grade point.
// Only enrollments with at least one recorded grade appear; grade-less
// enrollments stay on the enrollment listing, not the transcript.
func (s *ReportService) Transcript(ctx context.Context, studentID string) (*models.StudentTranscript, error) {
	cacheKey := "report:transcript:" + studentID
	cached := &models.StudentTranscript{}
	if hit, _ := s.cache.Get(ctx, cacheKey, cached); hit {
		return cached, nil
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	rows, err := s.grades.GradeRowsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade rows")
	}
	weights, err := s.weights.Map(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade weights")
	}

	transcript := &models.StudentTranscript{
		StudentID:     student.ID,
		StudentNumber: student.StudentNumber,
		FirstName:     student.FirstName,
		LastName:      student.LastName,
		Courses:       buildTranscriptCourses(rows, weights),
	}

	var averages []float64
	for _, course := range transcript.Courses {
		if course.GradeCount > 0 {
			averages = append(averages, course.WeightedAverage)
		}
	}
	if gpa, ok := results.GPA(averages); ok {
		point := results.GradePoint(gpa)
		transcript.GPA = &gpa
		transcript.GradePoint = &point
	}

	s.cache.Set(ctx, cacheKey, transcript)
	return transcript, nil
}

// buildTranscriptCourses groups grade rows per enrollment in query order
// and computes each enrollment's weighted average.
func buildTranscriptCourses(rows []models.EnrollmentGradeRow, weights map[models.GradeType]int) []models.TranscriptCourse {
	var order []string
	grouped := make(map[string][]models.EnrollmentGradeRow)
	for _, row := range rows {
		if _, seen := grouped[row.EnrollmentID]; !seen {
			order = append(order, row.EnrollmentID)
		}
		grouped[row.EnrollmentID] = append(grouped[row.EnrollmentID], row)
	}

	courses := make([]models.TranscriptCourse, 0, len(order))
	for _, enrollmentID := range order {
		group := grouped[enrollmentID]
		grades := make([]models.Grade, 0, len(group))
		for _, row := range group {
			grades = append(grades, models.Grade{GradeType: row.GradeType, GradeValue: row.GradeValue})
		}
		course := models.TranscriptCourse{
			EnrollmentID: enrollmentID,
			CourseCode:   group[0].CourseCode,
			CourseName:   group[0].CourseName,
			AcademicYear: group[0].AcademicYear,
			Term:         group[0].Term,
			GradeCount:   len(group),
		}
		if avg, ok := results.WeightedAverage(grades, weights); ok {
			course.WeightedAverage = avg
			course.Status = string(results.Classify(avg))
		}
		courses = append(courses, course)
	}
	return courses
}

// CourseRoster lists enrolled students for a course with their
// attendance counts.
func (s *ReportService) CourseRoster(ctx context.Context, courseID string) (*models.CourseRoster, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	rows, err := s.attendance.RosterCounts(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return &models.CourseRoster{
		CourseID:   course.ID,
		CourseCode: course.CourseCode,
		CourseName: course.CourseName,
		Rows:       rows,
	}, nil
}

// AttendanceSummary aggregates a student's attendance per enrollment.
// Late sessions count as attended for rate purposes.
func (s *ReportService) AttendanceSummary(ctx context.Context, studentID string) (*models.StudentAttendanceSummary, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	rows, err := s.attendance.SummaryByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance summary")
	}
	for i := range rows {
		rows[i].AttendanceRate = results.AttendanceRate(rows[i].PresentCount, rows[i].LateCount, rows[i].TotalSessions)
	}
	return &models.StudentAttendanceSummary{
		StudentID:     student.ID,
		StudentNumber: student.StudentNumber,
		Rows:          rows,
	}, nil
}

// LowAttendance flags students whose per-course attendance rate falls
// below the threshold percentage. A non-positive threshold defaults to 75.
func (s *ReportService) LowAttendance(ctx context.Context, threshold float64) ([]models.LowAttendanceRow, error) {
	if threshold <= 0 {
		threshold = defaultAttendanceThreshold
	}
	if threshold > 100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "threshold must be between 0 and 100")
	}
	rows, err := s.attendance.LowAttendance(ctx, threshold)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load low attendance")
	}
	return rows, nil
}

// TopStudents ranks students by GPA, highest first. Ties break on
// student number so the ordering stays deterministic. Students without
// any graded enrollment are excluded.
func (s *ReportService) TopStudents(ctx context.Context, limit int) ([]models.TopStudentRow, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.grades.AllGradeRows(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade rows")
	}
	weights, err := s.weights.Map(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade weights")
	}

	var order []string
	perStudent := make(map[string][]models.EnrollmentGradeRow)
	for _, row := range rows {
		if _, seen := perStudent[row.StudentID]; !seen {
			order = append(order, row.StudentID)
		}
		perStudent[row.StudentID] = append(perStudent[row.StudentID], row)
	}

	ranking := make([]models.TopStudentRow, 0, len(order))
	for _, studentID := range order {
		group := perStudent[studentID]
		courses := buildTranscriptCourses(group, weights)
		var averages []float64
		for _, course := range courses {
			if course.GradeCount > 0 {
				averages = append(averages, course.WeightedAverage)
			}
		}
		gpa, ok := results.GPA(averages)
		if !ok {
			continue
		}
		ranking = append(ranking, models.TopStudentRow{
			StudentID:     studentID,
			StudentNumber: group[0].StudentNumber,
			FirstName:     group[0].FirstName,
			LastName:      group[0].LastName,
			GPA:           gpa,
			GradePoint:    results.GradePoint(gpa),
			CourseCount:   len(averages),
		})
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		if ranking[i].GPA != ranking[j].GPA {
			return ranking[i].GPA > ranking[j].GPA
		}
		return ranking[i].StudentNumber < ranking[j].StudentNumber
	})
	if len(ranking) > limit {
		ranking = ranking[:limit]
	}
	for i := range ranking {
		ranking[i].Rank = i + 1
	}
	return ranking, nil
}

// ExportTranscript renders a transcript as CSV or PDF bytes along with a
// suggested filename.
func (s *ReportService) ExportTranscript(ctx context.Context, studentID string, format ExportFormat) ([]byte, string, error) {
	transcript, err := s.Transcript(ctx, studentID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Course Code", "Course Name", "Academic Year", "Term", "Grades", "Weighted Average", "Status"},
	}
	for _, course := range transcript.Courses {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Course Code":      course.CourseCode,
			"Course Name":      course.CourseName,
			"Academic Year":    course.AcademicYear,
			"Term":             strconv.Itoa(course.Term),
			"Grades":           strconv.Itoa(course.GradeCount),
			"Weighted Average": fmt.Sprintf("%.2f", course.WeightedAverage),
			"Status":           course.Status,
		})
	}

	switch format {
	case ExportCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, fmt.Sprintf("transcript_%d.csv", transcript.StudentNumber), nil
	case ExportPDF:
		title := fmt.Sprintf("Transcript %s %s (%d)", transcript.FirstName, transcript.LastName, transcript.StudentNumber)
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, fmt.Sprintf("transcript_%d.pdf", transcript.StudentNumber), nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// InvalidateStudent drops cached views derived from one student's data.
func (s *ReportService) InvalidateStudent(ctx context.Context, studentID string) {
	s.cache.Invalidate(ctx, "report:transcript:"+studentID)
}
