package etl

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dputra/student-records-api/internal/models"
	appErrors "github.com/dputra/student-records-api/pkg/errors"
)

// LoadStats reports what the store did with one stage's accepted rows.
// Skipped rows hit an existing uniqueness key and were left untouched,
// which is what makes re-runs idempotent.
type LoadStats struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// Store applies accepted rows to the relational store. Implementations
// must use parameterized statements and must skip, never overwrite, on
// unique-key conflict. Any returned error is treated as run-fatal.
type Store interface {
	InsertStudents(ctx context.Context, rows []models.Student) (LoadStats, error)
	InsertCourses(ctx context.Context, rows []models.Course) (LoadStats, error)
	InsertEnrollments(ctx context.Context, rows []models.Enrollment) (LoadStats, error)
	InsertGrades(ctx context.Context, rows []models.Grade) (LoadStats, error)
	InsertAttendance(ctx context.Context, rows []models.Attendance) (LoadStats, error)
}

// StageReport summarizes one entity stage.
type StageReport struct {
	Entity   Entity `json:"entity"`
	Read     int    `json:"read"`
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
}

// RunReport is the full outcome of one pipeline run: per-stage counts,
// every row rejection, and the fatal error (if any) with the last stage
// that committed before the abort.
type RunReport struct {
	StartedAt          time.Time        `json:"started_at"`
	FinishedAt         time.Time        `json:"finished_at"`
	ReferenceDate      time.Time        `json:"reference_date"`
	Stages             []StageReport    `json:"stages"`
	Rejections         []Rejection      `json:"rejections,omitempty"`
	LastCompletedStage Entity           `json:"last_completed_stage,omitempty"`
	Fatal              *appErrors.Error `json:"fatal,omitempty"`
}

// Pipeline wires the validator, normalizer, resolver, and load sequencer
// into a single-pass batch run over the five sources.
type Pipeline struct {
	store     Store
	logger    *zap.Logger
	metrics   *Metrics
	delimiter rune
	ref       time.Time
}

// NewPipeline constructs a Pipeline. A zero ref date means each run pins
// itself to the wall clock at start; tests inject a fixed date.
func NewPipeline(store Store, logger *zap.Logger, metrics *Metrics, delimiter rune, ref time.Time) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if delimiter == 0 {
		delimiter = ','
	}
	return &Pipeline{store: store, logger: logger, metrics: metrics, delimiter: delimiter, ref: ref}
}

// Run executes the full batch: extract all sources, then one stage per
// entity in dependency order. Row-scoped failures are contained to their
// row; a store failure aborts the remaining stages and is reported as
// fatal while prior stages stay committed.
func (p *Pipeline) Run(ctx context.Context, dir string) (*RunReport, error) {
	ref := p.ref
	if ref.IsZero() {
		ref = time.Now().UTC()
	}
	report := &RunReport{StartedAt: time.Now().UTC(), ReferenceDate: ref}

	sources, err := Extract(dir, p.delimiter)
	if err != nil {
		report.Fatal = appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "extract failed")
		report.FinishedAt = time.Now().UTC()
		p.observeRun(report)
		return report, report.Fatal
	}

	validator := NewValidator(ref)
	resolver := NewResolver()

	students, rejections := validator.Students(sources[EntityStudents])
	students, dupes := DedupeStudents(students)
	rejections = append(rejections, dupes...)
	resolver.AddStudents(students)
	if err := p.loadStage(ctx, report, EntityStudents, len(sources[EntityStudents]), rejections, func() (LoadStats, error) {
		return p.store.InsertStudents(ctx, students)
	}, len(students)); err != nil {
		return report, err
	}

	courses, rejections := validator.Courses(sources[EntityCourses])
	courses, dupes = DedupeCourses(courses)
	rejections = append(rejections, dupes...)
	resolver.AddCourses(courses)
	if err := p.loadStage(ctx, report, EntityCourses, len(sources[EntityCourses]), rejections, func() (LoadStats, error) {
		return p.store.InsertCourses(ctx, courses)
	}, len(courses)); err != nil {
		return report, err
	}

	enrollments, rejections := validator.Enrollments(sources[EntityEnrollments])
	enrollments, dupes = DedupeEnrollments(enrollments)
	rejections = append(rejections, dupes...)
	enrollments, orphans, err := resolver.ResolveEnrollments(enrollments)
	if err != nil {
		return p.fatal(report, err)
	}
	rejections = append(rejections, orphans...)
	resolver.AddEnrollments(enrollments)
	if err := p.loadStage(ctx, report, EntityEnrollments, len(sources[EntityEnrollments]), rejections, func() (LoadStats, error) {
		return p.store.InsertEnrollments(ctx, enrollments)
	}, len(enrollments)); err != nil {
		return report, err
	}

	grades, rejections := validator.Grades(sources[EntityGrades])
	grades, dupes = DedupeGrades(grades)
	rejections = append(rejections, dupes...)
	grades, orphans, err = resolver.ResolveGrades(grades)
	if err != nil {
		return p.fatal(report, err)
	}
	rejections = append(rejections, orphans...)
	if err := p.loadStage(ctx, report, EntityGrades, len(sources[EntityGrades]), rejections, func() (LoadStats, error) {
		return p.store.InsertGrades(ctx, grades)
	}, len(grades)); err != nil {
		return report, err
	}

	attendance, rejections := validator.Attendance(sources[EntityAttendance])
	attendance, dupes = DedupeAttendance(attendance)
	rejections = append(rejections, dupes...)
	attendance, orphans, err = resolver.ResolveAttendance(attendance)
	if err != nil {
		return p.fatal(report, err)
	}
	rejections = append(rejections, orphans...)
	if err := p.loadStage(ctx, report, EntityAttendance, len(sources[EntityAttendance]), rejections, func() (LoadStats, error) {
		return p.store.InsertAttendance(ctx, attendance)
	}, len(attendance)); err != nil {
		return report, err
	}

	report.FinishedAt = time.Now().UTC()
	p.observeRun(report)
	p.logger.Info("pipeline run completed",
		zap.Int("stages", len(report.Stages)),
		zap.Int("rejections", len(report.Rejections)),
	)
	return report, nil
}

// loadStage records rejections, applies the accepted rows through the
// store, and appends the stage report. A store error marks the run fatal;
// stages already committed are not rolled back.
func (p *Pipeline) loadStage(ctx context.Context, report *RunReport, entity Entity, read int, rejections []Rejection, load func() (LoadStats, error), accepted int) error {
	start := time.Now()
	report.Rejections = append(report.Rejections, rejections...)
	if p.metrics != nil {
		p.metrics.observeRejections(rejections)
	}

	stats, err := load()
	if err != nil {
		fatal := appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "store failure during "+string(entity)+" stage")
		report.Fatal = fatal
		report.FinishedAt = time.Now().UTC()
		p.observeRun(report)
		p.logger.Error("pipeline aborted",
			zap.String("entity", string(entity)),
			zap.String("last_completed_stage", string(report.LastCompletedStage)),
			zap.Error(err),
		)
		return fatal
	}

	stage := StageReport{
		Entity:   entity,
		Read:     read,
		Accepted: accepted,
		Rejected: len(rejections),
		Inserted: stats.Inserted,
		Skipped:  stats.Skipped,
	}
	report.Stages = append(report.Stages, stage)
	report.LastCompletedStage = entity
	if p.metrics != nil {
		p.metrics.observeStage(entity, stage, time.Since(start).Seconds())
	}
	p.logger.Info("pipeline stage completed",
		zap.String("entity", string(entity)),
		zap.Int("read", read),
		zap.Int("accepted", accepted),
		zap.Int("rejected", len(rejections)),
		zap.Int("inserted", stats.Inserted),
		zap.Int("skipped", stats.Skipped),
	)
	return nil
}

func (p *Pipeline) fatal(report *RunReport, err error) (*RunReport, error) {
	fatal := appErrors.FromError(err)
	report.Fatal = fatal
	report.FinishedAt = time.Now().UTC()
	p.observeRun(report)
	return report, fatal
}

func (p *Pipeline) observeRun(report *RunReport) {
	if p.metrics == nil {
		return
	}
	p.metrics.observeRun(report.Fatal != nil)
}
