package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dputra/student-records-api/internal/etl"
	appErrors "github.com/dputra/student-records-api/pkg/errors"
)

type pipelineRunner interface {
	Run(ctx context.Context, dir string) (*etl.RunReport, error)
}

// PipelineService exposes the batch pipeline to the API. Only one run may
// be active at a time; concurrent triggers are rejected rather than
// queued so callers see load pressure immediately.
type PipelineService struct {
	pipeline pipelineRunner
	dataDir  string
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	last    *etl.RunReport
}

// NewPipelineService constructs the pipeline service.
func NewPipelineService(pipeline pipelineRunner, dataDir string, logger *zap.Logger) *PipelineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PipelineService{pipeline: pipeline, dataDir: dataDir, logger: logger}
}

// Trigger runs the batch pipeline against the configured data directory.
// The run report is returned even when a stage failed; the report's Fatal
// field carries the abort cause.
func (s *PipelineService) Trigger(ctx context.Context) (*etl.RunReport, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrConflict, "a pipeline run is already in progress")
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	report, err := s.pipeline.Run(ctx, s.dataDir)
	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("pipeline run failed", zap.Error(err))
		return report, err
	}
	return report, nil
}

// LastReport returns the most recent run report, or nil when the
// pipeline has not run since startup.
func (s *PipelineService) LastReport() *etl.RunReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
