// Package scheduler periodically starts a bulk rerun of matching so that scores follow
// updated matrices without manual action.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spigell/talent-matcher/internal/bulk"
	"github.com/spigell/talent-matcher/internal/logger"
)

// DefaultSpec reruns matching once a night.
const DefaultSpec = "@daily"

// Runner starts and inspects bulk jobs.
type Runner interface {
	StartBulkJob(ctx context.Context, req bulk.Request) (*bulk.Job, error)
	BulkJobStatus(ctx context.Context, id string) (*bulk.Job, error)
}

// Scheduler wraps robfig/cron and triggers the rerun.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	spec    string
	request bulk.Request
	logger  *zap.Logger

	mu     sync.Mutex
	lastID string
}

// New creates a Scheduler firing on spec (standard cron syntax or descriptors such as
// "@every 6h").
func New(runner Runner, spec string, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if spec == "" {
		spec = DefaultSpec
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cronLogger{log.Sugar()})),
		runner:  runner,
		spec:    spec,
		request: bulk.Request{Type: bulk.TypeRerunMatching},
		logger:  log,
	}
}

// Start registers the job and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.Trigger(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("spec", s.spec))
	return nil
}

// Stop stops the scheduler and waits for a running trigger to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Trigger starts a rerun unless the one started last time is still running. It returns the
// id of the started bulk job, or "" when nothing was started.
func (s *Scheduler) Trigger(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastID != "" {
		previous, err := s.runner.BulkJobStatus(ctx, s.lastID)
		if err == nil && !previous.Status.Terminal() {
			s.logger.Info("previous scheduled rerun still running, skipping",
				zap.String(logger.FieldBulkJobID, s.lastID),
				zap.Int("processed", previous.Processed),
				zap.Int("total", previous.Total),
			)
			return ""
		}
	}

	job, err := s.runner.StartBulkJob(ctx, s.request)
	if err != nil {
		s.logger.Error("starting scheduled rerun", zap.Error(err))
		return ""
	}
	s.lastID = job.ID

	s.logger.Info("scheduled rerun started", zap.String(logger.FieldBulkJobID, job.ID))
	return job.ID
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
