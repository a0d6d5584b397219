package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/talent-matcher/internal/events"
	"github.com/spigell/talent-matcher/internal/logger"
	"github.com/spigell/talent-matcher/internal/store"
)

// PairResult is the outcome of matching one candidate/job pair.
type PairResult struct {
	// Skipped is set when the eligibility filter rejected the pair.
	Skipped bool
	// Matched is set when the stored score is at or above the listing threshold.
	Matched bool
}

// Worker does the per-item work of a bulk job.
type Worker interface {
	MatchPair(ctx context.Context, c store.Candidate, j store.Job) (PairResult, error)
	RegenerateCandidateMatrix(ctx context.Context, candidateID string) (*store.Candidate, error)
}

// Source lists the candidates and jobs a bulk job iterates.
type Source interface {
	ListCandidates(ctx context.Context, ids []string) ([]store.Candidate, error)
	ListPublishedJobs(ctx context.Context, ids []string) ([]store.Job, error)
}

// Orchestrator starts bulk jobs and tracks them until they finish.
type Orchestrator struct {
	source    Source
	worker    Worker
	statuses  StatusStore
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time

	wg      sync.WaitGroup
	mu      sync.Mutex
	signals map[string]chan struct{}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPublisher publishes a notification when a bulk job finishes.
func WithPublisher(p events.Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(source Source, worker Worker, statuses StatusStore, log *zap.Logger, opts ...Option) *Orchestrator {
	if statuses == nil {
		statuses = NewMemoryStore()
	}
	if log == nil {
		log = zap.NewNop()
	}
	o := &Orchestrator{
		source:    source,
		worker:    worker,
		statuses:  statuses,
		publisher: events.Nop{},
		logger:    log,
		now:       time.Now,
		signals:   make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start records a running job and processes it in the background. The run is detached
// from ctx: it keeps going after the caller returns.
func (o *Orchestrator) Start(ctx context.Context, req Request) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	job := &Job{
		ID:        uuid.NewString(),
		Type:      req.Type,
		Status:    StatusRunning,
		Request:   req,
		Errors:    []ItemError{},
		StartedAt: o.now().UTC(),
	}
	if err := o.statuses.Set(ctx, job); err != nil {
		return nil, fmt.Errorf("record bulk job: %w", err)
	}

	signal := make(chan struct{})
	o.mu.Lock()
	o.signals[job.ID] = signal
	o.mu.Unlock()

	o.wg.Add(1)
	go o.run(context.WithoutCancel(ctx), job.clone(), signal)

	return job, nil
}

// Status returns the current status record.
func (o *Orchestrator) Status(ctx context.Context, id string) (*Job, error) {
	return o.statuses.Get(ctx, id)
}

// List returns all known bulk jobs, newest first.
func (o *Orchestrator) List(ctx context.Context) ([]*Job, error) {
	jobs, err := o.statuses.List(ctx)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(jobs)
	return jobs, nil
}

// Cancel requests cancellation. The item in flight completes; no new item starts.
// Cancelling a finished job returns it unchanged.
func (o *Orchestrator) Cancel(ctx context.Context, id string) (*Job, error) {
	job, err := o.statuses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return job, nil
	}

	if err := o.statuses.RequestCancel(ctx, id); err != nil {
		return nil, fmt.Errorf("record cancellation: %w", err)
	}

	job.Status = StatusCancelled
	completed := o.now().UTC()
	job.CompletedAt = &completed
	if err := o.statuses.Set(ctx, job); err != nil {
		return nil, fmt.Errorf("record cancellation: %w", err)
	}

	o.mu.Lock()
	if signal, ok := o.signals[id]; ok {
		close(signal)
		delete(o.signals, id)
	}
	o.mu.Unlock()

	o.logger.Info("bulk job cancellation requested", zap.String(logger.FieldBulkJobID, id))
	return job, nil
}

// Wait blocks until every started job has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

type runState struct {
	o      *Orchestrator
	job    *Job
	signal <-chan struct{}
	log    *zap.Logger
}

func (o *Orchestrator) run(ctx context.Context, job *Job, signal <-chan struct{}) {
	defer o.wg.Done()
	defer o.forget(job.ID)

	r := &runState{o: o, job: job, signal: signal, log: logger.WithBulkJob(o.logger, job.ID, string(job.Type))}
	r.log.Info("bulk job started")

	defer func() {
		if p := recover(); p != nil {
			r.fail(ctx, fmt.Errorf("panic: %v", p))
		}
	}()

	if job.Type.regenerates() {
		if err := r.regenerate(ctx); err != nil {
			r.fail(ctx, err)
			return
		}
		if r.job.Status == StatusCancelled {
			r.finish(ctx)
			return
		}
	}

	if job.Type.matches() {
		if err := r.match(ctx); err != nil {
			r.fail(ctx, err)
			return
		}
	}

	if r.job.Status == StatusRunning {
		r.job.Status = StatusCompleted
	}
	r.finish(ctx)
}

func (o *Orchestrator) forget(id string) {
	o.mu.Lock()
	delete(o.signals, id)
	o.mu.Unlock()
}

func (r *runState) regenerate(ctx context.Context) error {
	req := r.job.Request
	candidates, err := r.o.source.ListCandidates(ctx, req.CandidateIDs)
	if err != nil {
		return fmt.Errorf("load candidates: %w", err)
	}

	targets := make([]store.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if req.OnlyMissing && c.Matrix != nil {
			continue
		}
		targets = append(targets, c)
	}

	r.job.Total += len(targets)
	r.save(ctx)

	for _, c := range targets {
		if r.cancelled(ctx) {
			return nil
		}
		r.job.CurrentItem = c.ID
		r.save(ctx)

		_, err := r.o.worker.RegenerateCandidateMatrix(ctx, c.ID)
		r.job.Processed++
		if err != nil {
			r.itemFailed(ItemError{CandidateID: c.ID, CandidateName: c.Name, Error: err.Error()})
		} else {
			r.job.Succeeded++
		}
		r.save(ctx)
	}
	return nil
}

func (r *runState) match(ctx context.Context) error {
	req := r.job.Request
	candidates, err := r.o.source.ListCandidates(ctx, req.CandidateIDs)
	if err != nil {
		return fmt.Errorf("load candidates: %w", err)
	}
	jobs, err := r.o.source.ListPublishedJobs(ctx, req.JobIDs)
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}

	candidates = withCandidateMatrix(candidates)
	jobs = withJobMatrix(jobs)

	r.job.Total += len(candidates) * len(jobs)
	r.save(ctx)

	for _, c := range candidates {
		for _, j := range jobs {
			if r.cancelled(ctx) {
				return nil
			}
			r.job.CurrentItem = c.ID + "/" + j.ID
			r.save(ctx)

			res, err := r.o.worker.MatchPair(ctx, c, j)
			r.job.Processed++
			switch {
			case err != nil:
				r.itemFailed(ItemError{CandidateID: c.ID, CandidateName: c.Name, JobID: j.ID, Error: err.Error()})
			case res.Skipped:
				r.job.Succeeded++
				r.job.Skipped++
			default:
				r.job.Succeeded++
				if res.Matched {
					r.job.Matched++
				}
			}
			r.save(ctx)
		}
	}
	return nil
}

func (r *runState) itemFailed(e ItemError) {
	r.job.Failed++
	r.job.Errors = append(r.job.Errors, e)
	r.log.Warn("bulk item failed",
		zap.String(logger.FieldCandidateID, e.CandidateID),
		zap.String(logger.FieldJobID, e.JobID),
		zap.String("error", e.Error),
	)
}

// cancelled reports whether cancellation was requested, in this process or through the
// status store by another instance.
func (r *runState) cancelled(ctx context.Context) bool {
	if r.job.Status == StatusCancelled {
		return true
	}

	select {
	case <-r.signal:
		r.job.Status = StatusCancelled
		return true
	default:
	}

	r.syncCancellation(ctx)
	return r.job.Status == StatusCancelled
}

// syncCancellation adopts a cancellation recorded by another instance. The marker survives
// progress writes that raced the cancelling Set; the record only supplies the time.
func (r *runState) syncCancellation(ctx context.Context) {
	requested, err := r.o.statuses.CancelRequested(ctx, r.job.ID)
	if err != nil {
		r.log.Warn("failed to check bulk job cancellation", zap.Error(err))
	}

	stored, err := r.o.statuses.Get(ctx, r.job.ID)
	recorded := err == nil && stored.Status == StatusCancelled
	if !requested && !recorded {
		return
	}

	r.job.Status = StatusCancelled
	if recorded {
		r.job.CompletedAt = stored.CompletedAt
	}
}

// save writes progress without overwriting a cancellation recorded in the meantime.
func (r *runState) save(ctx context.Context) {
	if r.job.Status == StatusRunning {
		r.syncCancellation(ctx)
	}
	if err := r.o.statuses.Set(ctx, r.job); err != nil {
		r.log.Warn("failed to record bulk job progress", zap.Error(err))
	}
}

func (r *runState) fail(ctx context.Context, err error) {
	r.job.Status = StatusFailed
	r.job.Error = err.Error()
	r.log.Error("bulk job failed", zap.Error(err))
	r.finish(ctx)
}

func (r *runState) finish(ctx context.Context) {
	r.job.CurrentItem = ""
	if r.job.CompletedAt == nil {
		completed := r.o.now().UTC()
		r.job.CompletedAt = &completed
	}
	if err := r.o.statuses.Set(ctx, r.job); err != nil {
		r.log.Warn("failed to record bulk job result", zap.Error(err))
	}

	r.log.Info("bulk job finished",
		zap.String("status", string(r.job.Status)),
		zap.Int("total", r.job.Total),
		zap.Int("processed", r.job.Processed),
		zap.Int("succeeded", r.job.Succeeded),
		zap.Int("failed", r.job.Failed),
		zap.Int("skipped", r.job.Skipped),
		zap.Int("matched", r.job.Matched),
	)

	err := r.o.publisher.Publish(ctx, events.ChannelBulkFinished, map[string]any{
		"type":      events.ChannelBulkFinished,
		"bulkJobId": r.job.ID,
		"jobType":   r.job.Type,
		"status":    r.job.Status,
		"processed": r.job.Processed,
		"failed":    r.job.Failed,
	})
	if err != nil {
		r.log.Warn("publish bulk job event failed", zap.Error(err))
	}
}

func withCandidateMatrix(in []store.Candidate) []store.Candidate {
	out := make([]store.Candidate, 0, len(in))
	for _, c := range in {
		if c.Matrix != nil {
			out = append(out, c)
		}
	}
	return out
}

func withJobMatrix(in []store.Job) []store.Job {
	out := make([]store.Job, 0, len(in))
	for _, j := range in {
		if j.Matrix != nil {
			out = append(out, j)
		}
	}
	return out
}

// IsNotFound reports whether err means the bulk job does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
