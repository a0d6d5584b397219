package bulk

import (
	"context"
	"sort"
	"sync"
)

// StatusStore persists bulk job status records.
type StatusStore interface {
	Get(ctx context.Context, id string) (*Job, error)
	Set(ctx context.Context, job *Job) error
	// List returns the known jobs, most recently started first.
	List(ctx context.Context) ([]*Job, error)

	// RequestCancel leaves a cancellation marker that Set never clears.
	RequestCancel(ctx context.Context, id string) error
	CancelRequested(ctx context.Context, id string) (bool, error)
}

// MemoryStore keeps status records in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	cancelled map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:      make(map[string]*Job),
		cancelled: make(map[string]struct{}),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.clone(), nil
}

func (s *MemoryStore) Set(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.ID] = job.clone()
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.clone())
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) RequestCancel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelled[id] = struct{}{}
	return nil
}

func (s *MemoryStore) CancelRequested(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.cancelled[id]
	return ok, nil
}

func sortNewestFirst(jobs []*Job) {
	sort.SliceStable(jobs, func(i, k int) bool {
		if jobs[i].StartedAt.Equal(jobs[k].StartedAt) {
			return jobs[i].ID < jobs[k].ID
		}
		return jobs[i].StartedAt.After(jobs[k].StartedAt)
	})
}
