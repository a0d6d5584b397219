package matcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/talent-matcher/internal/bulk"
	"github.com/spigell/talent-matcher/internal/events"
	"github.com/spigell/talent-matcher/internal/logger"
	"github.com/spigell/talent-matcher/internal/store"
)

// ShortlistMatch marks a match as shortlisted by a recruiter.
func (s *Service) ShortlistMatch(ctx context.Context, matchID string) (*store.Match, error) {
	return s.setStatus(ctx, matchID, store.StatusShortlisted)
}

// RejectMatch marks a match as rejected by a recruiter.
func (s *Service) RejectMatch(ctx context.Context, matchID string) (*store.Match, error) {
	return s.setStatus(ctx, matchID, store.StatusRejected)
}

func (s *Service) setStatus(ctx context.Context, matchID string, status store.MatchStatus) (*store.Match, error) {
	match, err := s.store.SetStatus(ctx, matchID, status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", matchID, ErrMatchNotFound)
		}
		return nil, fmt.Errorf("update match status: %w", err)
	}

	s.logger.Info("match status changed",
		zap.String(logger.FieldMatchID, match.ID),
		zap.String("status", string(status)),
	)

	err = s.publisher.Publish(ctx, events.ChannelMatchStatus, map[string]any{
		"type":        events.ChannelMatchStatus,
		"matchId":     match.ID,
		"candidateId": match.CandidateID,
		"jobId":       match.JobID,
		"status":      match.Status,
	})
	if err != nil {
		s.logger.Warn("publish match status event failed", zap.Error(err))
	}

	return match, nil
}

// ListMatchesForJob returns the job's matches at or above the threshold, best first.
func (s *Service) ListMatchesForJob(ctx context.Context, jobID string) ([]store.Match, error) {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", jobID, ErrJobNotFound)
		}
		return nil, fmt.Errorf("load job: %w", err)
	}
	return s.store.ListForJob(ctx, jobID, s.minScore)
}

// ListMatchesForCandidate returns the candidate's matches at or above the threshold, best first.
func (s *Service) ListMatchesForCandidate(ctx context.Context, candidateID string) ([]store.Match, error) {
	if _, err := s.store.GetCandidate(ctx, candidateID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", candidateID, ErrCandidateNotFound)
		}
		return nil, fmt.Errorf("load candidate: %w", err)
	}
	return s.store.ListForCandidate(ctx, candidateID, s.minScore)
}

// GetMatch returns a stored match.
func (s *Service) GetMatch(ctx context.Context, matchID string) (*store.Match, error) {
	match, err := s.store.Get(ctx, matchID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", matchID, ErrMatchNotFound)
	}
	return match, err
}

// RegenerateCandidateMatrix extracts a new matrix from the candidate's latest CV and stores
// it as the current snapshot.
func (s *Service) RegenerateCandidateMatrix(ctx context.Context, candidateID string) (*store.Candidate, error) {
	if s.extractor == nil {
		return nil, ErrExtractorDisabled
	}

	cv, err := s.store.LatestCV(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("load cv of candidate %s: %w", candidateID, err)
	}
	if strings.TrimSpace(cv) == "" {
		return nil, fmt.Errorf("cv of candidate %s is empty", candidateID)
	}

	m, err := s.extractor.ExtractCandidateMatrix(ctx, cv)
	if err != nil {
		return nil, fmt.Errorf("extract matrix: %w", err)
	}

	if err := s.store.SaveCandidateMatrix(ctx, candidateID, m, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("save matrix: %w", err)
	}

	s.logger.Info("candidate matrix regenerated",
		zap.String(logger.FieldCandidateID, candidateID),
		zap.Int("skills", len(m.Skills)),
	)

	return s.store.GetCandidate(ctx, candidateID)
}

// RegenerateJobMatrix extracts a requirement matrix from the job posting and stores it.
func (s *Service) RegenerateJobMatrix(ctx context.Context, jobID string) (*store.Job, error) {
	if s.extractor == nil {
		return nil, ErrExtractorDisabled
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", jobID, ErrJobNotFound)
		}
		return nil, fmt.Errorf("load job: %w", err)
	}

	m, err := s.extractor.ExtractJobMatrix(ctx, job.Title, job.Description, job.MustHave, job.NiceToHave)
	if err != nil {
		return nil, fmt.Errorf("extract matrix: %w", err)
	}

	if err := s.store.SaveJobMatrix(ctx, jobID, m, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("save matrix: %w", err)
	}
	job.Matrix = m

	s.logger.Info("job matrix regenerated", zap.String(logger.FieldJobID, jobID))
	return job, nil
}

// CalculateMatchesForJob starts a background run matching the job against every candidate
// with a matrix and returns the bulk job id.
func (s *Service) CalculateMatchesForJob(ctx context.Context, jobID string) (string, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", jobID, ErrJobNotFound)
		}
		return "", fmt.Errorf("load job: %w", err)
	}
	if job.Matrix == nil {
		return "", fmt.Errorf("job %s: %w", jobID, ErrMissingMatrix)
	}

	run, err := s.bulk.Start(ctx, bulk.Request{Type: bulk.TypeJobMatching, JobIDs: []string{jobID}})
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func (s *Service) StartBulkJob(ctx context.Context, req bulk.Request) (*bulk.Job, error) {
	return s.bulk.Start(ctx, req)
}

func (s *Service) BulkJobStatus(ctx context.Context, id string) (*bulk.Job, error) {
	return s.bulk.Status(ctx, id)
}

func (s *Service) CancelBulkJob(ctx context.Context, id string) (*bulk.Job, error) {
	return s.bulk.Cancel(ctx, id)
}

func (s *Service) ListBulkJobs(ctx context.Context) ([]*bulk.Job, error) {
	return s.bulk.List(ctx)
}

// Wait blocks until every bulk job started by this service has finished.
func (s *Service) Wait() {
	s.bulk.Wait()
}
