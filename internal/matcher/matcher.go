// Package matcher runs the single-pair matching pipeline (eligibility, score, explanation,
// persistence) and exposes the public matching operations on top of the storage backend and
// the bulk orchestrator.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/talent-matcher/internal/ai"
	"github.com/spigell/talent-matcher/internal/bulk"
	"github.com/spigell/talent-matcher/internal/events"
	"github.com/spigell/talent-matcher/internal/filtering"
	"github.com/spigell/talent-matcher/internal/logger"
	"github.com/spigell/talent-matcher/internal/scoring"
	"github.com/spigell/talent-matcher/internal/store"
)

// DefaultMinScore is the lowest score that is persisted and listed.
const DefaultMinScore = 30

var (
	ErrCandidateNotFound = fmt.Errorf("candidate %w", store.ErrNotFound)
	ErrJobNotFound       = fmt.Errorf("job %w", store.ErrNotFound)
	ErrMatchNotFound     = fmt.Errorf("match %w", store.ErrNotFound)
	ErrMissingMatrix     = fmt.Errorf("matrix %w", store.ErrNotFound)

	// ErrExtractorDisabled is returned by matrix regeneration when no extractor is configured.
	ErrExtractorDisabled = errors.New("matrix extraction is not configured")
)

type Config struct {
	MinScore int
	// Explain enables the explainer. Without it matches carry deterministic gaps only.
	Explain bool
}

type Deps struct {
	Store     store.Store
	Filter    *filtering.Filter
	Explainer ai.Explainer
	Extractor ai.Extractor
	Publisher events.Publisher
	Statuses  bulk.StatusStore
	Logger    *zap.Logger
	Clock     func() time.Time
}

// Outcome is the result of matching one pair.
type Outcome struct {
	// Match is the stored record. It is nil when the pair was rejected by the eligibility
	// filter or scored under the threshold; an existing record is then left untouched.
	Match     *store.Match
	Verdict   filtering.Verdict
	Score     int
	Breakdown scoring.Breakdown
	// ExplainError is set when the score was stored without an explanation.
	ExplainError error
}

// Skipped reports whether the eligibility filter rejected the pair.
func (o *Outcome) Skipped() bool {
	return !o.Verdict.Eligible
}

// BelowThreshold reports whether the pair scored under the listing threshold.
func (o *Outcome) BelowThreshold(minScore int) bool {
	return o.Verdict.Eligible && o.Score < minScore
}

// Service implements the matching operations.
type Service struct {
	store     store.Store
	filter    *filtering.Filter
	explainer ai.Explainer
	extractor ai.Extractor
	publisher events.Publisher
	bulk      *bulk.Orchestrator
	minScore  int
	now       func() time.Time
	logger    *zap.Logger
}

func New(cfg *Config, deps *Deps) *Service {
	if cfg == nil {
		cfg = &Config{}
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Service{
		store:     deps.Store,
		filter:    deps.Filter,
		extractor: deps.Extractor,
		publisher: deps.Publisher,
		minScore:  cfg.MinScore,
		now:       deps.Clock,
		logger:    log,
	}
	if cfg.Explain {
		s.explainer = deps.Explainer
	}
	if s.filter == nil {
		s.filter = filtering.Default(log)
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.minScore <= 0 {
		s.minScore = DefaultMinScore
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.bulk = bulk.NewOrchestrator(deps.Store, s, deps.Statuses, log,
		bulk.WithPublisher(s.publisher),
		bulk.WithClock(s.now),
	)

	return s
}

// MinScore returns the listing threshold.
func (s *Service) MinScore() int {
	return s.minScore
}

// CalculateMatch scores one candidate against one job and stores the result.
func (s *Service) CalculateMatch(ctx context.Context, candidateID, jobID string) (*Outcome, error) {
	candidate, err := s.store.GetCandidate(ctx, candidateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", candidateID, ErrCandidateNotFound)
		}
		return nil, fmt.Errorf("load candidate: %w", err)
	}
	if candidate.Matrix == nil {
		return nil, fmt.Errorf("candidate %s: %w", candidateID, ErrMissingMatrix)
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", jobID, ErrJobNotFound)
		}
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job.Matrix == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrMissingMatrix)
	}

	return s.matchPair(ctx, *candidate, *job)
}

// MatchPair runs the pipeline for a pair loaded by a bulk job. A missing explanation fails
// the item even though the score is stored.
func (s *Service) MatchPair(ctx context.Context, c store.Candidate, j store.Job) (bulk.PairResult, error) {
	outcome, err := s.matchPair(ctx, c, j)
	if err != nil {
		return bulk.PairResult{}, err
	}
	if outcome.Skipped() {
		return bulk.PairResult{Skipped: true}, nil
	}
	if outcome.ExplainError != nil {
		return bulk.PairResult{}, fmt.Errorf("score %d stored without explanation: %w", outcome.Score, outcome.ExplainError)
	}
	return bulk.PairResult{Matched: outcome.Score >= s.minScore}, nil
}

func (s *Service) matchPair(ctx context.Context, c store.Candidate, j store.Job) (*Outcome, error) {
	if c.Matrix == nil || j.Matrix == nil {
		return nil, fmt.Errorf("pair %s/%s: %w", c.ID, j.ID, ErrMissingMatrix)
	}

	log := logger.WithFields(s.logger, logger.PairFields(c.ID, j.ID)...)
	calculatedAt := s.now().UTC()

	verdict := s.filter.Evaluate(filtering.Profile{
		Candidate:  c.Matrix,
		Job:        j.Matrix,
		TotalYears: c.Matrix.TotalYearsExperience,
		MinYears:   j.MinYears,
		Seniority:  j.Seniority,
		Headline:   c.Headline,
		Roles:      c.Matrix.Roles,
	})
	if !verdict.Eligible {
		log.Debug("pair is not eligible", zap.String("rule", verdict.Rule), zap.String("reason", verdict.Reason))
		return &Outcome{Verdict: verdict}, nil
	}

	result := scoring.Score(scoring.Input{
		Candidate:        c.Matrix,
		Job:              j.Matrix,
		CandidateCountry: c.Country,
		JobCountry:       j.Country,
		LocationType:     j.LocationType,
		MinYears:         j.MinYears,
		Seniority:        j.Seniority,
		Headline:         c.Headline,
		Roles:            c.Matrix.Roles,
	})
	outcome := &Outcome{Verdict: verdict, Score: result.Score, Breakdown: result.Breakdown}

	if result.Score < s.minScore {
		log.Debug("score under threshold", zap.Int("score", result.Score), zap.Int("min_score", s.minScore))
		return outcome, nil
	}

	input := store.MatchInput{
		CandidateID:  c.ID,
		JobID:        j.ID,
		Score:        result.Score,
		Breakdown:    result.Breakdown,
		Gaps:         skillGaps(result),
		CalculatedAt: calculatedAt,
	}

	if s.explainer != nil {
		explanation, err := s.explainer.Explain(ctx, explainRequest(c, j, result))
		if err != nil {
			log.Warn("explanation failed, storing score without it", zap.Error(err))
			outcome.ExplainError = err
			input.Gaps = nil
		} else {
			input.Explanation = explanation.Text
			input.Gaps = explanation.Gaps
		}
	}

	match, err := s.store.Upsert(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("store match: %w", err)
	}
	outcome.Match = match

	log.Info("match calculated", zap.String(logger.FieldMatchID, match.ID), zap.Int("score", match.Score))

	err = s.publisher.Publish(ctx, events.ChannelMatchCalculated, map[string]any{
		"type":        events.ChannelMatchCalculated,
		"matchId":     match.ID,
		"candidateId": match.CandidateID,
		"jobId":       match.JobID,
		"score":       match.Score,
	})
	if err != nil {
		log.Warn("publish match event failed", zap.Error(err))
	}

	return outcome, nil
}

func explainRequest(c store.Candidate, j store.Job, result scoring.Result) ai.ExplainRequest {
	return ai.ExplainRequest{
		CandidateID:     c.ID,
		JobID:           j.ID,
		JobTitle:        j.Title,
		CandidateSkills: c.Matrix.Skills,
		TotalYears:      c.Matrix.TotalYearsExperience,
		Domains:         c.Matrix.Domains,
		Location:        c.Matrix.LocationSignals,
		RequiredSkills:  j.Matrix.RequiredSkills,
		PreferredSkills: j.Matrix.PreferredSkills,
		MinYears:        j.MinYears,
		Score:           result.Score,
		MissingRequired: result.MissingRequired,
	}
}

// skillGaps lists the skills the candidate lacks by exact name.
func skillGaps(result scoring.Result) []store.Gap {
	gaps := make([]store.Gap, 0, len(result.MissingRequired)+len(result.MissingPreferred))
	for _, skill := range result.MissingRequired {
		gaps = append(gaps, store.Gap{
			Type:        "skill",
			Description: "Missing required skill: " + skill,
			Severity:    store.SeverityMajor,
		})
	}
	for _, skill := range result.MissingPreferred {
		gaps = append(gaps, store.Gap{
			Type:        "skill",
			Description: "Missing preferred skill: " + skill,
			Severity:    store.SeverityMinor,
		})
	}
	return gaps
}
