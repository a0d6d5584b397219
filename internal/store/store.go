// Package store defines the persisted records of the matching engine and the interfaces the
// storage backends implement.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/talent-matcher/internal/logger"
	"github.com/spigell/talent-matcher/internal/matrix"
	"github.com/spigell/talent-matcher/internal/scoring"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// MatchStatus is the recruiter-controlled state of a match.
type MatchStatus string

const (
	StatusPending     MatchStatus = "pending"
	StatusShortlisted MatchStatus = "shortlisted"
	StatusRejected    MatchStatus = "rejected"
)

// ParseMatchStatus converts a raw string to a MatchStatus.
func ParseMatchStatus(s string) (MatchStatus, error) {
	st := MatchStatus(s)
	switch st {
	case StatusPending, StatusShortlisted, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown match status %q", s)
}

// Gap severities.
const (
	SeverityMinor    = "minor"
	SeverityModerate = "moderate"
	SeverityMajor    = "major"
)

// Gap is a structured note about a requirement the candidate does not cover.
type Gap struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// Candidate is the read model of a candidate with its latest matrix snapshot.
type Candidate struct {
	ID                string                  `json:"id"`
	Name              string                  `json:"name"`
	Headline          string                  `json:"headline"`
	Country           string                  `json:"country"`
	Matrix            *matrix.CandidateMatrix `json:"matrix,omitempty"`
	MatrixGeneratedAt *time.Time              `json:"matrixGeneratedAt,omitempty"`
}

// Job is the read model of a job posting with its matrix.
type Job struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	MustHave     []string          `json:"mustHave"`
	NiceToHave   []string          `json:"niceToHave"`
	MinYears     float64           `json:"minYearsExperience"`
	Seniority    string            `json:"seniorityLevel"`
	LocationType string            `json:"locationType"`
	Country      string            `json:"country"`
	Published    bool              `json:"published"`
	Matrix       *matrix.JobMatrix `json:"matrix,omitempty"`
}

// Match is a persisted scoring result for one candidate/job pair.
type Match struct {
	ID           string            `json:"id"`
	CandidateID  string            `json:"candidateId"`
	JobID        string            `json:"jobId"`
	Score        int               `json:"score"`
	Breakdown    scoring.Breakdown `json:"breakdown"`
	Explanation  string            `json:"explanation"`
	Gaps         []Gap             `json:"gaps"`
	Status       MatchStatus       `json:"status"`
	CalculatedAt time.Time         `json:"calculatedAt"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// MatchInput carries the fields a re-score may change.
type MatchInput struct {
	CandidateID  string
	JobID        string
	Score        int
	Breakdown    scoring.Breakdown
	Explanation  string
	Gaps         []Gap
	CalculatedAt time.Time
}

// Candidates gives read access to candidates and write access to their matrix snapshots.
type Candidates interface {
	// ListCandidates returns candidates ordered by id. An empty ids slice means all.
	ListCandidates(ctx context.Context, ids []string) ([]Candidate, error)
	GetCandidate(ctx context.Context, id string) (*Candidate, error)
	// SaveCandidateMatrix appends a new snapshot; the latest one wins on read.
	SaveCandidateMatrix(ctx context.Context, id string, m *matrix.CandidateMatrix, generatedAt time.Time) error
}

// CVSource returns the raw text of a candidate's most recently uploaded CV.
type CVSource interface {
	LatestCV(ctx context.Context, candidateID string) (string, error)
}

// Jobs gives read access to job postings.
type Jobs interface {
	// ListPublishedJobs returns published jobs ordered by id. An empty ids slice means all.
	ListPublishedJobs(ctx context.Context, ids []string) ([]Job, error)
	GetJob(ctx context.Context, id string) (*Job, error)
	SaveJobMatrix(ctx context.Context, id string, m *matrix.JobMatrix, generatedAt time.Time) error
}

// Matches is the match record repository.
type Matches interface {
	// Upsert creates the pair's match as pending, or updates its score, breakdown,
	// explanation, gaps and calculatedAt while keeping id and status. A write older than
	// the stored calculatedAt is ignored and the stored record is returned.
	Upsert(ctx context.Context, in MatchInput) (*Match, error)
	Get(ctx context.Context, id string) (*Match, error)
	GetByPair(ctx context.Context, candidateID, jobID string) (*Match, error)
	SetStatus(ctx context.Context, id string, status MatchStatus) (*Match, error)
	// ListForJob returns matches with score >= minScore, best first.
	ListForJob(ctx context.Context, jobID string, minScore int) ([]Match, error)
	// ListForCandidate returns matches with score >= minScore, best first.
	ListForCandidate(ctx context.Context, candidateID string, minScore int) ([]Match, error)
}

// Importer loads candidates, CVs and jobs from outside systems.
type Importer interface {
	PutCandidate(ctx context.Context, c Candidate) error
	AddCV(ctx context.Context, candidateID, text string, uploadedAt time.Time) error
	PutJob(ctx context.Context, j Job) error
}

// Store is implemented by every storage backend.
type Store interface {
	Candidates
	CVSource
	Jobs
	Matches
	Importer

	Migrate(ctx context.Context) error
	Close()
}

// DecodeCandidateMatrix reads a stored candidate matrix. An unreadable document gives nil, so
// the candidate counts as having no matrix until it is regenerated; dropped fields only log.
func DecodeCandidateMatrix(log *zap.Logger, candidateID string, doc []byte) *matrix.CandidateMatrix {
	m, err := matrix.DecodeCandidateJSON(doc)
	if err == nil {
		return m
	}
	if errors.Is(err, matrix.ErrUnreadableDocument) {
		log.Warn("stored candidate matrix is unreadable, treating it as missing",
			zap.String(logger.FieldCandidateID, candidateID), zap.Error(err))
		return nil
	}
	log.Debug("stored candidate matrix has invalid fields",
		zap.String(logger.FieldCandidateID, candidateID), zap.Error(err))
	return m
}

// DecodeJobMatrix is the job counterpart of DecodeCandidateMatrix.
func DecodeJobMatrix(log *zap.Logger, jobID string, doc []byte) *matrix.JobMatrix {
	m, err := matrix.DecodeJobJSON(doc)
	if err == nil {
		return m
	}
	if errors.Is(err, matrix.ErrUnreadableDocument) {
		log.Warn("stored job matrix is unreadable, treating it as missing",
			zap.String(logger.FieldJobID, jobID), zap.Error(err))
		return nil
	}
	log.Debug("stored job matrix has invalid fields",
		zap.String(logger.FieldJobID, jobID), zap.Error(err))
	return m
}

// EncodeMatchDocs serializes the JSON columns of a match row.
func EncodeMatchDocs(b scoring.Breakdown, gaps []Gap) ([]byte, []byte, error) {
	if gaps == nil {
		gaps = []Gap{}
	}
	breakdown, err := json.Marshal(b)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal breakdown: %w", err)
	}
	gapsDoc, err := json.Marshal(gaps)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal gaps: %w", err)
	}
	return breakdown, gapsDoc, nil
}

// DecodeMatchDocs fills the JSON columns of a scanned match row.
func DecodeMatchDocs(m *Match, breakdown, gaps []byte) error {
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &m.Breakdown); err != nil {
			return fmt.Errorf("unmarshal breakdown: %w", err)
		}
	}
	m.Gaps = []Gap{}
	if len(gaps) > 0 {
		if err := json.Unmarshal(gaps, &m.Gaps); err != nil {
			return fmt.Errorf("unmarshal gaps: %w", err)
		}
	}
	return nil
}

// Statements splits a schema script into individual statements.
func Statements(script string) []string {
	parts := strings.Split(script, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
