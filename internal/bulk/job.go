// Package bulk runs matching and matrix regeneration over many candidates and jobs in the
// background and tracks their progress.
package bulk

import (
	"errors"
	"fmt"
	"time"
)

// Type selects what a bulk job does.
type Type string

const (
	TypeRegenerateMatrices Type = "regenerate-matrices"
	TypeRerunMatching      Type = "rerun-matching"
	TypeRegenerateAndMatch Type = "regenerate-and-match"
	// TypeJobMatching matches one or more jobs against the whole candidate pool.
	TypeJobMatching Type = "job-matching"
)

// ParseType converts a raw string to a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	switch t {
	case TypeRegenerateMatrices, TypeRerunMatching, TypeRegenerateAndMatch, TypeJobMatching:
		return t, nil
	}
	return "", fmt.Errorf("unknown bulk job type %q", s)
}

func (t Type) regenerates() bool {
	return t == TypeRegenerateMatrices || t == TypeRegenerateAndMatch
}

func (t Type) matches() bool {
	return t != TypeRegenerateMatrices
}

// Status is the lifecycle state of a bulk job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ErrNotFound is returned for an unknown bulk job id.
var ErrNotFound = errors.New("bulk job not found")

// Request describes a bulk job to start.
type Request struct {
	Type         Type     `json:"type"`
	CandidateIDs []string `json:"candidateIds,omitempty"`
	JobIDs       []string `json:"jobIds,omitempty"`
	// OnlyMissing limits regeneration to candidates without a matrix.
	OnlyMissing bool `json:"onlyMissing,omitempty"`
}

// Validate checks the request shape.
func (r Request) Validate() error {
	if _, err := ParseType(string(r.Type)); err != nil {
		return err
	}
	if r.Type == TypeJobMatching && len(r.JobIDs) == 0 {
		return errors.New("job-matching requires at least one job id")
	}
	return nil
}

// ItemError records one failed item.
type ItemError struct {
	CandidateID   string `json:"candidateId"`
	CandidateName string `json:"candidateName,omitempty"`
	JobID         string `json:"jobId,omitempty"`
	Error         string `json:"error"`
}

// Job is the status record of a bulk run. Succeeded and Failed add up to Processed;
// Skipped (ineligible pairs) and Matched (pairs at or above the listing threshold) are
// subsets of Succeeded.
type Job struct {
	ID          string      `json:"id"`
	Type        Type        `json:"type"`
	Status      Status      `json:"status"`
	Request     Request     `json:"request"`
	Total       int         `json:"total"`
	Processed   int         `json:"processed"`
	Succeeded   int         `json:"succeeded"`
	Failed      int         `json:"failed"`
	Skipped     int         `json:"skipped"`
	Matched     int         `json:"matched"`
	Errors      []ItemError `json:"errors"`
	CurrentItem string      `json:"currentItem,omitempty"`
	Error       string      `json:"error,omitempty"`
	StartedAt   time.Time   `json:"startedAt"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
}

func (j *Job) clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.Errors = append([]ItemError{}, j.Errors...)
	out.Request.CandidateIDs = append([]string(nil), j.Request.CandidateIDs...)
	out.Request.JobIDs = append([]string(nil), j.Request.JobIDs...)
	if j.CompletedAt != nil {
		at := *j.CompletedAt
		out.CompletedAt = &at
	}
	return &out
}
