// Package ai declares the contracts of the language-model collaborators: the match
// explainer and the matrix extractor.
package ai

import (
	"context"

	"github.com/spigell/talent-matcher/internal/matrix"
	"github.com/spigell/talent-matcher/internal/store"
)

// ExplainRequest is what the explainer sees about one scored pair.
type ExplainRequest struct {
	CandidateID string
	JobID       string
	JobTitle    string

	CandidateSkills []matrix.Skill
	TotalYears      float64
	Domains         []string
	Location        matrix.LocationSignals

	RequiredSkills  []matrix.WeightedSkill
	PreferredSkills []matrix.WeightedSkill
	MinYears        float64

	Score           int
	MissingRequired []string
}

// Explanation is the explainer's annotation of a match.
type Explanation struct {
	Text string
	Gaps []store.Gap
}

// Explainer turns a computed score into human-readable text and a gap list.
type Explainer interface {
	Explain(ctx context.Context, req ExplainRequest) (*Explanation, error)
}

// Extractor builds structured matrices from free text.
type Extractor interface {
	ExtractCandidateMatrix(ctx context.Context, cvText string) (*matrix.CandidateMatrix, error)
	ExtractJobMatrix(ctx context.Context, title, description string, mustHave, niceToHave []string) (*matrix.JobMatrix, error)
}
