// Package scoring computes the deterministic compatibility score of a candidate for a job.
//
// Skills are compared by exact, case-insensitive name only. Semantic equivalence between
// differently named skills is left to the explanation layer and never affects the score.
package scoring

import (
	"math"

	"github.com/spigell/talent-matcher/internal/matrix"
)

const (
	// NeutralScore is used for a dimension the job gives no signal on.
	NeutralScore = 50.0
	// MaxScore is the upper bound of every sub-score and of the overall score.
	MaxScore = 100.0

	requiredShare  = 0.8
	preferredShare = 0.2

	relocationScore     = 80.0
	preferredPlaceScore = 60.0
	locationMismatch    = 20.0
)

// Input is everything the scorer looks at for one pair.
type Input struct {
	Candidate        *matrix.CandidateMatrix
	Job              *matrix.JobMatrix
	CandidateCountry string
	JobCountry       string
	LocationType     string
	MinYears         float64
	Seniority        string
	Headline         string
	Roles            []string
}

// Breakdown holds the four dimension sub-scores, each in [0,100].
type Breakdown struct {
	Skills     int `json:"skills"`
	Experience int `json:"experience"`
	Domain     int `json:"domain"`
	Location   int `json:"location"`
}

// Result is the outcome of scoring one pair.
type Result struct {
	Score     int
	Breakdown Breakdown
	Weights   matrix.Weights

	MatchedRequired  []string
	MissingRequired  []string
	MatchedPreferred []string
	MissingPreferred []string
}

// Score computes the weighted overall score and the breakdown. It never fails: missing
// lists are treated as empty and missing numbers as zero.
func Score(in Input) Result {
	cand := in.Candidate
	if cand == nil {
		cand = &matrix.CandidateMatrix{}
	}
	job := in.Job
	if job == nil {
		job = &matrix.JobMatrix{}
	}

	skills, coverage := skillsScore(cand, job)
	experience := experienceScore(cand.TotalYearsExperience, in.MinYears)
	domain := domainScore(cand.Domains, job.Domains)

	candidateCountry := in.CandidateCountry
	if candidateCountry == "" {
		candidateCountry = cand.LocationSignals.CurrentCountry
	}
	location := locationScore(in.LocationType, candidateCountry, in.JobCountry, cand.LocationSignals)

	weights := job.Weights()
	overall := (weights.Skills*skills +
		weights.Experience*experience +
		weights.Domain*domain +
		weights.Location*location) / matrix.TotalWeight

	return Result{
		Score: round(overall),
		Breakdown: Breakdown{
			Skills:     round(skills),
			Experience: round(experience),
			Domain:     round(domain),
			Location:   round(location),
		},
		Weights:          weights,
		MatchedRequired:  coverage.matchedRequired,
		MissingRequired:  coverage.missingRequired,
		MatchedPreferred: coverage.matchedPreferred,
		MissingPreferred: coverage.missingPreferred,
	}
}

type skillCoverage struct {
	matchedRequired  []string
	missingRequired  []string
	matchedPreferred []string
	missingPreferred []string
}

func skillsScore(cand *matrix.CandidateMatrix, job *matrix.JobMatrix) (float64, skillCoverage) {
	have := make(map[string]struct{}, len(cand.Skills))
	for _, s := range cand.Skills {
		if name := matrix.NormalizeName(s.Name); name != "" {
			have[name] = struct{}{}
		}
	}

	var (
		cov                 skillCoverage
		required, preferred float64
	)
	required, cov.matchedRequired, cov.missingRequired = coverage(have, job.RequiredSkills)
	preferred, cov.matchedPreferred, cov.missingPreferred = coverage(have, job.PreferredSkills)

	switch {
	case len(have) == 0:
		return 0, cov
	case len(job.RequiredSkills) == 0:
		return NeutralScore, cov
	case len(job.PreferredSkills) == 0:
		return clamp(MaxScore * required), cov
	default:
		return clamp(MaxScore * (requiredShare*required + preferredShare*preferred)), cov
	}
}

// coverage returns the matched share of the total weight. A list whose weights are all zero
// counts every skill equally.
func coverage(have map[string]struct{}, wanted []matrix.WeightedSkill) (float64, []string, []string) {
	matched := make([]string, 0, len(wanted))
	missing := make([]string, 0, len(wanted))

	var total, got float64
	for _, s := range wanted {
		total += nonNegative(s.Weight)
	}
	equal := total == 0

	for _, s := range wanted {
		weight := nonNegative(s.Weight)
		if equal {
			weight = 1
		}
		if _, ok := have[matrix.NormalizeName(s.Skill)]; ok {
			got += weight
			matched = append(matched, s.Skill)
			continue
		}
		missing = append(missing, s.Skill)
	}

	if equal {
		total = float64(len(wanted))
	}
	if total == 0 {
		return 0, matched, missing
	}
	return got / total, matched, missing
}

func experienceScore(total, minYears float64) float64 {
	total = nonNegative(total)
	minYears = nonNegative(minYears)
	if minYears == 0 || total >= minYears {
		return MaxScore
	}
	return clamp(MaxScore * total / minYears)
}

func domainScore(candidate, job []string) float64 {
	if len(job) == 0 {
		return NeutralScore
	}

	have := make(map[string]struct{}, len(candidate))
	for _, d := range candidate {
		have[matrix.NormalizeName(d)] = struct{}{}
	}

	var matched, total int
	seen := make(map[string]struct{}, len(job))
	for _, d := range job {
		name := matrix.NormalizeName(d)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		total++
		if _, ok := have[name]; ok {
			matched++
		}
	}

	if total == 0 {
		return NeutralScore
	}
	return clamp(MaxScore * float64(matched) / float64(total))
}

func locationScore(locationType, candidateCountry, jobCountry string, signals matrix.LocationSignals) float64 {
	if matrix.NormalizeName(locationType) == matrix.LocationRemote {
		return MaxScore
	}

	job := matrix.NormalizeName(jobCountry)
	if job == "" {
		return NeutralScore
	}
	if matrix.NormalizeName(candidateCountry) == job {
		return MaxScore
	}

	preferred := false
	for _, p := range signals.PreferredLocations {
		if matrix.NormalizeName(p) == job {
			preferred = true
			break
		}
	}

	switch {
	case signals.WillingToRelocate && (preferred || len(signals.PreferredLocations) == 0):
		return relocationScore
	case preferred:
		return preferredPlaceScore
	default:
		return locationMismatch
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func round(v float64) int {
	return int(math.Round(clamp(v)))
}
