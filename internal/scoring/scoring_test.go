package scoring

import (
	"testing"

	"github.com/spigell/talent-matcher/internal/matrix"
)

func pythonCandidate() *matrix.CandidateMatrix {
	return &matrix.CandidateMatrix{
		Skills:               []matrix.Skill{{Name: "Python", Level: matrix.LevelAdvanced, YearsOfExperience: 5}},
		TotalYearsExperience: 5,
		LocationSignals:      matrix.LocationSignals{CurrentCountry: "Germany"},
	}
}

func TestScoreSkillsOnlyMatch(t *testing.T) {
	job := &matrix.JobMatrix{
		RequiredSkills:   []matrix.WeightedSkill{{Skill: "python", Weight: 90}},
		ExperienceWeight: 5,
		LocationWeight:   5,
		DomainWeight:     5,
	}

	res := Score(Input{
		Candidate:    pythonCandidate(),
		Job:          job,
		JobCountry:   "germany",
		LocationType: matrix.LocationOnsite,
		MinYears:     3,
	})

	if res.Breakdown.Skills != 100 {
		t.Fatalf("expected skills sub-score 100, got %d", res.Breakdown.Skills)
	}
	if res.Breakdown.Experience != 100 || res.Breakdown.Location != 100 {
		t.Fatalf("unexpected breakdown: %+v", res.Breakdown)
	}
	// Domain is neutral (no job domains): 85*100 + 5*100 + 5*50 + 5*100 = 97.5
	if res.Score != 98 {
		t.Fatalf("expected overall score 98, got %d", res.Score)
	}
	if len(res.MatchedRequired) != 1 || len(res.MissingRequired) != 0 {
		t.Fatalf("unexpected coverage: %+v / %+v", res.MatchedRequired, res.MissingRequired)
	}
}

func TestScoreRemoteGetsFullLocationCredit(t *testing.T) {
	for _, country := range []string{"", "Brazil", "Japan"} {
		res := Score(Input{
			Candidate:        pythonCandidate(),
			Job:              &matrix.JobMatrix{},
			CandidateCountry: country,
			JobCountry:       "United States",
			LocationType:     "Remote",
		})
		if res.Breakdown.Location != 100 {
			t.Fatalf("expected remote location credit 100 for %q, got %d", country, res.Breakdown.Location)
		}
	}
}

func TestScoreSkillsEdgeCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cand   *matrix.CandidateMatrix
		job    *matrix.JobMatrix
		expect int
	}{
		{
			name:   "no required skills is neutral",
			cand:   pythonCandidate(),
			job:    &matrix.JobMatrix{PreferredSkills: []matrix.WeightedSkill{{Skill: "Python", Weight: 50}}},
			expect: 50,
		},
		{
			name:   "empty candidate skills score zero",
			cand:   &matrix.CandidateMatrix{},
			job:    &matrix.JobMatrix{},
			expect: 0,
		},
		{
			name: "weighted required coverage",
			cand: pythonCandidate(),
			job: &matrix.JobMatrix{RequiredSkills: []matrix.WeightedSkill{
				{Skill: "Python", Weight: 75},
				{Skill: "Kubernetes", Weight: 25},
			}},
			expect: 75,
		},
		{
			name: "preferred skills contribute a smaller share",
			cand: pythonCandidate(),
			job: &matrix.JobMatrix{
				RequiredSkills:  []matrix.WeightedSkill{{Skill: "Python", Weight: 100}},
				PreferredSkills: []matrix.WeightedSkill{{Skill: "Airflow", Weight: 100}},
			},
			expect: 80,
		},
		{
			name: "zero weights count equally",
			cand: pythonCandidate(),
			job: &matrix.JobMatrix{RequiredSkills: []matrix.WeightedSkill{
				{Skill: "Python"}, {Skill: "Go"}, {Skill: "Rust"}, {Skill: "SQL"},
			}},
			expect: 25,
		},
		{
			name:   "no semantic matching",
			cand:   &matrix.CandidateMatrix{Skills: []matrix.Skill{{Name: "GenAI"}}},
			job:    &matrix.JobMatrix{RequiredSkills: []matrix.WeightedSkill{{Skill: "LLM", Weight: 100}}},
			expect: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := Score(Input{Candidate: tt.cand, Job: tt.job})
			if res.Breakdown.Skills != tt.expect {
				t.Fatalf("expected skills %d, got %d", tt.expect, res.Breakdown.Skills)
			}
		})
	}
}

func TestExperienceScore(t *testing.T) {
	tests := []struct {
		total, min float64
		expect     float64
	}{
		{total: 5, min: 0, expect: 100},
		{total: 10, min: 3, expect: 100},
		{total: 2, min: 4, expect: 50},
		{total: 0, min: 4, expect: 0},
		{total: -3, min: 4, expect: 0},
	}

	for _, tt := range tests {
		if got := experienceScore(tt.total, tt.min); got != tt.expect {
			t.Fatalf("experienceScore(%v, %v) = %v, want %v", tt.total, tt.min, got, tt.expect)
		}
	}
}

func TestDomainScore(t *testing.T) {
	if got := domainScore([]string{"fintech"}, nil); got != NeutralScore {
		t.Fatalf("expected neutral domain score, got %v", got)
	}
	if got := domainScore([]string{"FinTech", "payments"}, []string{"fintech", "banking"}); got != 50 {
		t.Fatalf("expected 50, got %v", got)
	}
	if got := domainScore(nil, []string{"healthcare"}); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestLocationScore(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		cand    string
		job     string
		signals matrix.LocationSignals
		expect  float64
	}{
		{name: "same country", kind: "onsite", cand: "France", job: "france", expect: 100},
		{name: "unknown job country", kind: "hybrid", cand: "France", expect: NeutralScore},
		{name: "willing to relocate anywhere", kind: "onsite", cand: "Spain", job: "France", signals: matrix.LocationSignals{WillingToRelocate: true}, expect: 80},
		{name: "willing to relocate elsewhere only", kind: "onsite", cand: "Spain", job: "France", signals: matrix.LocationSignals{WillingToRelocate: true, PreferredLocations: []string{"Italy"}}, expect: 20},
		{name: "preferred without relocation", kind: "onsite", cand: "Spain", job: "France", signals: matrix.LocationSignals{PreferredLocations: []string{"France"}}, expect: 60},
		{name: "mismatch", kind: "hybrid", cand: "Spain", job: "France", expect: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := locationScore(tt.kind, tt.cand, tt.job, tt.signals); got != tt.expect {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestScoreIsDeterministicAndBounded(t *testing.T) {
	cand := &matrix.CandidateMatrix{
		Skills: []matrix.Skill{
			{Name: "Go"}, {Name: "Postgres"}, {Name: "Kafka"},
		},
		TotalYearsExperience: 1,
		Domains:              []string{"logistics"},
		LocationSignals:      matrix.LocationSignals{CurrentCountry: "Poland"},
	}
	job := &matrix.JobMatrix{
		RequiredSkills:   []matrix.WeightedSkill{{Skill: "Go", Weight: 100}, {Skill: "gRPC", Weight: 60}},
		PreferredSkills:  []matrix.WeightedSkill{{Skill: "Kafka", Weight: 30}},
		ExperienceWeight: 90,
		LocationWeight:   90,
		DomainWeight:     90,
		Domains:          []string{"logistics", "retail"},
	}
	in := Input{Candidate: cand, Job: job, JobCountry: "Germany", LocationType: "onsite", MinYears: 6}

	first := Score(in)
	for i := 0; i < 10; i++ {
		if got := Score(in); got.Score != first.Score || got.Breakdown != first.Breakdown {
			t.Fatalf("score changed between runs: %+v vs %+v", first, got)
		}
	}

	if first.Score < 0 || first.Score > 100 {
		t.Fatalf("score out of bounds: %d", first.Score)
	}
	for name, v := range map[string]int{
		"skills":     first.Breakdown.Skills,
		"experience": first.Breakdown.Experience,
		"domain":     first.Breakdown.Domain,
		"location":   first.Breakdown.Location,
	} {
		if v < 0 || v > 100 {
			t.Fatalf("%s sub-score out of bounds: %d", name, v)
		}
	}
	if err := first.Weights.Validate(); err != nil {
		t.Fatalf("expected normalized weights, got %v", err)
	}
}

func TestScoreNilMatrices(t *testing.T) {
	res := Score(Input{})
	if res.Breakdown.Skills != 0 || res.Breakdown.Experience != 100 || res.Breakdown.Domain != 50 || res.Breakdown.Location != 50 {
		t.Fatalf("unexpected breakdown for empty input: %+v", res.Breakdown)
	}
}
