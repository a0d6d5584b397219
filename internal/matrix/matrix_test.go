package matrix

import (
	"errors"
	"math"
	"testing"
)

func TestNewWeights(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                         string
		experience, location, domain float64
		expect                       Weights
	}{
		{
			name:       "skills takes remainder",
			experience: 20, location: 10, domain: 10,
			expect: Weights{Skills: 60, Experience: 20, Location: 10, Domain: 10},
		},
		{
			name:   "zero weights leave everything to skills",
			expect: Weights{Skills: 100},
		},
		{
			name:       "oversized weights are scaled down to keep the skills floor",
			experience: 60, location: 30, domain: 30,
			expect: Weights{Skills: 40, Experience: 30, Location: 15, Domain: 15},
		},
		{
			name:       "negative weights are clamped",
			experience: -10, location: 10, domain: 0,
			expect: Weights{Skills: 90, Location: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NewWeights(tt.experience, tt.location, tt.domain)
			if !almostEqual(got.Skills, tt.expect.Skills) ||
				!almostEqual(got.Experience, tt.expect.Experience) ||
				!almostEqual(got.Location, tt.expect.Location) ||
				!almostEqual(got.Domain, tt.expect.Domain) {
				t.Fatalf("expected %+v, got %+v", tt.expect, got)
			}
			if err := got.Validate(); err != nil {
				t.Fatalf("expected valid weights, got %v", err)
			}
		})
	}
}

func TestWeightsValidateRejectsBadSum(t *testing.T) {
	w := Weights{Skills: 80, Experience: 30}
	if err := w.Validate(); err == nil {
		t.Fatalf("expected error for weights summing to %v", w.Sum())
	}
}

func TestDecodeCandidateToleratesLooseInput(t *testing.T) {
	raw := map[string]any{
		"skills": []any{
			map[string]any{"name": " Python ", "level": "Advanced", "years_of_experience": "5"},
			map[string]any{"name": "", "level": "expert"},
			map[string]any{"name": "Go", "yearsOfExperience": -2},
		},
		"total_years_experience": "6.5",
		"roles":                  []any{"Data Engineer", "  "},
		"location_signals": map[string]any{
			"current_country":     "Germany",
			"willing_to_relocate": "true",
		},
	}

	m, err := DecodeCandidate(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(m.Skills) != 2 {
		t.Fatalf("expected 2 skills, got %d", len(m.Skills))
	}
	if m.Skills[0].Name != "Python" || m.Skills[0].Level != LevelAdvanced || m.Skills[0].YearsOfExperience != 5 {
		t.Fatalf("unexpected first skill: %+v", m.Skills[0])
	}
	if m.Skills[1].YearsOfExperience != 0 {
		t.Fatalf("expected negative years clamped to 0, got %v", m.Skills[1].YearsOfExperience)
	}
	if m.TotalYearsExperience != 6.5 {
		t.Fatalf("expected 6.5 total years, got %v", m.TotalYearsExperience)
	}
	if len(m.Roles) != 1 {
		t.Fatalf("expected blank roles dropped, got %v", m.Roles)
	}
	if !m.LocationSignals.WillingToRelocate || m.LocationSignals.CurrentCountry != "Germany" {
		t.Fatalf("unexpected location signals: %+v", m.LocationSignals)
	}
	if m.Domains == nil || m.LocationSignals.PreferredLocations == nil {
		t.Fatalf("expected missing lists to decode as empty, not nil")
	}
}

func TestDecodeCandidateKeepsPartialResultOnBadField(t *testing.T) {
	raw := map[string]any{
		"totalYearsExperience": "not a number",
		"domains":              []any{"fintech"},
	}

	m, err := DecodeCandidate(raw)
	if err == nil {
		t.Fatalf("expected decode error for malformed field")
	}
	if m == nil {
		t.Fatalf("expected partial matrix")
	}
	if len(m.Domains) != 1 || m.Domains[0] != "fintech" {
		t.Fatalf("expected domains to survive, got %v", m.Domains)
	}
	if m.TotalYearsExperience != 0 {
		t.Fatalf("expected malformed years to default to 0, got %v", m.TotalYearsExperience)
	}
}

func TestDecodeJobJSON(t *testing.T) {
	doc := []byte(`{
		"requiredSkills": [{"skill": "Python", "weight": 90}, {"skill": "SQL", "weight": 250}],
		"preferredSkills": null,
		"experienceWeight": 15,
		"locationWeight": 5,
		"domainWeight": 10
	}`)

	m, err := DecodeJobJSON(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.RequiredSkills) != 2 || m.RequiredSkills[1].Weight != 100 {
		t.Fatalf("expected weight clamped to 100, got %+v", m.RequiredSkills)
	}
	if m.PreferredSkills == nil {
		t.Fatalf("expected preferred skills to default to empty")
	}

	w := m.Weights()
	if w.Skills != 70 {
		t.Fatalf("expected skills weight 70, got %v", w.Skills)
	}
}

func TestDecodeEmptyDocument(t *testing.T) {
	m, err := DecodeJobJSON(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Weights().Skills != 100 {
		t.Fatalf("expected all weight on skills for empty matrix")
	}
}

func TestDecodeUnreadableDocument(t *testing.T) {
	m, err := DecodeCandidateJSON([]byte("not json"))
	if !errors.Is(err, ErrUnreadableDocument) {
		t.Fatalf("expected ErrUnreadableDocument, got %v", err)
	}
	if m == nil {
		t.Fatalf("expected a usable empty matrix alongside the error")
	}

	if _, err := DecodeJobJSON([]byte(`{"experienceWeight": "lots"}`)); err == nil || errors.Is(err, ErrUnreadableDocument) {
		t.Fatalf("expected a field error that is not ErrUnreadableDocument, got %v", err)
	}
}

func TestParseSeniority(t *testing.T) {
	if got, err := ParseSeniority(" Principal "); err != nil || got != SeniorityPrincipal {
		t.Fatalf("expected principal, got %q (%v)", got, err)
	}
	if _, err := ParseSeniority("ceo"); err == nil {
		t.Fatalf("expected error for unknown seniority")
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
