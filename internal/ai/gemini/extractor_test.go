package gemini

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestExtractCandidateMatrix(t *testing.T) {
	stub := &stubGenerator{response: `{
		"skills": [{"name": " Go ", "level": "advanced", "years_of_experience": "4"}, {"name": ""}],
		"roles": ["Backend Engineer"],
		"totalYearsExperience": "6.5",
		"domains": ["fintech"],
		"locationSignals": {"currentCountry": "Germany", "willingToRelocate": "true"}
	}`}

	m, err := NewExtractor(stub, nil, 0).ExtractCandidateMatrix(context.Background(), "Go developer, 6 years")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Skills) != 1 || m.Skills[0].Name != "Go" || m.Skills[0].YearsOfExperience != 4 {
		t.Fatalf("unexpected skills: %+v", m.Skills)
	}
	if m.TotalYearsExperience != 6.5 || !m.LocationSignals.WillingToRelocate {
		t.Fatalf("unexpected matrix: %+v", m)
	}
	if !strings.Contains(stub.lastPrompt, "Go developer, 6 years") {
		t.Fatalf("expected cv text in prompt")
	}
}

func TestExtractCandidateMatrixKeepsPartialResult(t *testing.T) {
	stub := &stubGenerator{response: `{"skills": [{"name": "SQL"}], "totalYearsExperience": {"nested": true}}`}
	core, observed := observer.New(zapcore.WarnLevel)

	m, err := NewExtractor(stub, zap.New(core), 0).ExtractCandidateMatrix(context.Background(), "cv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Skills) != 1 || m.TotalYearsExperience != 0 {
		t.Fatalf("unexpected partial matrix: %+v", m)
	}
	if observed.Len() != 1 {
		t.Fatalf("expected a warning about dropped fields, got %d entries", observed.Len())
	}
}

func TestExtractJobMatrix(t *testing.T) {
	stub := &stubGenerator{response: "```json\n" + `{
		"requiredSkills": [{"skill": "Go", "weight": 80}],
		"preferredSkills": [{"skill": "Kafka", "weight": "40"}],
		"experienceWeight": 15,
		"domains": ["logistics"]
	}` + "\n```"}

	m, err := NewExtractor(stub, nil, 0).ExtractJobMatrix(context.Background(),
		"Backend Engineer", "Build services", []string{"Go"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.RequiredSkills) != 1 || len(m.PreferredSkills) != 1 || m.PreferredSkills[0].Weight != 40 {
		t.Fatalf("unexpected job matrix: %+v", m)
	}
	if !strings.Contains(stub.lastPrompt, "Must have: Go") || !strings.Contains(stub.lastPrompt, "Nice to have: none") {
		t.Fatalf("unexpected prompt: %s", stub.lastPrompt)
	}
}

func TestExtractRejectsEmptyInput(t *testing.T) {
	x := NewExtractor(&stubGenerator{response: "{}"}, nil, 0)
	if _, err := x.ExtractCandidateMatrix(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty cv")
	}
	if _, err := x.ExtractJobMatrix(context.Background(), "", "", nil, nil); err == nil {
		t.Fatalf("expected error for empty posting")
	}
}
