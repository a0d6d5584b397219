package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/talent-matcher/internal/ai"
	"github.com/spigell/talent-matcher/internal/matrix"
	"github.com/spigell/talent-matcher/internal/store"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func TestExplainerExplain(t *testing.T) {
	stub := &stubGenerator{response: "```json\n" + `{
		"explanation": "Strong Python background, no Kubernetes.",
		"gaps": [
			{"type": "Skill", "description": "No Kubernetes experience", "severity": "high"},
			{"description": "Unclear domain fit"},
			"Relocation needed"
		]
	}` + "\n```"}
	core, observed := observer.New(zapcore.DebugLevel)
	explainer := NewExplainer(stub, zap.New(core), 50)

	got, err := explainer.Explain(context.Background(), ai.ExplainRequest{
		CandidateID:     "c1",
		JobID:           "j1",
		JobTitle:        "Data Engineer",
		CandidateSkills: []matrix.Skill{{Name: "Python"}},
		RequiredSkills:  []matrix.WeightedSkill{{Skill: "Python", Weight: 60}, {Skill: "Kubernetes", Weight: 40}},
		Score:           64,
		MissingRequired: []string{"Kubernetes"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Text != "Strong Python background, no Kubernetes." {
		t.Fatalf("unexpected explanation: %q", got.Text)
	}
	if len(got.Gaps) != 3 {
		t.Fatalf("expected 3 gaps, got %+v", got.Gaps)
	}
	if got.Gaps[0].Type != "skill" || got.Gaps[0].Severity != store.SeverityMajor {
		t.Fatalf("unexpected first gap: %+v", got.Gaps[0])
	}
	if got.Gaps[1].Type != "other" || got.Gaps[1].Severity != store.SeverityModerate {
		t.Fatalf("unexpected defaults: %+v", got.Gaps[1])
	}

	for _, want := range []string{"Score: 64", "without an exact match: Kubernetes", `"title": "Data Engineer"`} {
		if !strings.Contains(stub.lastPrompt, want) {
			t.Fatalf("expected prompt to contain %q", want)
		}
	}
	if strings.Contains(stub.lastPrompt, "{{") {
		t.Fatalf("prompt has unreplaced placeholders")
	}

	entries := observed.FilterMessage("gemini explain request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["candidate_id"] != "c1" || ctx["ai_model"] != "stub-model" {
		t.Fatalf("unexpected log context: %v", ctx)
	}
	if preview, _ := ctx["prompt_preview"].(string); len([]rune(preview)) > 53 {
		t.Fatalf("expected truncated preview, got %d runes", len([]rune(preview)))
	}
}

func TestExplainerErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		stub *stubGenerator
	}{
		{name: "generator failure", stub: &stubGenerator{err: errors.New("boom")}},
		{name: "not json", stub: &stubGenerator{response: "I think they fit well."}},
		{name: "empty object", stub: &stubGenerator{response: "{}"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewExplainer(tt.stub, nil, 0).Explain(context.Background(), ai.ExplainRequest{}); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```":        `{"a":1}`,
		"```\n{\"a\":1}```":              `{"a":1}`,
		"Here you go: {\"a\":1} thanks!": `{"a":1}`,
		"  {\"a\":1}  ":                  `{"a":1}`,
		"{\"a\":1} Hope this helps!":     `{"a":1}`,
	}
	for in, want := range tests {
		if got := extractJSON(in); got != want {
			t.Fatalf("extractJSON(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseExplanationIgnoresTrailingProse(t *testing.T) {
	got, err := parseExplanation("{\"explanation\":\"Strong Go overlap\",\"gaps\":[]} Hope this helps!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "Strong Go overlap" || len(got.Gaps) != 0 {
		t.Fatalf("unexpected explanation: %+v", got)
	}
}
