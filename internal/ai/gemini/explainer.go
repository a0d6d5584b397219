package gemini

import (
	"context"
	_ "embed"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/talent-matcher/internal/ai"
	"github.com/spigell/talent-matcher/internal/logger"
	"github.com/spigell/talent-matcher/internal/store"
	"github.com/spigell/talent-matcher/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

//go:embed prompts/explain.md
var explainTemplate string

const defaultMaxLogLength = 200

// Explainer asks Gemini to describe a computed match.
type Explainer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.Explainer = (*Explainer)(nil)

func NewExplainer(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Explainer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Explainer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (e *Explainer) Explain(ctx context.Context, req ai.ExplainRequest) (*ai.Explanation, error) {
	if e == nil || e.generator == nil {
		return nil, errors.New("gemini explainer is not initialized")
	}

	prompt := buildExplainPrompt(req)
	log := logger.WithFields(e.logger, logger.PairFields(req.CandidateID, req.JobID)...)
	log = logger.WithCommonFields(log, providerName, e.generator.Model())

	log.Debug("gemini explain request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	log.Debug("gemini explain response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	return parseExplanation(raw)
}

func buildExplainPrompt(req ai.ExplainRequest) string {
	candidate := map[string]any{
		"skills":               req.CandidateSkills,
		"totalYearsExperience": req.TotalYears,
		"domains":              req.Domains,
		"locationSignals":      req.Location,
	}
	job := map[string]any{
		"title":              req.JobTitle,
		"requiredSkills":     req.RequiredSkills,
		"preferredSkills":    req.PreferredSkills,
		"minYearsExperience": req.MinYears,
	}

	return render(explainTemplate, map[string]string{
		"CANDIDATE_JSON":   toJSON(candidate),
		"JOB_JSON":         toJSON(job),
		"SCORE":            strconv.Itoa(req.Score),
		"MISSING_REQUIRED": listOrNone(req.MissingRequired),
	})
}

func parseExplanation(raw string) (*ai.Explanation, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	out := &ai.Explanation{
		Text: coerceString(data["explanation"]),
		Gaps: []store.Gap{},
	}

	items, _ := data["gaps"].([]any)
	for _, item := range items {
		switch val := item.(type) {
		case map[string]any:
			gap := store.Gap{
				Type:        strings.ToLower(coerceString(val["type"])),
				Description: coerceString(val["description"]),
				Severity:    normalizeSeverity(coerceString(val["severity"])),
			}
			if gap.Description == "" {
				continue
			}
			if gap.Type == "" {
				gap.Type = "other"
			}
			out.Gaps = append(out.Gaps, gap)
		case string:
			if desc := strings.TrimSpace(val); desc != "" {
				out.Gaps = append(out.Gaps, store.Gap{Type: "other", Description: desc, Severity: store.SeverityModerate})
			}
		}
	}

	if out.Text == "" && len(out.Gaps) == 0 {
		return nil, errors.New("gemini response has neither explanation nor gaps")
	}
	return out, nil
}

func normalizeSeverity(s string) string {
	switch strings.ToLower(s) {
	case store.SeverityMinor, "low":
		return store.SeverityMinor
	case store.SeverityMajor, "high", "critical":
		return store.SeverityMajor
	default:
		return store.SeverityModerate
	}
}
