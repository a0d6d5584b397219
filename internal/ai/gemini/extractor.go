package gemini

import (
	"context"
	_ "embed"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/talent-matcher/internal/ai"
	"github.com/spigell/talent-matcher/internal/logger"
	"github.com/spigell/talent-matcher/internal/matrix"
	"github.com/spigell/talent-matcher/internal/utils"
)

var (
	//go:embed prompts/candidate_matrix.md
	candidateTemplate string
	//go:embed prompts/job_matrix.md
	jobTemplate string
)

// Extractor asks Gemini to build candidate and job matrices from free text.
type Extractor struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.Extractor = (*Extractor)(nil)

func NewExtractor(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{generator: generator, logger: logger, maxLogLen: maxLogLength}
}

// ExtractCandidateMatrix builds a candidate matrix from CV text. Fields the model gets
// wrong are dropped with a warning; the rest of the matrix is kept.
func (x *Extractor) ExtractCandidateMatrix(ctx context.Context, cvText string) (*matrix.CandidateMatrix, error) {
	cvText = strings.TrimSpace(cvText)
	if cvText == "" {
		return nil, errors.New("cv text must not be empty")
	}

	raw, err := x.generate(ctx, "candidate_matrix", render(candidateTemplate, map[string]string{
		"CV_TEXT": cvText,
	}))
	if err != nil {
		return nil, err
	}

	doc, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	m, err := matrix.DecodeCandidate(doc)
	if err != nil {
		x.logger.Warn("dropped invalid candidate matrix fields", zap.Error(err))
	}
	return m, nil
}

// ExtractJobMatrix builds a job matrix from a posting.
func (x *Extractor) ExtractJobMatrix(ctx context.Context, title, description string, mustHave, niceToHave []string) (*matrix.JobMatrix, error) {
	if strings.TrimSpace(title) == "" && strings.TrimSpace(description) == "" && len(mustHave) == 0 {
		return nil, errors.New("job posting is empty")
	}

	raw, err := x.generate(ctx, "job_matrix", render(jobTemplate, map[string]string{
		"TITLE":        strings.TrimSpace(title),
		"DESCRIPTION":  strings.TrimSpace(description),
		"MUST_HAVE":    listOrNone(mustHave),
		"NICE_TO_HAVE": listOrNone(niceToHave),
	}))
	if err != nil {
		return nil, err
	}

	doc, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	m, err := matrix.DecodeJob(doc)
	if err != nil {
		x.logger.Warn("dropped invalid job matrix fields", zap.Error(err))
	}
	return m, nil
}

func (x *Extractor) generate(ctx context.Context, kind, prompt string) (string, error) {
	if x == nil || x.generator == nil {
		return "", errors.New("gemini extractor is not initialized")
	}

	log := logger.WithCommonFields(x.logger, providerName, x.generator.Model())
	log.Debug("gemini extract request",
		zap.String("kind", kind),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, x.maxLogLen)),
	)

	raw, err := x.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}

	log.Debug("gemini extract response",
		zap.String("kind", kind),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, x.maxLogLen)),
	)
	return raw, nil
}
