package filtering

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spigell/talent-matcher/internal/matrix"
)

var (
	internKeywords = []string{"intern", "internship", "trainee"}
	juniorKeywords = []string{"junior"}
)

const (
	// Intern-signalled candidates below this many years are never scored for senior roles.
	internMaxYears = 1.0
	// Junior-signalled candidates below this many years are never scored for lead roles.
	juniorMaxYears = 2.0
	// Candidates with at least this many years are not scored for internships.
	overqualifiedYears = 5.0
)

type seniorityRule struct {
	disabled bool
	reason   string
}

// NewSeniority creates a rule that rejects obvious seniority mismatches in both directions.
func NewSeniority() Rule {
	return &seniorityRule{}
}

func (r *seniorityRule) Name() string { return "seniority" }

func (r *seniorityRule) Disable(reason string) {
	r.disabled = true
	r.reason = reason
}

func (r *seniorityRule) IsEnabled() bool { return !r.disabled }

func (r *seniorityRule) Check(p Profile) Verdict {
	seniority := matrix.NormalizeName(p.Seniority)
	texts := append([]string{p.Headline}, p.Roles...)

	switch seniority {
	case matrix.SenioritySenior, matrix.SeniorityLead, matrix.SeniorityPrincipal:
		if p.TotalYears < internMaxYears && HasKeyword(texts, internKeywords...) {
			return reject(fmt.Sprintf("intern-level candidate for a %s role", seniority))
		}
	}

	switch seniority {
	case matrix.SeniorityLead, matrix.SeniorityPrincipal:
		if p.TotalYears < juniorMaxYears && HasKeyword(texts, juniorKeywords...) {
			return reject(fmt.Sprintf("junior-level candidate for a %s role", seniority))
		}
	case matrix.SeniorityInternship:
		if p.TotalYears >= overqualifiedYears {
			return reject(fmt.Sprintf("candidate with %.1f years is overqualified for an internship", p.TotalYears))
		}
	}

	return accept()
}

func (r *seniorityRule) Status() Status {
	return Status{
		Name:    r.Name(),
		Enabled: r.IsEnabled(),
		Reason:  r.reason,
		Details: map[string]string{
			"intern_keywords": strings.Join(internKeywords, ","),
			"junior_keywords": strings.Join(juniorKeywords, ","),
		},
	}
}

// HasKeyword reports whether any text contains one of the keywords as a whole word,
// case-insensitively. Whole-word matching keeps "International" from reading as "intern".
func HasKeyword(texts []string, keywords ...string) bool {
	want := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		want[strings.ToLower(k)] = struct{}{}
	}

	for _, text := range texts {
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			if _, ok := want[w]; ok {
				return true
			}
		}
	}
	return false
}
