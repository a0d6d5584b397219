// Package filtering decides whether a candidate should be scored against a job at all.
//
// The gate is a list of named rules evaluated in order; the first rule that rejects the
// pair decides. Rules are pure: they look only at the Profile they are given.
package filtering

import (
	"go.uber.org/zap"

	"github.com/spigell/talent-matcher/internal/matrix"
)

// Profile is everything the rules may look at for one candidate/job pair.
type Profile struct {
	Candidate  *matrix.CandidateMatrix
	Job        *matrix.JobMatrix
	TotalYears float64
	MinYears   float64
	Seniority  string
	Headline   string
	Roles      []string
}

// Verdict is the outcome of a rule or of the whole filter.
type Verdict struct {
	Eligible bool
	Rule     string
	Reason   string
}

// Rule represents a single eligibility check.
type Rule interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Check(p Profile) Verdict
}

// Status represents runtime information about a rule.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by rules that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Filter evaluates rules in order.
type Filter struct {
	rules  []Rule
	logger *zap.Logger
}

// New creates a filter from the supplied rules.
func New(logger *zap.Logger, rules ...Rule) *Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{rules: rules, logger: logger}
}

// Default returns the standard gate: experience floor followed by seniority mismatch.
func Default(logger *zap.Logger) *Filter {
	return New(logger,
		NewExperienceFloor(DefaultExperienceTolerance),
		NewSeniority(),
	)
}

// Evaluate runs the enabled rules and returns the first rejection, or an eligible verdict.
func (f *Filter) Evaluate(p Profile) Verdict {
	p = withDefaults(p)

	for _, rule := range f.rules {
		if !rule.IsEnabled() {
			continue
		}

		verdict := rule.Check(p)
		if !verdict.Eligible {
			verdict.Rule = rule.Name()
			f.logger.Debug("pair rejected by eligibility rule",
				zap.String("rule", verdict.Rule),
				zap.String("reason", verdict.Reason),
			)
			return verdict
		}
	}

	return Verdict{Eligible: true}
}

// ShouldConsider reports whether the pair passes the gate.
func (f *Filter) ShouldConsider(p Profile) bool {
	return f.Evaluate(p).Eligible
}

// Rules returns the configured rules.
func (f *Filter) Rules() []Rule {
	return f.rules
}

// DisableByName marks a rule with the provided name as disabled while keeping it in the list.
func DisableByName(rules []Rule, name, reason string) {
	for _, rule := range rules {
		if rule.Name() == name {
			rule.Disable(reason)
		}
	}
}

// Describe returns status entries for the provided rules.
func Describe(rules []Rule) []Status {
	statuses := make([]Status, 0, len(rules))
	for _, rule := range rules {
		if reporter, ok := rule.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    rule.Name(),
			Enabled: rule.IsEnabled(),
		})
	}
	return statuses
}

func withDefaults(p Profile) Profile {
	if p.Candidate == nil {
		p.Candidate = &matrix.CandidateMatrix{}
	}
	if p.Job == nil {
		p.Job = &matrix.JobMatrix{}
	}
	if p.TotalYears < 0 || p.TotalYears != p.TotalYears {
		p.TotalYears = 0
	}
	if p.MinYears < 0 || p.MinYears != p.MinYears {
		p.MinYears = 0
	}
	if len(p.Roles) == 0 {
		p.Roles = p.Candidate.Roles
	}
	return p
}

func accept() Verdict {
	return Verdict{Eligible: true}
}

func reject(reason string) Verdict {
	return Verdict{Eligible: false, Reason: reason}
}
