package filtering

import (
	"fmt"
	"strconv"
)

// DefaultExperienceTolerance is how many years below the job minimum a candidate may be
// and still be scored.
const DefaultExperienceTolerance = 2.0

type experienceFloor struct {
	disabled  bool
	reason    string
	tolerance float64
}

// NewExperienceFloor creates a rule that rejects candidates whose total experience is below
// the job minimum by more than tolerance years.
func NewExperienceFloor(tolerance float64) Rule {
	if tolerance < 0 {
		tolerance = 0
	}
	return &experienceFloor{tolerance: tolerance}
}

func (r *experienceFloor) Name() string { return "experience_floor" }

func (r *experienceFloor) Disable(reason string) {
	r.disabled = true
	r.reason = reason
}

func (r *experienceFloor) IsEnabled() bool { return !r.disabled }

func (r *experienceFloor) Check(p Profile) Verdict {
	if p.MinYears <= 0 {
		return accept()
	}

	if shortfall := p.MinYears - p.TotalYears; shortfall > r.tolerance {
		return reject(fmt.Sprintf("candidate has %.1f years of experience, job requires %.1f", p.TotalYears, p.MinYears))
	}

	return accept()
}

func (r *experienceFloor) Status() Status {
	return Status{
		Name:    r.Name(),
		Enabled: r.IsEnabled(),
		Reason:  r.reason,
		Details: map[string]string{
			"tolerance_years": strconv.FormatFloat(r.tolerance, 'f', -1, 64),
		},
	}
}
