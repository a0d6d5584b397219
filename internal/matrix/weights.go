package matrix

import (
	"fmt"
	"math"
)

const (
	// TotalWeight is the sum every Weights value must reach.
	TotalWeight = 100.0
	// MinSkillsWeight is the smallest share the skills dimension may be left with.
	MinSkillsWeight = 40.0
)

// Weights are the dimension weights used to combine sub-scores.
type Weights struct {
	Skills     float64 `json:"skills"`
	Experience float64 `json:"experience"`
	Domain     float64 `json:"domain"`
	Location   float64 `json:"location"`
}

// NewWeights builds weights from the three stored dimension weights. The skills dimension
// takes the remainder and never drops below MinSkillsWeight: when the stored weights ask for
// more they are scaled down proportionally.
func NewWeights(experience, location, domain float64) Weights {
	experience = clampWeight(experience)
	location = clampWeight(location)
	domain = clampWeight(domain)

	others := experience + location + domain
	if limit := TotalWeight - MinSkillsWeight; others > limit {
		factor := limit / others
		experience *= factor
		location *= factor
		domain *= factor
		others = limit
	}

	return Weights{
		Skills:     TotalWeight - others,
		Experience: experience,
		Domain:     domain,
		Location:   location,
	}
}

// Sum returns the total of the four weights.
func (w Weights) Sum() float64 {
	return w.Skills + w.Experience + w.Domain + w.Location
}

// Validate checks that all weights are non-negative and sum to TotalWeight.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"skills":     w.Skills,
		"experience": w.Experience,
		"domain":     w.Domain,
		"location":   w.Location,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%s weight must be non-negative, got %v", name, v)
		}
	}
	if math.Abs(w.Sum()-TotalWeight) > 1e-6 {
		return fmt.Errorf("weights must sum to %v, got %v", TotalWeight, w.Sum())
	}
	return nil
}

func clampWeight(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > TotalWeight {
		return TotalWeight
	}
	return v
}
