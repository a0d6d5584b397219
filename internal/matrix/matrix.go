// Package matrix holds the structured representations extracted from CVs and job postings.
package matrix

import (
	"fmt"
	"strings"
)

// Skill levels reported by the extraction service.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
	LevelExpert       = "expert"
)

// Seniority levels of a job.
const (
	SeniorityInternship = "internship"
	SeniorityJunior     = "junior"
	SeniorityMid        = "mid"
	SenioritySenior     = "senior"
	SeniorityLead       = "lead"
	SeniorityPrincipal  = "principal"
)

// Location types of a job.
const (
	LocationOnsite = "onsite"
	LocationHybrid = "hybrid"
	LocationRemote = "remote"
)

type Skill struct {
	Name              string  `json:"name" mapstructure:"name"`
	Level             string  `json:"level" mapstructure:"level"`
	YearsOfExperience float64 `json:"yearsOfExperience" mapstructure:"yearsOfExperience"`
}

type LocationSignals struct {
	CurrentCountry     string   `json:"currentCountry" mapstructure:"currentCountry"`
	WillingToRelocate  bool     `json:"willingToRelocate" mapstructure:"willingToRelocate"`
	PreferredLocations []string `json:"preferredLocations" mapstructure:"preferredLocations"`
}

// CandidateMatrix is the skill matrix extracted from a candidate's CV.
type CandidateMatrix struct {
	Skills               []Skill         `json:"skills" mapstructure:"skills"`
	Roles                []string        `json:"roles" mapstructure:"roles"`
	TotalYearsExperience float64         `json:"totalYearsExperience" mapstructure:"totalYearsExperience"`
	Domains              []string        `json:"domains" mapstructure:"domains"`
	LocationSignals      LocationSignals `json:"locationSignals" mapstructure:"locationSignals"`
}

type WeightedSkill struct {
	Skill  string  `json:"skill" mapstructure:"skill"`
	Weight float64 `json:"weight" mapstructure:"weight"`
}

// JobMatrix is the requirement matrix extracted from a job posting.
type JobMatrix struct {
	RequiredSkills   []WeightedSkill `json:"requiredSkills" mapstructure:"requiredSkills"`
	PreferredSkills  []WeightedSkill `json:"preferredSkills" mapstructure:"preferredSkills"`
	ExperienceWeight float64         `json:"experienceWeight" mapstructure:"experienceWeight"`
	LocationWeight   float64         `json:"locationWeight" mapstructure:"locationWeight"`
	DomainWeight     float64         `json:"domainWeight" mapstructure:"domainWeight"`
	Domains          []string        `json:"domains,omitempty" mapstructure:"domains"`
}

// Weights returns the explicit four-dimension weights of the matrix.
func (m *JobMatrix) Weights() Weights {
	if m == nil {
		return NewWeights(0, 0, 0)
	}
	return NewWeights(m.ExperienceWeight, m.LocationWeight, m.DomainWeight)
}

// NormalizeName folds a free-text skill, domain or country name for comparison.
func NormalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ParseSeniority validates a seniority level, case-insensitively.
func ParseSeniority(s string) (string, error) {
	switch v := NormalizeName(s); v {
	case SeniorityInternship, SeniorityJunior, SeniorityMid, SenioritySenior, SeniorityLead, SeniorityPrincipal:
		return v, nil
	case "":
		return "", nil
	}
	return "", fmt.Errorf("unknown seniority level %q", s)
}

// ParseLocationType validates a location type, case-insensitively.
func ParseLocationType(s string) (string, error) {
	switch v := NormalizeName(s); v {
	case LocationOnsite, LocationHybrid, LocationRemote:
		return v, nil
	case "":
		return "", nil
	}
	return "", fmt.Errorf("unknown location type %q", s)
}
