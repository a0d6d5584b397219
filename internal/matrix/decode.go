package matrix

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrUnreadableDocument is returned when a stored matrix is not a JSON object at all.
var ErrUnreadableDocument = errors.New("unreadable matrix document")

// DecodeCandidate converts a loosely typed map (stored JSON or an extraction response) into a
// CandidateMatrix. Decoding is best effort: the returned matrix is always usable and sanitized,
// and err only reports the fields that had to be dropped.
func DecodeCandidate(raw map[string]any) (*CandidateMatrix, error) {
	m := &CandidateMatrix{}
	err := decode(raw, m)
	m.Sanitize()
	return m, err
}

// DecodeJob is the JobMatrix counterpart of DecodeCandidate.
func DecodeJob(raw map[string]any) (*JobMatrix, error) {
	m := &JobMatrix{}
	err := decode(raw, m)
	m.Sanitize()
	return m, err
}

// DecodeCandidateJSON decodes a stored candidate matrix document.
func DecodeCandidateJSON(data []byte) (*CandidateMatrix, error) {
	raw, err := rawMap(data)
	if err != nil {
		return &CandidateMatrix{}, err
	}
	return DecodeCandidate(raw)
}

// DecodeJobJSON decodes a stored job matrix document.
func DecodeJobJSON(data []byte) (*JobMatrix, error) {
	raw, err := rawMap(data)
	if err != nil {
		return &JobMatrix{}, err
	}
	return DecodeJob(raw)
}

func rawMap(data []byte) (map[string]any, error) {
	var raw map[string]any
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	return raw, nil
}

func decode(raw map[string]any, out any) error {
	if raw == nil {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		MatchName:        matchName,
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("decode matrix: %w", err)
	}
	return nil
}

// matchName accepts camelCase, snake_case and kebab-case keys for the same field.
func matchName(mapKey, fieldName string) bool {
	fold := func(s string) string {
		s = strings.ReplaceAll(s, "_", "")
		s = strings.ReplaceAll(s, "-", "")
		return strings.ToLower(s)
	}
	return fold(mapKey) == fold(fieldName)
}

// Sanitize trims names, drops empty entries and clamps numbers into their valid ranges.
func (m *CandidateMatrix) Sanitize() {
	if m == nil {
		return
	}

	skills := make([]Skill, 0, len(m.Skills))
	for _, s := range m.Skills {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			continue
		}
		s.Level = NormalizeName(s.Level)
		s.YearsOfExperience = nonNegative(s.YearsOfExperience)
		skills = append(skills, s)
	}
	m.Skills = skills

	m.Roles = cleanList(m.Roles)
	m.Domains = cleanList(m.Domains)
	m.TotalYearsExperience = nonNegative(m.TotalYearsExperience)
	m.LocationSignals.CurrentCountry = strings.TrimSpace(m.LocationSignals.CurrentCountry)
	m.LocationSignals.PreferredLocations = cleanList(m.LocationSignals.PreferredLocations)
}

// Sanitize trims skill names, drops empty entries and clamps weights into [0,100].
func (m *JobMatrix) Sanitize() {
	if m == nil {
		return
	}

	m.RequiredSkills = cleanWeighted(m.RequiredSkills)
	m.PreferredSkills = cleanWeighted(m.PreferredSkills)
	m.ExperienceWeight = clampWeight(m.ExperienceWeight)
	m.LocationWeight = clampWeight(m.LocationWeight)
	m.DomainWeight = clampWeight(m.DomainWeight)
	m.Domains = cleanList(m.Domains)
}

func cleanWeighted(in []WeightedSkill) []WeightedSkill {
	out := make([]WeightedSkill, 0, len(in))
	for _, s := range in {
		s.Skill = strings.TrimSpace(s.Skill)
		if s.Skill == "" {
			continue
		}
		s.Weight = clampWeight(s.Weight)
		out = append(out, s)
	}
	return out
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func nonNegative(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	return v
}
