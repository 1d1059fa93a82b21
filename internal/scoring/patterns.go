// Package scoring provides heuristic keyword scoring for keyscout.
package scoring

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Patterns holds the static term tables the scorer matches keywords against.
// All terms are matched as lowercase substrings.
type Patterns struct {
	HighCompetition   []string `yaml:"high_competition" json:"highCompetition"`
	MediumCompetition []string `yaml:"medium_competition" json:"mediumCompetition"`
	LowCompetition    []string `yaml:"low_competition" json:"lowCompetition"`
	Trending          []string `yaml:"trending" json:"trending"`
}

// DefaultPatterns returns the built-in pattern tables.
func DefaultPatterns() Patterns {
	return Patterns{
		HighCompetition:   []string{"tutorial", "how to", "best", "review", "top 10", "guide"},
		MediumCompetition: []string{"tips", "tricks", "explained", "walkthrough", "demo"},
		LowCompetition:    []string{"mistakes", "underrated", "hidden", "secret", "advanced"},
		Trending:          []string{"ai", "chatgpt", "automation", "2025", "2024", "shorts", "viral"},
	}
}

// ErrEmptyPatternTable is returned when a loaded table has no usable terms.
var ErrEmptyPatternTable = errors.New("pattern table is empty")

// LoadPatterns reads pattern tables from a YAML file. Tables missing from the
// file keep their default terms.
func LoadPatterns(path string) (Patterns, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Patterns{}, fmt.Errorf("read patterns file: %w", err)
	}
	return ParsePatterns(data)
}

// ParsePatterns decodes YAML pattern tables over the defaults.
func ParsePatterns(data []byte) (Patterns, error) {
	var raw struct {
		HighCompetition   *[]string `yaml:"high_competition"`
		MediumCompetition *[]string `yaml:"medium_competition"`
		LowCompetition    *[]string `yaml:"low_competition"`
		Trending          *[]string `yaml:"trending"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Patterns{}, fmt.Errorf("parse patterns: %w", err)
	}

	p := DefaultPatterns()
	tables := []struct {
		name string
		src  *[]string
		dst  *[]string
	}{
		{"high_competition", raw.HighCompetition, &p.HighCompetition},
		{"medium_competition", raw.MediumCompetition, &p.MediumCompetition},
		{"low_competition", raw.LowCompetition, &p.LowCompetition},
		{"trending", raw.Trending, &p.Trending},
	}
	for _, t := range tables {
		if t.src == nil {
			continue
		}
		terms := normalizeTerms(*t.src)
		if len(terms) == 0 {
			return Patterns{}, fmt.Errorf("%s: %w", t.name, ErrEmptyPatternTable)
		}
		*t.dst = terms
	}
	return p, nil
}

// clone returns a deep copy so a Scorer never shares slices with its caller.
func (p Patterns) clone() Patterns {
	return Patterns{
		HighCompetition:   append([]string(nil), p.HighCompetition...),
		MediumCompetition: append([]string(nil), p.MediumCompetition...),
		LowCompetition:    append([]string(nil), p.LowCompetition...),
		Trending:          append([]string(nil), p.Trending...),
	}
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// firstMatch returns the first term contained in s. Scanning stops at the first hit.
func firstMatch(s string, terms []string) (string, bool) {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return t, true
		}
	}
	return "", false
}
