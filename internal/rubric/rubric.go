// Package rubric applies per-theme, per-stage evidence criteria to produce a
// maturity stage (0-4) with confidence and rationale.
package rubric

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/stagegate/internal/domain"
)

// Evidence-sufficiency gate defaults, used when a theme's stage-1 criteria
// leave them unset.
const (
	DefaultMinQuotes = 2
	DefaultMinPages  = 2
)

// StageCriteria is the rubric-defined signal set for one stage of one theme.
type StageCriteria struct {
	RequiredSignals []string `yaml:"required_signals" json:"required_signals"`
	MinQuotes       int      `yaml:"min_quotes" json:"min_quotes"`
	MinPages        int      `yaml:"min_pages" json:"min_pages"`
}

// ThemeRubric maps stage (1-4) to its criteria.
type ThemeRubric map[int]StageCriteria

// Definition maps theme code to its rubric.
type Definition map[string]ThemeRubric

// Load reads a rubric definition from a YAML file.
func Load(path string) (Definition, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read rubric %s: %w", path, err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse rubric: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rubric: %w", err)
	}
	return def, nil
}

// Validate checks stage numbers and signal sets.
func (d Definition) Validate() error {
	if len(d) == 0 {
		return fmt.Errorf("no themes defined")
	}
	for theme, stages := range d {
		if len(stages) == 0 {
			return fmt.Errorf("theme %s: no stages defined", theme)
		}
		for stage, c := range stages {
			if stage < 1 || stage > domain.MaxStage {
				return fmt.Errorf("theme %s: stage %d out of range 1-%d", theme, stage, domain.MaxStage)
			}
			if len(c.RequiredSignals) == 0 {
				return fmt.Errorf("theme %s stage %d: required_signals is empty", theme, stage)
			}
		}
	}
	return nil
}

// Themes returns the configured theme codes in sorted order.
func (d Definition) Themes() []string {
	themes := make([]string, 0, len(d))
	for t := range d {
		themes = append(themes, t)
	}
	sort.Strings(themes)
	return themes
}

// gate returns the evidence-sufficiency thresholds for a theme: the stage-1
// criteria when set, package defaults otherwise.
func (d Definition) gate(theme string) (minQuotes, minPages int) {
	minQuotes, minPages = DefaultMinQuotes, DefaultMinPages
	if c, ok := d[theme][1]; ok {
		if c.MinQuotes > 0 {
			minQuotes = c.MinQuotes
		}
		if c.MinPages > 0 {
			minPages = c.MinPages
		}
	}
	return minQuotes, minPages
}
