// Package templates matches learner metrics against canned advising
// responses and renders the best one without calling the backend.
package templates

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Metric names usable in conditions. Per-skill scores use the "skill."
// prefix followed by the survey area key.
const (
	MetricSkillsAvg        = "skills_avg"
	MetricGradesAvg        = "grades_avg"
	MetricGradeConsistency = "grade_consistency"
	MetricGradeCountBelowC = "grade_count_below_c"
	MetricMajor            = "major"
	MetricWeakSkill        = "weak_skill"

	skillMetricPrefix = "skill."
)

// Condition is one requirement of a template. Numeric metrics use an
// inclusive Min/Max range, major uses OneOf, weak_skill uses Contains.
type Condition struct {
	Metric   string   `yaml:"metric" json:"metric"`
	Min      *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max      *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	OneOf    []string `yaml:"one_of,omitempty" json:"one_of,omitempty"`
	Contains string   `yaml:"contains,omitempty" json:"contains,omitempty"`
}

// Template is a canned response.
type Template struct {
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description" json:"description"`
	Conditions  []Condition `yaml:"conditions" json:"conditions"`
	Body        string      `yaml:"body" json:"-"`
	Confidence  int         `yaml:"confidence" json:"confidence"`
}

type templateFile struct {
	Templates []Template `yaml:"templates"`
}

var placeholderPattern = regexp.MustCompile(`\{([a-z0-9_]+)\}`)

// Placeholders returns the distinct placeholder names used in the body, in
// order of first appearance.
func (t *Template) Placeholders() []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(t.Body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Defaults returns the built-in template set.
func Defaults() ([]Template, error) {
	return Parse(defaultsYAML)
}

// Load reads templates from path. An empty path selects the built-in set.
func Load(path string) ([]Template, error) {
	if path == "" {
		return Defaults()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}

	templates, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return templates, nil
}

// Parse decodes and validates a YAML template set.
func Parse(data []byte) ([]Template, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file templateFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	if len(file.Templates) == 0 {
		return nil, errors.New("no templates defined")
	}

	names := make(map[string]bool, len(file.Templates))
	for i := range file.Templates {
		t := &file.Templates[i]
		if err := t.validate(); err != nil {
			return nil, err
		}
		if names[t.Name] {
			return nil, fmt.Errorf("duplicate template %q", t.Name)
		}
		names[t.Name] = true
	}
	return file.Templates, nil
}

func (t *Template) validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("template name is required")
	}
	if len(t.Conditions) == 0 {
		return fmt.Errorf("template %q has no conditions", t.Name)
	}
	if t.Confidence < 0 || t.Confidence > 100 {
		return fmt.Errorf("template %q: confidence must be between 0 and 100, got %d", t.Name, t.Confidence)
	}
	if strings.TrimSpace(t.Body) == "" {
		return fmt.Errorf("template %q has an empty body", t.Name)
	}

	for _, c := range t.Conditions {
		if err := c.validate(); err != nil {
			return fmt.Errorf("template %q: %w", t.Name, err)
		}
	}
	for _, name := range t.Placeholders() {
		if !knownPlaceholder(Placeholder(name)) {
			return fmt.Errorf("template %q: unknown placeholder {%s}", t.Name, name)
		}
	}
	return nil
}

func (c Condition) validate() error {
	isRange := c.Min != nil || c.Max != nil
	switch {
	case c.Metric == MetricMajor:
		if len(c.OneOf) == 0 || isRange || c.Contains != "" {
			return fmt.Errorf("condition %s requires one_of only", c.Metric)
		}
	case c.Metric == MetricWeakSkill:
		if c.Contains == "" || isRange || len(c.OneOf) > 0 {
			return fmt.Errorf("condition %s requires contains only", c.Metric)
		}
	case isNumericMetric(c.Metric):
		if !isRange || len(c.OneOf) > 0 || c.Contains != "" {
			return fmt.Errorf("condition %s requires min and/or max", c.Metric)
		}
		if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
			return fmt.Errorf("condition %s: min %.2f exceeds max %.2f", c.Metric, *c.Min, *c.Max)
		}
	default:
		return fmt.Errorf("unknown metric %q", c.Metric)
	}
	return nil
}

func isNumericMetric(name string) bool {
	switch name {
	case MetricSkillsAvg, MetricGradesAvg, MetricGradeConsistency, MetricGradeCountBelowC:
		return true
	}
	return strings.HasPrefix(name, skillMetricPrefix) && len(name) > len(skillMetricPrefix)
}
