package templates

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/khanglvm/study-advisor/internal/profile"
)

// Unknown replaces placeholders whose value is absent.
const Unknown = "Không rõ"

const listLimit = 3

// Placeholder names a value a template body may reference.
type Placeholder string

// Supported placeholders.
const (
	PlaceholderSkillsAvg        Placeholder = "skills_avg"
	PlaceholderGradesAvg        Placeholder = "grades_avg"
	PlaceholderGradeConsistency Placeholder = "grade_consistency"
	PlaceholderMajor            Placeholder = "major"
	PlaceholderCurrentGPA       Placeholder = "current_gpa"
	PlaceholderWeakSkills       Placeholder = "weak_skills"
	PlaceholderWeakSubjects     Placeholder = "weak_subjects"
	PlaceholderBestSubjects     Placeholder = "best_subjects"
	PlaceholderTopSkills        Placeholder = "top_skills"
	PlaceholderWeakAreas        Placeholder = "weak_areas"
	PlaceholderImprovementPlan  Placeholder = "improvement_plan"
	PlaceholderPrioritySkill1   Placeholder = "priority_skill_1"
	PlaceholderPrioritySkill2   Placeholder = "priority_skill_2"
)

var placeholders = []Placeholder{
	PlaceholderSkillsAvg, PlaceholderGradesAvg, PlaceholderGradeConsistency,
	PlaceholderMajor, PlaceholderCurrentGPA, PlaceholderWeakSkills,
	PlaceholderWeakSubjects, PlaceholderBestSubjects, PlaceholderTopSkills,
	PlaceholderWeakAreas, PlaceholderImprovementPlan,
	PlaceholderPrioritySkill1, PlaceholderPrioritySkill2,
}

func knownPlaceholder(p Placeholder) bool {
	for _, known := range placeholders {
		if p == known {
			return true
		}
	}
	return false
}

// RenderGap lists the placeholders of a template that had no value.
type RenderGap struct {
	Template string   `json:"template"`
	Missing  []string `json:"missing"`
}

func (g *RenderGap) Error() string {
	return fmt.Sprintf("template %s: no value for %s", g.Template, strings.Join(g.Missing, ", "))
}

// Binding holds the formatted value of every placeholder present in a set
// of metrics.
type Binding struct {
	values map[Placeholder]string
}

// Bind formats metrics into placeholder values. Absent metrics and empty
// lists are left unbound.
func Bind(m Metrics) Binding {
	b := Binding{values: make(map[Placeholder]string)}

	if m.HasSkills {
		b.set(PlaceholderSkillsAvg, formatFloat(m.SkillsAvg))
		b.list(PlaceholderWeakSkills, displaySkills(m.WeakSkills))
		b.list(PlaceholderTopSkills, displaySkills(m.TopSkills))
		if len(m.PrioritySkills) > 0 {
			b.set(PlaceholderPrioritySkill1, profile.DisplaySkill(m.PrioritySkills[0]))
		}
		if len(m.PrioritySkills) > 1 {
			b.set(PlaceholderPrioritySkill2, profile.DisplaySkill(m.PrioritySkills[1]))
		}
		if plan := m.ImprovementPlan(); len(plan) > 0 {
			b.set(PlaceholderImprovementPlan, strings.Join(plan, "\n     * "))
		} else {
			b.set(PlaceholderImprovementPlan, "Focus on consistent practice and seeking feedback")
		}
	}
	if m.HasGrades {
		b.set(PlaceholderGradesAvg, formatFloat(m.GradesAvg))
		b.set(PlaceholderGradeConsistency, formatFloat(m.GradeConsistency))
	}
	b.list(PlaceholderWeakSubjects, m.WeakSubjects)
	b.list(PlaceholderBestSubjects, m.BestSubjects)
	b.list(PlaceholderWeakAreas, m.WeakAreas())
	b.set(PlaceholderMajor, m.Major)
	b.set(PlaceholderCurrentGPA, m.CurrentGPA)

	return b
}

// Value returns the bound value of p.
func (b Binding) Value(p Placeholder) (string, bool) {
	v, ok := b.values[p]
	return v, ok
}

func (b Binding) set(p Placeholder, v string) {
	if strings.TrimSpace(v) != "" {
		b.values[p] = v
	}
}

func (b Binding) list(p Placeholder, items []string) {
	if len(items) > listLimit {
		items = items[:listLimit]
	}
	b.set(p, strings.Join(items, ", "))
}

// Render fills the template body from metrics. Placeholders without a value
// become Unknown and are reported in the returned gap, which is nil when
// every value was present.
func Render(t *Template, m Metrics) (string, *RenderGap) {
	b := Bind(m)
	var missing []string
	seen := make(map[string]bool)

	text := placeholderPattern.ReplaceAllStringFunc(t.Body, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := b.Value(Placeholder(name)); ok {
			return v
		}
		if !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
		return Unknown
	})

	if len(missing) == 0 {
		return text, nil
	}
	return text, &RenderGap{Template: t.Name, Missing: missing}
}

func displaySkills(skills []string) []string {
	out := make([]string, len(skills))
	for i, s := range skills {
		out[i] = profile.DisplaySkill(s)
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
