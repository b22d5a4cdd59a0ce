package templates

import (
	"math"
	"sort"
	"strings"

	"github.com/khanglvm/study-advisor/internal/profile"
)

// Skill and subject thresholds used when deriving metrics.
const (
	WeakSkillThreshold   = 60
	WeakSubjectThreshold = 70
	BestSubjectThreshold = 85
	topSkillCount        = 3
	planSkillCount       = 2
)

// Metrics are the values templates are matched and rendered against.
// HasSkills and HasGrades report whether the averages are meaningful.
type Metrics struct {
	SkillsAvg        float64            `json:"skills_avg"`
	GradesAvg        float64            `json:"grades_avg"`
	GradeConsistency float64            `json:"grade_consistency"`
	GradeCountBelowC int                `json:"grade_count_below_c"`
	Major            string             `json:"major,omitempty"`
	CurrentGPA       string             `json:"current_gpa,omitempty"`
	Skills           map[string]float64 `json:"skills,omitempty"`

	// WeakSkills and PrioritySkills are survey area keys, weakest first.
	WeakSkills     []string `json:"weak_skills,omitempty"`
	PrioritySkills []string `json:"priority_skills,omitempty"`
	TopSkills      []string `json:"top_skills,omitempty"`
	WeakSubjects   []string `json:"weak_subjects,omitempty"`
	BestSubjects   []string `json:"best_subjects,omitempty"`

	HasSkills bool `json:"has_skills"`
	HasGrades bool `json:"has_grades"`
}

// FromProfile derives template metrics from a learner profile.
func FromProfile(p *profile.Profile) Metrics {
	var m Metrics
	if p == nil {
		return m
	}
	m.Major = strings.TrimSpace(p.Personal.Department)
	m.CurrentGPA = strings.TrimSpace(p.CurrentGPA)

	if len(p.Skills) > 0 {
		m.HasSkills = true
		m.Skills = make(map[string]float64, len(p.Skills))
		names := p.SkillNames()
		var total float64
		for _, name := range names {
			score := p.Skills[name]
			m.Skills[name] = score
			total += score
		}
		m.SkillsAvg = total / float64(len(names))

		ascending := append([]string(nil), names...)
		sort.SliceStable(ascending, func(a, b int) bool {
			return p.Skills[ascending[a]] < p.Skills[ascending[b]]
		})
		m.PrioritySkills = ascending
		for _, name := range ascending {
			if p.Skills[name] < WeakSkillThreshold {
				m.WeakSkills = append(m.WeakSkills, name)
			}
		}

		descending := append([]string(nil), names...)
		sort.SliceStable(descending, func(a, b int) bool {
			return p.Skills[descending[a]] > p.Skills[descending[b]]
		})
		if len(descending) > topSkillCount {
			descending = descending[:topSkillCount]
		}
		m.TopSkills = descending
	}

	var values []float64
	for _, s := range p.Subjects {
		v, ok := profile.GradeValue(s.Grade)
		if !ok {
			continue
		}
		values = append(values, v)
		if profile.IsBelowC(s.Grade) {
			m.GradeCountBelowC++
		}
		if v < WeakSubjectThreshold {
			m.WeakSubjects = append(m.WeakSubjects, s.Name)
		}
		if v >= BestSubjectThreshold {
			m.BestSubjects = append(m.BestSubjects, s.Name)
		}
	}
	if len(values) > 0 {
		m.HasGrades = true
		m.GradesAvg = mean(values)
		m.GradeConsistency = clamp(1-stddev(values)/100, 0, 1)
	}
	return m
}

// WeakAreas lists weak skills by display name followed by weak subjects.
func (m Metrics) WeakAreas() []string {
	areas := make([]string, 0, len(m.WeakSkills)+len(m.WeakSubjects))
	for _, s := range m.WeakSkills {
		areas = append(areas, profile.DisplaySkill(s))
	}
	return append(areas, m.WeakSubjects...)
}

// ImprovementPlan returns one concrete action for each of the two weakest
// weak skills.
func (m Metrics) ImprovementPlan() []string {
	skills := m.WeakSkills
	if len(skills) > planSkillCount {
		skills = skills[:planSkillCount]
	}
	plans := make([]string, 0, len(skills))
	for _, s := range skills {
		plans = append(plans, skillAdvice(s))
	}
	return plans
}

func skillAdvice(skill string) string {
	switch skill {
	case profile.SkillTimeManage:
		return "Daily scheduling với time-blocking technique"
	case profile.SkillSelfStudy:
		return "Active recall và spaced repetition"
	case profile.SkillCriticalThink:
		return "Critical thinking exercises và case studies"
	case profile.SkillTeamwork:
		return "Join study groups và team projects"
	}
	return "Targeted practice in " + strings.ToLower(profile.DisplaySkill(skill))
}

// numeric resolves a numeric metric. Absent values report false.
func (m Metrics) numeric(name string) (float64, bool) {
	switch name {
	case MetricSkillsAvg:
		return m.SkillsAvg, m.HasSkills
	case MetricGradesAvg:
		return m.GradesAvg, m.HasGrades
	case MetricGradeConsistency:
		return m.GradeConsistency, m.HasGrades
	case MetricGradeCountBelowC:
		return float64(m.GradeCountBelowC), m.HasGrades
	}
	if skill, ok := strings.CutPrefix(name, skillMetricPrefix); ok {
		v, found := m.Skills[skill]
		return v, found
	}
	return 0, false
}

func (m Metrics) hasWeakSkill(skill string) bool {
	for _, s := range m.WeakSkills {
		if s == skill {
			return true
		}
	}
	return false
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	mu := mean(values)
	var sq float64
	for _, v := range values {
		sq += (v - mu) * (v - mu)
	}
	return math.Sqrt(sq / float64(len(values)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
