package templates

import (
	"math"
	"sort"
	"time"
)

// Level is a coarse academic classification.
type Level string

// Academic levels.
const (
	LevelExcellent    Level = "excellent"
	LevelStruggling   Level = "struggling"
	LevelBalanced     Level = "balanced"
	LevelUnclassified Level = "unclassified"
)

// Classify assigns an academic level. Absent averages count as zero.
func Classify(m Metrics) Level {
	skills, grades := m.SkillsAvg, m.GradesAvg
	if !m.HasSkills {
		skills = 0
	}
	if !m.HasGrades {
		grades = 0
	}

	switch {
	case skills >= 85 && grades >= 85:
		return LevelExcellent
	case skills < 50 || grades < 60:
		return LevelStruggling
	case skills >= 60 && skills < 85 && grades >= 70 && grades < 85:
		return LevelBalanced
	}
	return LevelUnclassified
}

type usage struct {
	count           int
	totalConfidence int
	lastUsed        time.Time
}

// UsageStat summarizes how often one template was served.
type UsageStat struct {
	Template          string    `json:"template"`
	UsageCount        int       `json:"usage_count"`
	AverageConfidence float64   `json:"average_confidence"`
	LastUsed          time.Time `json:"last_used"`
}

// Stats summarizes template usage.
type Stats struct {
	Templates      []UsageStat `json:"template_stats"`
	TotalTemplates int         `json:"total_templates"`
	TotalResponses int         `json:"total_quick_responses"`
}

func (m *Matcher) record(name string, confidence int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.usage[name]
	if !ok {
		u = &usage{}
		m.usage[name] = u
	}
	u.count++
	u.totalConfidence += confidence
	u.lastUsed = m.now()
}

// Stats returns usage per template, most used first.
func (m *Matcher) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{TotalTemplates: len(m.templates)}
	for name, u := range m.usage {
		avg := float64(u.totalConfidence) / float64(max(1, u.count))
		stats.Templates = append(stats.Templates, UsageStat{
			Template:          name,
			UsageCount:        u.count,
			AverageConfidence: math.Round(avg*10) / 10,
			LastUsed:          u.lastUsed,
		})
		stats.TotalResponses += u.count
	}
	sort.Slice(stats.Templates, func(a, b int) bool {
		if stats.Templates[a].UsageCount != stats.Templates[b].UsageCount {
			return stats.Templates[a].UsageCount > stats.Templates[b].UsageCount
		}
		return stats.Templates[a].Template < stats.Templates[b].Template
	})
	return stats
}
