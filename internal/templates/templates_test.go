package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/study-advisor/internal/profile"
)

func uniformProfile(score float64, grade, department string) *profile.Profile {
	p := &profile.Profile{
		Personal: profile.Personal{Department: department},
		Skills:   make(map[string]float64),
	}
	for _, area := range profile.SkillAreas {
		p.Skills[area] = score
	}
	for i := 0; i < 5; i++ {
		p.Subjects = append(p.Subjects, profile.Subject{Name: "Môn " + string(rune('A'+i)), Grade: grade})
	}
	return p
}

func defaultMatcher(t *testing.T) *Matcher {
	t.Helper()
	ts, err := Defaults()
	require.NoError(t, err)
	return NewMatcher(ts, 0, nil)
}

func names(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Template.Name
	}
	return out
}

func TestDefaultsDeclarationOrder(t *testing.T) {
	ts, err := Defaults()
	require.NoError(t, err)

	var got []string
	confidence := map[string]int{}
	for _, tmpl := range ts {
		got = append(got, tmpl.Name)
		confidence[tmpl.Name] = tmpl.Confidence
	}
	assert.Equal(t, []string{
		"excellent_performer",
		"struggling_student",
		"balanced_student",
		"computer_science_guidance",
		"business_economics_guidance",
		"time_management_improvement",
		"study_skills_enhancement",
	}, got)
	assert.Equal(t, 92, confidence["excellent_performer"])
	assert.Equal(t, 88, confidence["struggling_student"])
	assert.Equal(t, 85, confidence["balanced_student"])
}

func TestParseRejectsInvalidTemplates(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown placeholder",
			yaml: "templates:\n  - name: a\n    confidence: 80\n    conditions:\n      - metric: skills_avg\n        min: 1\n    body: \"{nope}\"\n",
			want: "unknown placeholder",
		},
		{
			name: "unknown metric",
			yaml: "templates:\n  - name: a\n    confidence: 80\n    conditions:\n      - metric: mood\n        min: 1\n    body: x\n",
			want: "unknown metric",
		},
		{
			name: "range on major",
			yaml: "templates:\n  - name: a\n    confidence: 80\n    conditions:\n      - metric: major\n        min: 1\n    body: x\n",
			want: "one_of",
		},
		{
			name: "confidence out of range",
			yaml: "templates:\n  - name: a\n    confidence: 120\n    conditions:\n      - metric: skills_avg\n        min: 1\n    body: x\n",
			want: "confidence",
		},
		{
			name: "duplicate",
			yaml: "templates:\n  - name: a\n    confidence: 80\n    conditions:\n      - metric: skills_avg\n        min: 1\n    body: x\n  - name: a\n    confidence: 80\n    conditions:\n      - metric: skills_avg\n        min: 1\n    body: y\n",
			want: "duplicate",
		},
		{
			name: "unknown field",
			yaml: "templates:\n  - name: a\n    weight: 3\n",
			want: "weight",
		},
		{
			name: "empty",
			yaml: "templates: []\n",
			want: "no templates",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := `templates:
  - name: night_owl
    description: test
    confidence: 77
    conditions:
      - metric: skill.Tu_hoc
        min: 50
    body: "Tự học {skills_avg}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	ts, err := Load(path)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.Equal(t, "night_owl", ts[0].Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	defaults, err := Load("")
	require.NoError(t, err)
	assert.Len(t, defaults, 7)
}

func TestFromProfile(t *testing.T) {
	p := &profile.Profile{
		Personal: profile.Personal{Department: "Kinh tế"},
		Skills: map[string]float64{
			profile.SkillTimeManage: 40,
			profile.SkillSelfStudy:  55,
			profile.SkillTeamwork:   90,
			profile.SkillAttitude:   75,
		},
		Subjects: []profile.Subject{
			{Name: "Kế toán", Grade: "A"},
			{Name: "Thống kê", Grade: "D"},
			{Name: "Vi mô", Grade: "B+"},
			{Name: "Thực tập", Grade: "P"},
		},
		CurrentGPA: "2.85",
	}

	m := FromProfile(p)
	assert.True(t, m.HasSkills)
	assert.True(t, m.HasGrades)
	assert.InDelta(t, 65.0, m.SkillsAvg, 1e-9)
	assert.InDelta(t, (90.0+60+85)/3, m.GradesAvg, 1e-9)
	assert.Equal(t, 1, m.GradeCountBelowC)
	assert.Equal(t, []string{profile.SkillTimeManage, profile.SkillSelfStudy}, m.WeakSkills)
	assert.Equal(t, []string{profile.SkillTeamwork, profile.SkillAttitude, profile.SkillSelfStudy}, m.TopSkills)
	assert.Equal(t, profile.SkillTimeManage, m.PrioritySkills[0])
	assert.Equal(t, []string{"Thống kê"}, m.WeakSubjects)
	assert.Equal(t, []string{"Kế toán", "Vi mô"}, m.BestSubjects)
	assert.Equal(t, []string{"Quan ly thoi gian", "Tu hoc", "Thống kê"}, m.WeakAreas())
	assert.Equal(t, []string{
		"Daily scheduling với time-blocking technique",
		"Active recall và spaced repetition",
	}, m.ImprovementPlan())
	assert.Less(t, m.GradeConsistency, 1.0)
	assert.Greater(t, m.GradeConsistency, 0.8)
}

func TestMatchExcellentProfile(t *testing.T) {
	matcher := defaultMatcher(t)
	m := FromProfile(uniformProfile(90, "A", "Công nghệ thông tin"))

	assert.InDelta(t, 1.0, m.GradeConsistency, 1e-9)
	matches := matcher.Match(m)
	require.NotEmpty(t, matches)
	assert.Equal(t, []string{"excellent_performer", "computer_science_guidance"}, names(matches))
	assert.Equal(t, 100.0, matches[0].Score)

	resp, ok := matcher.Respond(m)
	require.True(t, ok)
	assert.Equal(t, "excellent_performer", resp.Template)
	assert.Equal(t, 92, resp.Confidence)
	assert.Contains(t, resp.Text, "(90.0%)")
	assert.Contains(t, resp.Text, "trong ngành Công nghệ thông tin")
	assert.Nil(t, resp.Gap)
	assert.Equal(t, LevelExcellent, Classify(m))
}

func TestMatchStrugglingProfile(t *testing.T) {
	matcher := defaultMatcher(t)
	p := &profile.Profile{
		Skills: map[string]float64{profile.SkillTimeManage: 45, profile.SkillSelfStudy: 55},
	}
	m := FromProfile(p)

	assert.Equal(t, 50.0, m.SkillsAvg)
	assert.Equal(t, LevelStruggling, Classify(m))
	for _, match := range matcher.Match(m) {
		assert.NotEqual(t, "balanced_student", match.Template.Name)
		assert.NotEqual(t, "excellent_performer", match.Template.Name)
	}

	p.Subjects = []profile.Subject{
		{Name: "Toán", Grade: "D"}, {Name: "Lý", Grade: "F"}, {Name: "Hóa", Grade: "D+"},
	}
	m = FromProfile(p)
	assert.Equal(t, []string{
		"struggling_student",
		"time_management_improvement",
		"study_skills_enhancement",
	}, names(matcher.Match(m)))

	resp, ok := matcher.Respond(m)
	require.True(t, ok)
	assert.Equal(t, 88, resp.Confidence)
	assert.Contains(t, resp.Text, "Quan ly thoi gian, Tu hoc")
	require.NotNil(t, resp.Gap)
	assert.Equal(t, []string{"current_gpa"}, resp.Gap.Missing)
	assert.Contains(t, resp.Text, "**"+Unknown+"**")
}

func TestMatchNeverReturnsScoresAtOrBelowThreshold(t *testing.T) {
	matcher := defaultMatcher(t)
	profiles := []*profile.Profile{
		uniformProfile(90, "C", "CNTT"),
		uniformProfile(70, "B", "Tài chính"),
		uniformProfile(30, "F", ""),
		uniformProfile(88, "B+", "Luật"),
		{Skills: map[string]float64{profile.SkillSelfStudy: 62}},
	}

	for _, p := range profiles {
		for _, match := range matcher.Match(FromProfile(p)) {
			assert.Greater(t, match.Score, float64(DefaultThreshold))
		}
	}

	partial := FromProfile(uniformProfile(90, "C", ""))
	assert.InDelta(t, 200.0/3, Score(&matcher.templates[0], partial), 1e-9)
}

func TestBalancedProfile(t *testing.T) {
	matcher := defaultMatcher(t)
	p := uniformProfile(70, "B", "Luật")
	p.Skills[profile.SkillTeamwork] = 80
	m := FromProfile(p)

	assert.Equal(t, LevelBalanced, Classify(m))
	resp, ok := matcher.Respond(m)
	require.True(t, ok)
	assert.Equal(t, "balanced_student", resp.Template)
	assert.Contains(t, resp.Text, "Focus on consistent practice and seeking feedback")
	require.NotNil(t, resp.Gap)
	assert.ElementsMatch(t, []string{"best_subjects", "weak_areas"}, resp.Gap.Missing)
}

func TestConditionHolds(t *testing.T) {
	min60, max84 := 60.0, 84.0
	rng := Condition{Metric: MetricSkillsAvg, Min: &min60, Max: &max84}
	assert.True(t, rng.Holds(Metrics{SkillsAvg: 60, HasSkills: true}))
	assert.True(t, rng.Holds(Metrics{SkillsAvg: 84, HasSkills: true}))
	assert.False(t, rng.Holds(Metrics{SkillsAvg: 84.5, HasSkills: true}))
	assert.False(t, rng.Holds(Metrics{SkillsAvg: 70}), "absent metric never holds")

	major := Condition{Metric: MetricMajor, OneOf: []string{"Công nghệ thông tin"}}
	assert.True(t, major.Holds(Metrics{Major: "Khoa CÔNG NGHỆ THÔNG TIN"}))
	assert.False(t, major.Holds(Metrics{Major: "Kinh tế"}))
	assert.False(t, major.Holds(Metrics{}))

	weak := Condition{Metric: MetricWeakSkill, Contains: profile.SkillSelfStudy}
	assert.True(t, weak.Holds(Metrics{WeakSkills: []string{profile.SkillSelfStudy}}))

	skill := Condition{Metric: "skill.Tu_hoc", Max: &min60}
	assert.True(t, skill.Holds(Metrics{Skills: map[string]float64{"Tu_hoc": 40}}))
	assert.False(t, skill.Holds(Metrics{Skills: map[string]float64{"Ban_be": 40}}))
}

func TestRenderDeterministic(t *testing.T) {
	ts, err := Defaults()
	require.NoError(t, err)
	m := FromProfile(uniformProfile(72, "B", "Kinh tế"))

	for i := range ts {
		first, gap1 := Render(&ts[i], m)
		second, gap2 := Render(&ts[i], m)
		assert.Equal(t, first, second)
		assert.Equal(t, gap1, gap2)
		assert.False(t, strings.Contains(first, "{"), "template %s left a placeholder", ts[i].Name)
	}
}

func TestRenderGapError(t *testing.T) {
	tmpl := &Template{Name: "t", Body: "{major} / {current_gpa} / {major}"}
	text, gap := Render(tmpl, Metrics{})

	assert.Equal(t, Unknown+" / "+Unknown+" / "+Unknown, text)
	require.NotNil(t, gap)
	assert.Equal(t, []string{"major", "current_gpa"}, gap.Missing)
	assert.EqualError(t, gap, "template t: no value for major, current_gpa")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		skills, grades float64
		want           Level
	}{
		{90, 90, LevelExcellent},
		{45, 90, LevelStruggling},
		{70, 55, LevelStruggling},
		{70, 75, LevelBalanced},
		{55, 75, LevelUnclassified},
		{90, 70, LevelUnclassified},
	}
	for _, tt := range tests {
		m := Metrics{SkillsAvg: tt.skills, GradesAvg: tt.grades, HasSkills: true, HasGrades: true}
		assert.Equal(t, tt.want, Classify(m), "skills=%v grades=%v", tt.skills, tt.grades)
	}
}

func TestUsageStats(t *testing.T) {
	matcher := defaultMatcher(t)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	matcher.now = func() time.Time { return fixed }

	excellent := FromProfile(uniformProfile(95, "A+", ""))
	matcher.Respond(excellent)
	matcher.Respond(excellent)
	matcher.Respond(FromProfile(uniformProfile(70, "B", "")))

	stats := matcher.Stats()
	assert.Equal(t, 7, stats.TotalTemplates)
	assert.Equal(t, 3, stats.TotalResponses)
	require.Len(t, stats.Templates, 2)
	assert.Equal(t, "excellent_performer", stats.Templates[0].Template)
	assert.Equal(t, 2, stats.Templates[0].UsageCount)
	assert.Equal(t, 92.0, stats.Templates[0].AverageConfidence)
	assert.Equal(t, fixed, stats.Templates[0].LastUsed)
}
