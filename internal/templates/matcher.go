package templates

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultThreshold is the match score a template must exceed to be used.
const DefaultThreshold = 70

const fullMatchBonus = 1.1

// Match is a template eligible for the given metrics.
type Match struct {
	Template *Template
	Score    float64
}

// Response is a rendered template ready to serve.
type Response struct {
	Template   string     `json:"template_name"`
	Text       string     `json:"response"`
	Confidence int        `json:"confidence"`
	Score      float64    `json:"match_score"`
	Gap        *RenderGap `json:"-"`
}

// Matcher evaluates templates in declaration order.
type Matcher struct {
	templates []Template
	threshold float64
	logger    *zap.Logger

	mu    sync.Mutex
	usage map[string]*usage
	now   func() time.Time
}

// NewMatcher creates a matcher. A non-positive threshold selects
// DefaultThreshold.
func NewMatcher(templates []Template, threshold float64, logger *zap.Logger) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{
		templates: templates,
		threshold: threshold,
		logger:    logger,
		usage:     make(map[string]*usage),
		now:       time.Now,
	}
}

// Templates returns the loaded templates in declaration order.
func (m *Matcher) Templates() []Template {
	return append([]Template(nil), m.templates...)
}

// Threshold returns the eligibility threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Match returns every template scoring above the threshold, best first.
// Equal scores keep declaration order.
func (m *Matcher) Match(metrics Metrics) []Match {
	var matches []Match
	for i := range m.templates {
		t := &m.templates[i]
		score := Score(t, metrics)
		if score > m.threshold {
			matches = append(matches, Match{Template: t, Score: score})
		}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	return matches
}

// Respond renders the best matching template and records its use. It
// reports false when nothing is eligible.
func (m *Matcher) Respond(metrics Metrics) (Response, bool) {
	matches := m.Match(metrics)
	if len(matches) == 0 {
		return Response{}, false
	}
	best := matches[0]

	text, gap := Render(best.Template, metrics)
	if gap != nil {
		m.logger.Warn("template rendered with missing values",
			zap.String("template", gap.Template),
			zap.Strings("missing", gap.Missing))
	}
	m.record(best.Template.Name, best.Template.Confidence)

	return Response{
		Template:   best.Template.Name,
		Text:       text,
		Confidence: best.Template.Confidence,
		Score:      best.Score,
		Gap:        gap,
	}, true
}

// Score is matched/total*100, raised by 10% (capped at 100) when every
// condition holds.
func Score(t *Template, metrics Metrics) float64 {
	if len(t.Conditions) == 0 {
		return 0
	}
	matched := 0
	for _, c := range t.Conditions {
		if c.Holds(metrics) {
			matched++
		}
	}
	score := float64(matched) / float64(len(t.Conditions)) * 100
	if matched == len(t.Conditions) {
		score = math.Min(100, score*fullMatchBonus)
	}
	return score
}

// Holds reports whether the condition is satisfied. Conditions on absent
// metrics never hold.
func (c Condition) Holds(metrics Metrics) bool {
	switch c.Metric {
	case MetricMajor:
		major := strings.ToLower(metrics.Major)
		if major == "" {
			return false
		}
		for _, allowed := range c.OneOf {
			if strings.Contains(major, strings.ToLower(allowed)) {
				return true
			}
		}
		return false
	case MetricWeakSkill:
		return metrics.hasWeakSkill(c.Contains)
	}

	v, ok := metrics.numeric(c.Metric)
	if !ok {
		return false
	}
	if c.Min != nil && v < *c.Min {
		return false
	}
	if c.Max != nil && v > *c.Max {
		return false
	}
	return true
}
