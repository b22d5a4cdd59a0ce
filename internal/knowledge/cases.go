package knowledge

import (
	"context"
	"sort"
	"time"

	"github.com/khanglvm/study-advisor/internal/profile"
)

const caseExcerptRunes = 200

// SuccessfulCaseContent formats a highly rated result as a case-study snippet.
func SuccessfulCaseContent(text string) string {
	runes := []rune(text)
	if len(runes) > caseExcerptRunes {
		runes = runes[:caseExcerptRunes]
	}
	return "Case study thành công: " + string(runes) + "..."
}

// AddSuccessfulCase stores a highly rated stage result as a new document.
func (i *Index) AddSuccessfulCase(ctx context.Context, p *profile.Profile, stageKey, text string, score int) (Document, error) {
	now := time.Now()
	doc := Document{
		Content: SuccessfulCaseContent(text),
		Metadata: Metadata{
			Type:           TypeSuccessfulCase,
			Department:     p.Department(),
			FeedbackScore:  float64(score),
			Stage:          stageKey,
			Timestamp:      &now,
			StudentPattern: extractStudentPattern(p),
		},
	}
	return i.Upsert(ctx, doc)
}

func extractStudentPattern(p *profile.Profile) *StudentPattern {
	if p == nil {
		return nil
	}
	sp := &StudentPattern{}

	if len(p.Skills) > 0 {
		names := p.SkillNames()
		total := 0.0
		for _, name := range names {
			total += p.Skills[name]
		}
		sp.SkillsAvg = total / float64(len(names))

		sort.SliceStable(names, func(a, b int) bool {
			return p.Skills[names[a]] > p.Skills[names[b]]
		})
		if len(names) > 3 {
			names = names[:3]
		}
		sp.TopSkills = names
	}

	var sum float64
	var n int
	for _, s := range p.Subjects {
		if v, ok := profile.GradeValue(s.Grade); ok && v > 0 {
			sum += v
			n++
		}
	}
	if n > 0 {
		sp.GradeAvg = sum / float64(n)
	}
	return sp
}
