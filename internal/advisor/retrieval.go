package advisor

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/khanglvm/study-advisor/internal/knowledge"
	"github.com/khanglvm/study-advisor/internal/profile"
	"github.com/khanglvm/study-advisor/internal/stage"
)

// weakSkillThreshold marks a survey area worth a dedicated query.
const weakSkillThreshold = 60

var queriedSkills = []string{
	profile.SkillAttitude,
	profile.SkillTimeManage,
	profile.SkillCriticalThink,
}

// Queries derives the knowledge queries for a stage, most general first.
func Queries(id stage.ID, p *profile.Profile) []string {
	dept := strings.TrimSpace(p.Personal.Department)
	join := func(parts ...string) string {
		return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	}

	switch id {
	case stage.Survey:
		qs := []string{join("sinh viên", dept), "kỹ năng học tập yếu"}
		for _, area := range queriedSkills {
			if score, ok := p.SkillScore(area); ok && score < weakSkillThreshold {
				qs = append(qs, profile.DisplaySkill(area))
			}
		}
		return qs
	case stage.Transcript:
		qs := []string{join("sinh viên", dept, "thành tích học tập"), "phân tích điểm số và cải thiện"}
		for _, s := range p.Subjects {
			if profile.NeedsImprovement(s.Grade) {
				qs = append(qs, join("cải thiện điểm", s.Name))
			}
		}
		return qs
	case stage.Synthesis:
		return []string{
			join("định hướng nghề nghiệp", dept),
			"chiến lược phát triển sinh viên",
			"kỹ năng mềm và hard skills",
		}
	}
	return nil
}

// retrieve collects de-duplicated snippets for the first queries of a
// stage. Retrieval problems never fail the stage.
func (o *Orchestrator) retrieve(ctx context.Context, id stage.ID, p *profile.Profile) []string {
	if o.deps.Knowledge == nil {
		return nil
	}

	queries := Queries(id, p)
	if len(queries) > o.opts.MaxQueries {
		queries = queries[:o.opts.MaxQueries]
	}

	seen := make(map[string]bool)
	var snippets []string
	for _, q := range queries {
		results, err := o.deps.Knowledge.Search(ctx, q, o.opts.SnippetsPerQuery, o.opts.MinScore)
		if errors.Is(err, knowledge.ErrUnavailable) {
			o.logger.Debug("knowledge index unavailable", zap.Error(err))
			return snippets
		}
		if err != nil {
			o.logger.Warn("knowledge search failed", zap.String("query", q), zap.Error(err))
			continue
		}
		for _, r := range results {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			snippets = append(snippets, r.Content)
		}
	}
	return snippets
}
