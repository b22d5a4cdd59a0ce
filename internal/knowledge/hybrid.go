package knowledge

import (
	"context"
	"sort"
)

// FusionConfig defines weights for hybrid score fusion.
type FusionConfig struct {
	SemanticWeight float64
	KeywordWeight  float64
}

// DefaultFusionConfig provides balanced fusion (70% semantic, 30% keyword).
var DefaultFusionConfig = FusionConfig{
	SemanticWeight: 0.7,
	KeywordWeight:  0.3,
}

// SearchHybrid combines semantic and BM25 scores. BM25 scores are normalized
// to [0, 1] first so both signals share a scale.
func (i *Index) SearchHybrid(ctx context.Context, query string, limit int, config FusionConfig) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}

	semanticResults, err := i.SearchSemantic(ctx, query, 0)
	if err != nil {
		return nil, err
	}

	bm25Results, err := i.SearchBM25(query, limit*2)
	if err != nil || len(bm25Results) == 0 {
		// Keyword side is advisory; fall back to semantic only
		if len(semanticResults) > limit {
			semanticResults = semanticResults[:limit]
		}
		return semanticResults, nil
	}

	fused := fuseScores(normalizeScores(bm25Results), semanticResults, config)

	sort.SliceStable(fused, func(a, b int) bool {
		return fused[a].Score > fused[b].Score
	})

	if len(fused) > limit {
		fused = fused[:limit]
	}
	return fused, nil
}

// fuseScores combines keyword and semantic results using weighted fusion.
// Every semantic result is kept; documents without a keyword hit get a
// keyword score of zero.
func fuseScores(bm25Results, semanticResults []Result, config FusionConfig) []Result {
	keyword := make(map[string]float64, len(bm25Results))
	for _, r := range bm25Results {
		keyword[r.ID] = r.Score
	}

	fused := make([]Result, 0, len(semanticResults))
	for _, r := range semanticResults {
		r.Score = config.SemanticWeight*r.Score + config.KeywordWeight*keyword[r.ID]
		fused = append(fused, r)
	}
	return fused
}

// normalizeScores normalizes scores to [0, 1] range.
func normalizeScores(results []Result) []Result {
	if len(results) == 0 {
		return results
	}

	minScore := results[0].Score
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score < minScore {
			minScore = r.Score
		}
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}

	normalized := make([]Result, len(results))
	for n, r := range results {
		normalized[n] = r
		if maxScore == minScore {
			normalized[n].Score = 1.0
			continue
		}
		normalized[n].Score = (r.Score - minScore) / (maxScore - minScore)
	}
	return normalized
}
