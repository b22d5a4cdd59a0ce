package knowledge

import (
	"math"
	"testing"
)

func result(id string, score float64) Result {
	return Result{Document: Document{ID: id}, Score: score}
}

func TestNormalizeScores_Empty(t *testing.T) {
	normalized := normalizeScores([]Result{})

	if len(normalized) != 0 {
		t.Errorf("expected empty result, got %d items", len(normalized))
	}
}

func TestNormalizeScores_Single(t *testing.T) {
	normalized := normalizeScores([]Result{result("a", 0.5)})

	if len(normalized) != 1 {
		t.Fatalf("expected 1 result, got %d", len(normalized))
	}

	// Single result should have score 1.0 (all scores are min=max)
	if normalized[0].Score != 1.0 {
		t.Errorf("expected score 1.0 for single result, got %f", normalized[0].Score)
	}
}

func TestNormalizeScores_Multiple(t *testing.T) {
	normalized := normalizeScores([]Result{
		result("a", 2.0),
		result("b", 3.0),
		result("c", 4.0),
	})

	want := []float64{0, 0.5, 1}
	for i, w := range want {
		if math.Abs(normalized[i].Score-w) > 0.001 {
			t.Errorf("result %d: expected %f, got %f", i, w, normalized[i].Score)
		}
	}
}

func TestFuseScores(t *testing.T) {
	bm25 := []Result{result("a", 1.0), result("c", 0.5)}
	semantic := []Result{result("a", 0.4), result("b", 0.9)}

	fused := fuseScores(bm25, semantic, DefaultFusionConfig)
	if len(fused) != 2 {
		t.Fatalf("expected 2 fused results, got %d", len(fused))
	}

	scores := map[string]float64{}
	for _, r := range fused {
		scores[r.ID] = r.Score
	}

	if math.Abs(scores["a"]-(0.7*0.4+0.3*1.0)) > 1e-9 {
		t.Errorf("unexpected fused score for a: %f", scores["a"])
	}
	if math.Abs(scores["b"]-0.7*0.9) > 1e-9 {
		t.Errorf("unexpected fused score for b: %f", scores["b"])
	}
	if _, ok := scores["c"]; ok {
		t.Error("keyword-only hit should not be fused in")
	}
}
