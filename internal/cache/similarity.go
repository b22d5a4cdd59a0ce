package cache

import (
	"math"
	"sort"

	"github.com/khanglvm/study-advisor/internal/fingerprint"
)

// NeighborStrategy scores how close two signatures are, in [0, 1].
type NeighborStrategy interface {
	Name() string
	Score(a, b fingerprint.Signature) float64
}

// CharsetJaccard compares the sets of characters used by two signatures.
type CharsetJaccard struct{}

func (CharsetJaccard) Name() string { return "charset_jaccard" }

func (CharsetJaccard) Score(a, b fingerprint.Signature) float64 {
	setA := make(map[rune]struct{})
	for _, r := range string(a) {
		setA[r] = struct{}{}
	}
	setB := make(map[rune]struct{})
	for _, r := range string(b) {
		setB[r] = struct{}{}
	}

	inter := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// BucketDistance compares signatures position by position as hex digits:
// 1 - mean(|a_i - b_i|) / 15. Signatures of different length score 0.
type BucketDistance struct{}

func (BucketDistance) Name() string { return "bucket_distance" }

func (BucketDistance) Score(a, b fingerprint.Signature) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	total := 0.0
	for i := 0; i < len(a); i++ {
		da, okA := hexValue(a[i])
		db, okB := hexValue(b[i])
		if !okA || !okB {
			return 0
		}
		total += math.Abs(float64(da - db))
	}
	return 1 - total/float64(len(a))/15
}

func hexValue(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

// Neighbor is a stored signature close to the probe.
type Neighbor struct {
	Signature fingerprint.Signature `json:"signature"`
	Score     float64               `json:"score"`
}

// StrategyByName resolves a configured strategy name.
func StrategyByName(name string) (NeighborStrategy, bool) {
	switch name {
	case "", CharsetJaccard{}.Name():
		return CharsetJaccard{}, true
	case BucketDistance{}.Name():
		return BucketDistance{}, true
	}
	return nil, false
}

// SimilarityScan returns up to three other stored signatures scoring at or
// above threshold, best first. A non-positive threshold uses the configured
// default.
func (s *Store) SimilarityScan(sig fingerprint.Signature, threshold float64) ([]Neighbor, error) {
	if threshold <= 0 {
		threshold = s.opts.SimilarityThreshold
	}

	sigs, err := s.storage.ListSignatures()
	if err != nil {
		return nil, err
	}

	neighbors := []Neighbor{}
	for _, other := range sigs {
		candidate := fingerprint.Signature(other)
		if candidate == sig {
			continue
		}
		score := s.opts.Strategy.Score(sig, candidate)
		if score >= threshold {
			neighbors = append(neighbors, Neighbor{Signature: candidate, Score: score})
		}
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Score > neighbors[j].Score
	})
	if len(neighbors) > maxNeighbors {
		neighbors = neighbors[:maxNeighbors]
	}
	return neighbors, nil
}
