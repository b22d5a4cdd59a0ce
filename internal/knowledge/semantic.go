package knowledge

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Normalize scales v to unit length. Zero vectors are returned unchanged.
func Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}

	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// dot computes the inner product, which equals cosine similarity for
// normalized vectors. Mismatched lengths score 0.
func dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// PackFloat32 encodes vectors as little-endian float32 values.
func PackFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// UnpackFloat32 reverses PackFloat32. It returns nil if the input length is
// not a multiple of 4.
func UnpackFloat32(b []byte) []float32 {
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// SearchSemantic ranks every document by inner product with the query vector.
func (i *Index) SearchSemantic(ctx context.Context, query string, limit int) ([]Result, error) {
	qvec, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed query: %v", ErrUnavailable, err)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(i.docs) == 0 {
		return nil, ErrUnavailable
	}

	results := make([]Result, 0, len(i.docs))
	for n, doc := range i.docs {
		results = append(results, Result{
			Document: doc,
			Score:    dot(qvec, i.vectors[n]),
		})
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
