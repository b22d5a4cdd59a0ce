package knowledge

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
)

// SearchBM25 performs BM25 keyword search using bleve.
func (i *Index) SearchBM25(query string, limit int) ([]Result, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	searchRequest := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), limit, 0, false)

	results, err := i.bleveIndex.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	out := make([]Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		pos, ok := i.positions[hit.ID]
		if !ok {
			continue
		}
		out = append(out, Result{
			Document: i.docs[pos],
			Score:    hit.Score,
		})
	}
	return out, nil
}
