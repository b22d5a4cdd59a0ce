package cache

import "math"

// Stats summarizes cache activity since the process started.
type Stats struct {
	Hits     int64   `json:"cache_hits"`
	Misses   int64   `json:"cache_misses"`
	HitRate  float64 `json:"hit_rate_percent"`
	Entries  int     `json:"total_cached_entries"`
	Patterns int     `json:"patterns_stored"`
	Strategy string  `json:"neighbor_strategy"`
}

// Stats reports hit/miss counters and stored totals.
func (s *Store) Stats() (Stats, error) {
	st := Stats{
		Hits:     s.hits.Load(),
		Misses:   s.misses.Load(),
		Strategy: s.opts.Strategy.Name(),
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = math.Round(float64(st.Hits)/float64(total)*10000) / 100
	}

	var err error
	if st.Entries, err = s.storage.CountEntries(); err != nil {
		return st, err
	}
	if st.Patterns, err = s.storage.CountPatterns(); err != nil {
		return st, err
	}
	return st, nil
}
