package learning

import (
	"math"
	"time"

	"github.com/khanglvm/study-advisor/internal/storage"
)

// Summary is the usage report of the advisor.
type Summary struct {
	storage.UsageSummary

	// CacheHitRate is the percentage of stage runs answered from cache.
	CacheHitRate float64 `json:"cache_hit_rate"`

	Since time.Time `json:"since"`
}

// Summarize aggregates the events recorded since the given time. A zero
// since covers everything.
func Summarize(st storage.Storage, since time.Time) (Summary, error) {
	u, err := st.Summary(since)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		UsageSummary: u,
		CacheHitRate: math.Round(u.CacheHitRate()*10) / 10,
		Since:        since,
	}, nil
}
