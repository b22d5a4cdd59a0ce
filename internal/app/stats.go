package app

import (
	"time"

	"github.com/khanglvm/study-advisor/internal/cache"
	"github.com/khanglvm/study-advisor/internal/knowledge"
	"github.com/khanglvm/study-advisor/internal/learning"
	"github.com/khanglvm/study-advisor/internal/templates"
)

// Stats is the combined statistics report. Sections of disabled features
// are omitted.
type Stats struct {
	Cache          *cache.Stats     `json:"cache,omitempty"`
	Knowledge      *knowledge.Stats `json:"knowledge,omitempty"`
	Templates      *templates.Stats `json:"templates,omitempty"`
	Usage          learning.Summary `json:"usage"`
	ActiveSessions int              `json:"active_sessions"`
	Uptime         string           `json:"uptime"`
}

// Stats gathers every component's statistics. Usage covers events since
// the given time; zero means all recorded history.
func (a *App) Stats(since time.Time) (Stats, error) {
	st := Stats{
		ActiveSessions: a.Sessions.Len(),
		Uptime:         time.Since(a.started).Round(time.Second).String(),
	}

	if a.Cache != nil {
		cs, err := a.Cache.Stats()
		if err != nil {
			return st, err
		}
		st.Cache = &cs
	}
	if a.Knowledge != nil {
		ks := a.Knowledge.Stats()
		st.Knowledge = &ks
	}
	if a.Matcher != nil {
		ts := a.Matcher.Stats()
		st.Templates = &ts
	}

	usage, err := learning.Summarize(a.Storage, since)
	if err != nil {
		return st, err
	}
	st.Usage = usage
	return st, nil
}
