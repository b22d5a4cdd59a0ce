/*
Package learning records how each stage was answered and how learners rated
the answers.

Events are queued without blocking the request path and flushed to storage
in batches by a background goroutine. Summarize turns the stored events into
the usage statistics shown by the stats surfaces.
*/
package learning

import (
	"time"

	"github.com/khanglvm/study-advisor/internal/stage"
	"github.com/khanglvm/study-advisor/internal/storage"
)

// Sources of a stage result.
const (
	SourceCache     = "cache"
	SourceTemplate  = "template"
	SourceGenerated = "generated"
	SourceShared    = "shared"
	SourceError     = "error"
)

// Event is a record the tracker can persist.
type Event interface {
	record(st storage.Storage) error
}

// StageEvent is the outcome of one stage run.
type StageEvent struct {
	SessionID     string
	Signature     string
	Stage         stage.ID
	Source        string
	Template      string
	KnowledgeUsed bool
	Elapsed       time.Duration
	Timestamp     time.Time
}

// ToStorage converts the event to its storage model.
func (e StageEvent) ToStorage() storage.StageEvent {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return storage.StageEvent{
		SessionID:     e.SessionID,
		Signature:     e.Signature,
		Stage:         e.Stage.Key(),
		Source:        e.Source,
		Template:      e.Template,
		KnowledgeUsed: e.KnowledgeUsed,
		Elapsed:       e.Elapsed,
		Timestamp:     ts,
	}
}

func (e StageEvent) record(st storage.Storage) error {
	return st.RecordStageEvent(e.ToStorage())
}

// FeedbackEvent is a 1-5 rating of a stage result.
type FeedbackEvent struct {
	SessionID string
	Signature string
	Stage     stage.ID
	Score     int
	Timestamp time.Time
}

// ToStorage converts the event to its storage model.
func (e FeedbackEvent) ToStorage() storage.FeedbackRecord {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return storage.FeedbackRecord{
		SessionID: e.SessionID,
		Signature: e.Signature,
		Stage:     e.Stage.Key(),
		Score:     e.Score,
		Timestamp: ts,
	}
}

func (e FeedbackEvent) record(st storage.Storage) error {
	return st.RecordFeedback(e.ToStorage())
}
