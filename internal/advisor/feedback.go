package advisor

import (
	"context"

	"go.uber.org/zap"

	"github.com/khanglvm/study-advisor/internal/cache"
	"github.com/khanglvm/study-advisor/internal/learning"
	"github.com/khanglvm/study-advisor/internal/stage"
)

// Feedback thresholds on the 1-5 scale.
const (
	promoteScore = 4
	caseScore    = 5
)

// Feedback records a 1-5 rating of a stage result. Ratings of 4 and above
// re-cache the result with a higher confidence and record a success
// pattern; a 5 also adds the result to the knowledge index as a case study.
func (o *Orchestrator) Feedback(ctx context.Context, s *Session, id stage.ID, score int) error {
	if score < 1 || score > 5 {
		return ErrInvalidScore
	}
	res, ok := s.Result(id)
	if !ok || res.Failed() {
		return ErrNoResult
	}

	o.deps.Tracker.Track(learning.FeedbackEvent{
		SessionID: s.ID,
		Signature: string(res.Signature),
		Stage:     id,
		Score:     score,
	})

	log := o.logger.With(zap.String("session", s.ID), zap.String("stage", id.Key()), zap.Int("score", score))

	if score >= promoteScore && o.deps.Cache != nil {
		if err := o.deps.Cache.Put(res.Signature, id, res.Text, cache.FeedbackConfidence(score)); err != nil {
			log.Warn("failed to re-cache rated result", zap.Error(err))
		}
		if err := o.deps.Cache.RecordSuccess(res.Signature, s.Profile.Department(), res.Text); err != nil {
			log.Warn("failed to record success pattern", zap.Error(err))
		}
	}

	if score >= caseScore && o.deps.Knowledge != nil {
		if _, err := o.deps.Knowledge.AddSuccessfulCase(ctx, s.Profile, id.Key(), res.Text, score); err != nil {
			log.Warn("failed to add successful case", zap.Error(err))
		}
	}

	log.Info("feedback recorded")
	return nil
}
