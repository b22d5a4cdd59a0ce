package storage

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RecordStageEvent records the outcome of one stage run.
func (s *SQLiteStorage) RecordStageEvent(event StageEvent) error {
	if !s.Enabled() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO stage_events (session_id, signature, stage, source, template, knowledge_used, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.SessionID,
		event.Signature,
		event.Stage,
		event.Source,
		event.Template,
		boolToInt(event.KnowledgeUsed),
		event.Elapsed.Milliseconds(),
		toMillis(event.Timestamp),
	)
	if err != nil {
		s.log().Warn("failed to record stage event", zap.Error(err))
	}

	return nil
}

// RecordFeedback records a feedback score.
func (s *SQLiteStorage) RecordFeedback(rec FeedbackRecord) error {
	if !s.Enabled() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO feedback (session_id, signature, stage, score, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.SessionID, rec.Signature, rec.Stage, rec.Score, toMillis(rec.Timestamp))
	if err != nil {
		s.log().Warn("failed to record feedback", zap.Error(err))
	}

	return nil
}

// Summary aggregates stage events and feedback recorded at or after since.
func (s *SQLiteStorage) Summary(since time.Time) (UsageSummary, error) {
	var u UsageSummary
	if !s.Enabled() {
		return u, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := toMillis(since)
	err := s.db.QueryRow(`
		SELECT
			COUNT(DISTINCT session_id),
			COUNT(*),
			COALESCE(SUM(CASE WHEN source = 'cache' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN source = 'template' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN source = 'generated' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN source = 'generated' AND knowledge_used = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN source = 'error' THEN 1 ELSE 0 END), 0)
		FROM stage_events
		WHERE created_at >= ?
	`, cutoff).Scan(
		&u.Consultations,
		&u.StageRuns,
		&u.CacheHits,
		&u.TemplateResponses,
		&u.Generated,
		&u.KnowledgeEnhanced,
		&u.Errors,
	)
	if err != nil {
		return u, fmt.Errorf("failed to summarize stage events: %w", err)
	}

	err = s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(AVG(score), 0)
		FROM feedback
		WHERE created_at >= ?
	`, cutoff).Scan(&u.FeedbackCount, &u.AverageFeedback)
	if err != nil {
		return u, fmt.Errorf("failed to summarize feedback: %w", err)
	}

	return u, nil
}

// Cleanup removes stage events and feedback older than retention.
func (s *SQLiteStorage) Cleanup(retention time.Duration) error {
	if !s.Enabled() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := toMillis(time.Now().Add(-retention))

	if _, err := s.db.Exec("DELETE FROM stage_events WHERE created_at < ?", cutoff); err != nil {
		s.log().Warn("failed to cleanup stage_events", zap.Error(err))
	}

	if _, err := s.db.Exec("DELETE FROM feedback WHERE created_at < ?", cutoff); err != nil {
		s.log().Warn("failed to cleanup feedback", zap.Error(err))
	}

	// Vacuum to reclaim space
	if _, err := s.db.Exec("VACUUM"); err != nil {
		s.log().Warn("failed to vacuum database", zap.Error(err))
	}

	return nil
}
