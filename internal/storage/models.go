/*
Package storage provides data models for the cache and learning system.

These models represent cached stage results, success patterns, stage run
events and feedback scores.
*/
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// FormatVersion is the payload version written with every cache entry.
const FormatVersion = 1

// ErrCorruptRecord marks a stored cache record that cannot be decoded.
var ErrCorruptRecord = errors.New("corrupt cache record")

// EntryRecord is a cached stage result.
type EntryRecord struct {
	// FormatVersion is the payload layout version.
	FormatVersion int `json:"format_version"`

	// Signature is the profile fingerprint.
	Signature string `json:"signature"`

	// Stage is the stage wire key.
	Stage string `json:"stage"`

	// Text is the full stage result.
	Text string `json:"text"`

	// Confidence is on a 0-100 scale.
	Confidence float64 `json:"confidence"`

	// CreatedAt is when the result was stored.
	CreatedAt time.Time `json:"created_at"`
}

// EncodeEntry serializes a record with the current format version.
func EncodeEntry(rec EntryRecord) ([]byte, error) {
	rec.FormatVersion = FormatVersion
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return data, nil
}

// DecodeEntry parses a stored payload. Any mismatch is reported as
// ErrCorruptRecord.
func DecodeEntry(data []byte) (*EntryRecord, error) {
	var rec EntryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if rec.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: format version %d", ErrCorruptRecord, rec.FormatVersion)
	}
	return &rec, nil
}

// Pattern is a successful-pattern record.
type Pattern struct {
	// Prefix is the first 8 characters of the signature.
	Prefix string `json:"prefix"`

	// Signature is the full profile fingerprint.
	Signature string `json:"signature"`

	// Department is the learner's faculty.
	Department string `json:"khoa"`

	// Indicators are short excerpts around success keywords.
	Indicators []string `json:"success_indicators"`

	// CreatedAt is when the pattern was last recorded.
	CreatedAt time.Time `json:"timestamp"`

	// UsageCount counts how many times the pattern was recorded.
	UsageCount int `json:"usage_count"`
}

// StageEvent records the outcome of one stage run.
type StageEvent struct {
	SessionID     string        `json:"session_id"`
	Signature     string        `json:"signature"`
	Stage         string        `json:"stage"`
	Source        string        `json:"source"`
	Template      string        `json:"template,omitempty"`
	KnowledgeUsed bool          `json:"knowledge_used"`
	Elapsed       time.Duration `json:"elapsed"`
	Timestamp     time.Time     `json:"timestamp"`
}

// FeedbackRecord is a 1-5 rating of a stage result.
type FeedbackRecord struct {
	SessionID string    `json:"session_id"`
	Signature string    `json:"signature"`
	Stage     string    `json:"stage"`
	Score     int       `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// UsageSummary aggregates stage events and feedback.
type UsageSummary struct {
	Consultations     int     `json:"total_consultations"`
	StageRuns         int     `json:"stage_runs"`
	CacheHits         int     `json:"cache_hits"`
	TemplateResponses int     `json:"template_responses"`
	Generated         int     `json:"generated"`
	KnowledgeEnhanced int     `json:"knowledge_enhanced"`
	Errors            int     `json:"errors"`
	FeedbackCount     int     `json:"feedback_count"`
	AverageFeedback   float64 `json:"average_feedback"`
}

// CacheHitRate returns the share of stage runs served from cache, in percent.
func (u UsageSummary) CacheHitRate() float64 {
	if u.StageRuns == 0 {
		return 0
	}
	return float64(u.CacheHits) / float64(u.StageRuns) * 100
}
