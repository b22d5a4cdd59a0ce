/*
Package knowledge implements the advising knowledge index.

Documents are short pieces of guidance embedded into fixed-dimension,
L2-normalized vectors. Retrieval ranks every document by inner product with
the query vector. An optional hybrid mode fuses those scores with BM25 scores
from an in-memory bleve index.

The index is append-only and persisted as documents.json plus vectors.bin. It
is rebuilt in memory on every load.
*/
package knowledge

import (
	"errors"
	"time"
)

// ErrUnavailable is returned when the index is empty or cannot answer.
var ErrUnavailable = errors.New("knowledge index unavailable")

// Document types used by the seed corpus and learned cases.
const (
	TypeStrengthAnalysis    = "strength_analysis"
	TypeCareerGuidance      = "career_guidance"
	TypeImprovementStrategy = "improvement_strategy"
	TypeCareerMapping       = "career_mapping"
	TypeGradingSystem       = "grading_system"
	TypeBalanceStrategy     = "balance_strategy"
	TypeSuccessfulCase      = "successful_case"
)

// StudentPattern summarizes the learner behind a successful case.
type StudentPattern struct {
	SkillsAvg float64  `json:"skills_avg,omitempty"`
	TopSkills []string `json:"top_skills,omitempty"`
	GradeAvg  float64  `json:"grade_avg,omitempty"`
}

// Metadata describes a document.
type Metadata struct {
	Type           string          `json:"type,omitempty"`
	Department     string          `json:"khoa,omitempty"`
	Skill          string          `json:"skill,omitempty"`
	Level          string          `json:"level,omitempty"`
	Context        string          `json:"context,omitempty"`
	Keywords       []string        `json:"keywords,omitempty"`
	FeedbackScore  float64         `json:"feedback_score,omitempty"`
	Stage          string          `json:"stage,omitempty"`
	Timestamp      *time.Time      `json:"timestamp,omitempty"`
	StudentPattern *StudentPattern `json:"student_pattern,omitempty"`
}

// Document is one indexed snippet.
type Document struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Result is a ranked document.
type Result struct {
	Document
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}
