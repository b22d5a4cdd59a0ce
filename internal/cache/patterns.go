package cache

import (
	"strings"

	"github.com/khanglvm/study-advisor/internal/fingerprint"
	"github.com/khanglvm/study-advisor/internal/storage"
)

// PatternPrefixLen is the signature prefix length grouping success patterns.
const PatternPrefixLen = 8

const (
	indicatorBefore = 30
	indicatorAfter  = 50
	maxIndicators   = 3
)

var successKeywords = []string{
	"xuất sắc", "thành thạo", "điểm mạnh", "tiềm năng cao",
	"proficient", "mastery", "giỏi", "tốt",
}

// ExtractSuccessIndicators returns up to three excerpts of text surrounding
// the first occurrence of each success keyword, in keyword order.
func ExtractSuccessIndicators(text string) []string {
	original := []rune(text)
	lower := []rune(strings.ToLower(text))
	if len(lower) != len(original) {
		original = lower
	}

	indicators := []string{}
	for _, kw := range successKeywords {
		pos := runeIndex(lower, []rune(kw))
		if pos < 0 {
			continue
		}
		start := max(0, pos-indicatorBefore)
		end := min(len(original), pos+indicatorAfter)
		indicators = append(indicators, strings.TrimSpace(string(original[start:end])))
		if len(indicators) == maxIndicators {
			break
		}
	}
	return indicators
}

func runeIndex(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, r := range needle {
			if haystack[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// RecordSuccess upserts the success pattern for a positively rated result.
func (s *Store) RecordSuccess(sig fingerprint.Signature, department, text string) error {
	if department == "" {
		department = "unknown"
	}
	return s.storage.UpsertPattern(storage.Pattern{
		Prefix:     sig.Prefix(PatternPrefixLen),
		Signature:  string(sig),
		Department: department,
		Indicators: ExtractSuccessIndicators(text),
		CreatedAt:  s.opts.Now(),
	})
}

// Patterns returns the success patterns sharing sig's prefix.
func (s *Store) Patterns(sig fingerprint.Signature) ([]storage.Pattern, error) {
	return s.storage.ListPatterns(sig.Prefix(PatternPrefixLen))
}
