package storage

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// UpsertPattern records a success pattern. A repeat for the same signature
// refreshes department, indicators and timestamp and bumps usage_count.
func (s *SQLiteStorage) UpsertPattern(p Pattern) error {
	if !s.Enabled() {
		return nil
	}

	indicators := p.Indicators
	if indicators == nil {
		indicators = []string{}
	}
	data, err := json.Marshal(indicators)
	if err != nil {
		return fmt.Errorf("failed to encode indicators: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO success_patterns (prefix, signature, department, indicators, created_at, usage_count)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(signature) DO UPDATE SET
			department = excluded.department,
			indicators = excluded.indicators,
			created_at = excluded.created_at,
			usage_count = success_patterns.usage_count + 1
	`, p.Prefix, p.Signature, p.Department, string(data), toMillis(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert success pattern: %w", err)
	}
	return nil
}

// ListPatterns returns the patterns sharing a signature prefix, most used first.
func (s *SQLiteStorage) ListPatterns(prefix string) ([]Pattern, error) {
	if !s.Enabled() {
		return []Pattern{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT prefix, signature, department, indicators, created_at, usage_count
		FROM success_patterns
		WHERE prefix = ?
		ORDER BY usage_count DESC, signature
	`, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to query success patterns: %w", err)
	}
	defer rows.Close()

	patterns := []Pattern{}
	for rows.Next() {
		var p Pattern
		var indicators string
		var created int64
		if err := rows.Scan(&p.Prefix, &p.Signature, &p.Department, &indicators, &created, &p.UsageCount); err != nil {
			return nil, fmt.Errorf("failed to scan success pattern: %w", err)
		}
		if err := json.Unmarshal([]byte(indicators), &p.Indicators); err != nil {
			s.log().Warn("skipping unreadable pattern indicators",
				zap.String("signature", p.Signature), zap.Error(err))
		}
		p.CreatedAt = fromMillis(created)
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// CountPatterns returns the number of stored success patterns.
func (s *SQLiteStorage) CountPatterns() (int, error) {
	return s.count("SELECT COUNT(*) FROM success_patterns")
}
