package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetEntry loads the cached result for a (signature, stage) slot.
func (s *SQLiteStorage) GetEntry(signature, stage string) (*EntryRecord, error) {
	if !s.Enabled() {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var version int
	var payload string
	err := s.db.QueryRow(`
		SELECT format_version, payload
		FROM cache_entries
		WHERE signature = ? AND stage = ?
	`, signature, stage).Scan(&version, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entry: %w", err)
	}

	if version != FormatVersion {
		return nil, fmt.Errorf("%w: stored version %d", ErrCorruptRecord, version)
	}
	return DecodeEntry([]byte(payload))
}

// PutEntry stores or replaces a cached result.
func (s *SQLiteStorage) PutEntry(rec EntryRecord) error {
	if !s.Enabled() {
		return nil
	}

	payload, err := EncodeEntry(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO cache_entries (signature, stage, format_version, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.Signature, rec.Stage, FormatVersion, string(payload), toMillis(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// DeleteEntry removes a cached result.
func (s *SQLiteStorage) DeleteEntry(signature, stage string) error {
	if !s.Enabled() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(
		"DELETE FROM cache_entries WHERE signature = ? AND stage = ?", signature, stage,
	); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// ListSignatures returns every distinct cached signature in sorted order.
func (s *SQLiteStorage) ListSignatures() ([]string, error) {
	if !s.Enabled() {
		return []string{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT DISTINCT signature FROM cache_entries ORDER BY signature")
	if err != nil {
		return nil, fmt.Errorf("failed to list signatures: %w", err)
	}
	defer rows.Close()

	sigs := []string{}
	for rows.Next() {
		var sig string
		if err := rows.Scan(&sig); err != nil {
			return nil, fmt.Errorf("failed to scan signature: %w", err)
		}
		sigs = append(sigs, sig)
	}
	return sigs, rows.Err()
}

// CountEntries returns the number of cached results.
func (s *SQLiteStorage) CountEntries() (int, error) {
	return s.count("SELECT COUNT(*) FROM cache_entries")
}

// DeleteEntriesBefore removes cached results created before cutoff.
func (s *SQLiteStorage) DeleteEntriesBefore(cutoff time.Time) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM cache_entries WHERE created_at < ?", toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept entries: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStorage) count(query string, args ...any) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}
