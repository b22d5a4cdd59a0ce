/*
Package storage implements the persistent layer behind the response cache and
the learning tracker.

This package provides SQLite-based storage for cached stage results, success
patterns, stage events and feedback, with graceful degradation if the database
is unavailable. A disabled store answers every read with a miss and accepts
every write as a no-op.

The database lives at ~/.study-advisor/cache/advisor.db by default and uses
modernc.org/sqlite (a pure Go, CGo-free implementation). The schema is managed
by goose migrations embedded in the migrations package.
*/
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Storage defines the interface for persistent storage operations.
type Storage interface {
	// Init initializes the database and runs migrations.
	Init() error

	// GetEntry loads the cached result for a (signature, stage) slot.
	// A missing slot returns (nil, nil). An undecodable record returns
	// ErrCorruptRecord.
	GetEntry(signature, stage string) (*EntryRecord, error)

	// PutEntry stores or replaces a cached result.
	PutEntry(rec EntryRecord) error

	// DeleteEntry removes a cached result.
	DeleteEntry(signature, stage string) error

	// ListSignatures returns every distinct cached signature.
	ListSignatures() ([]string, error)

	// CountEntries returns the number of cached results.
	CountEntries() (int, error)

	// DeleteEntriesBefore removes cached results created before cutoff.
	DeleteEntriesBefore(cutoff time.Time) (int, error)

	// UpsertPattern records a success pattern, bumping usage on repeats.
	UpsertPattern(p Pattern) error

	// ListPatterns returns the patterns sharing a signature prefix.
	ListPatterns(prefix string) ([]Pattern, error)

	// CountPatterns returns the number of stored success patterns.
	CountPatterns() (int, error)

	// RecordStageEvent records the outcome of one stage run.
	RecordStageEvent(event StageEvent) error

	// RecordFeedback records a feedback score.
	RecordFeedback(rec FeedbackRecord) error

	// Summary aggregates stage events and feedback since a given time.
	Summary(since time.Time) (UsageSummary, error)

	// Cleanup removes stage events and feedback older than retention.
	Cleanup(retention time.Duration) error

	// Close closes the database connection.
	Close() error
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	enabled  bool
	logger   *zap.Logger
	mu       sync.Mutex
	initOnce sync.Once
}

// DefaultPath returns ~/.study-advisor/cache/advisor.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".study-advisor", "cache", "advisor.db"), nil
}

// NewStorage creates a new SQLite storage instance at dbPath.
//
// An empty dbPath selects DefaultPath. If the home directory cannot be
// resolved the storage is disabled but operations will not fail.
func NewStorage(dbPath string, logger *zap.Logger) *SQLiteStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dbPath == "" {
		p, err := DefaultPath()
		if err != nil {
			logger.Warn("storage disabled", zap.Error(err))
			return &SQLiteStorage{enabled: false, logger: logger}
		}
		dbPath = p
	}

	return &SQLiteStorage{
		dbPath:  dbPath,
		enabled: true,
		logger:  logger,
	}
}

// Init initializes the database and runs migrations.
//
// If initialization fails, storage is disabled and subsequent operations
// become no-ops (graceful degradation).
func (s *SQLiteStorage) Init() error {
	if !s.enabled {
		return nil
	}

	var initErr error
	s.initOnce.Do(func() {
		fail := func(err error) {
			initErr = err
			s.enabled = false
			s.log().Warn("storage disabled", zap.String("path", s.dbPath), zap.Error(err))
		}

		if err := os.MkdirAll(filepath.Dir(s.dbPath), 0755); err != nil {
			fail(fmt.Errorf("failed to create db directory: %w", err))
			return
		}

		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			fail(fmt.Errorf("failed to open database: %w", err))
			return
		}
		s.db = db

		if err := db.Ping(); err != nil {
			fail(fmt.Errorf("failed to ping database: %w", err))
			return
		}

		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			fail(fmt.Errorf("failed to enable WAL mode: %w", err))
			return
		}

		if err := s.runMigrations(); err != nil {
			fail(fmt.Errorf("failed to run migrations: %w", err))
			return
		}
	})

	return initErr
}

// Enabled reports whether the store is usable.
func (s *SQLiteStorage) Enabled() bool {
	return s.enabled && s.db != nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}

func (s *SQLiteStorage) log() *zap.Logger {
	if s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}
