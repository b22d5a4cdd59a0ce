package storage

import (
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/khanglvm/study-advisor/internal/storage/migrations"
)

// runMigrations applies the embedded goose migrations.
func (s *SQLiteStorage) runMigrations() error {
	if s.db == nil {
		return nil
	}

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(s.db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied migration version.
func (s *SQLiteStorage) SchemaVersion() (int64, error) {
	if !s.Enabled() {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return goose.GetDBVersion(s.db)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
