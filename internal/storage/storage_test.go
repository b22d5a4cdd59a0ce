/*
Package storage provides tests for the storage layer.
*/
package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	storage := &SQLiteStorage{
		dbPath:  filepath.Join(t.TempDir(), "test.db"),
		enabled: true,
	}
	if err := storage.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return storage
}

// TestNewStorage verifies storage construction.
func TestNewStorage(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "advisor.db")
	storage := NewStorage(dbPath, nil)
	if storage == nil {
		t.Fatal("NewStorage returned nil")
	}
	if storage.Path() != dbPath {
		t.Errorf("Expected path %s, got %s", dbPath, storage.Path())
	}
}

// TestInit verifies database initialization and schema creation.
func TestInit(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	storage := &SQLiteStorage{
		dbPath:  dbPath,
		enabled: true,
	}

	if err := storage.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer storage.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file not created")
	}

	version, err := storage.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != 2 {
		t.Errorf("Expected schema version 2, got %d", version)
	}
}

// TestEntryRoundTrip verifies put, get and delete of a cache entry.
func TestEntryRoundTrip(t *testing.T) {
	storage := newTestStorage(t)

	created := time.UnixMilli(time.Now().UnixMilli())
	rec := EntryRecord{
		Signature:  "abc",
		Stage:      "stage1_khaosat",
		Text:       "Phân tích kỹ năng",
		Confidence: 80,
		CreatedAt:  created,
	}
	if err := storage.PutEntry(rec); err != nil {
		t.Fatalf("PutEntry failed: %v", err)
	}

	got, err := storage.GetEntry("abc", "stage1_khaosat")
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected entry, got nil")
	}
	if got.Text != rec.Text || got.Confidence != 80 {
		t.Errorf("Unexpected entry: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("Expected created_at %v, got %v", created, got.CreatedAt)
	}

	missing, err := storage.GetEntry("abc", "stage2_diem")
	if err != nil || missing != nil {
		t.Errorf("Expected miss for other stage, got %+v, %v", missing, err)
	}

	if err := storage.DeleteEntry("abc", "stage1_khaosat"); err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}
	gone, _ := storage.GetEntry("abc", "stage1_khaosat")
	if gone != nil {
		t.Error("Expected entry to be deleted")
	}
}

// TestCorruptEntry verifies undecodable records surface ErrCorruptRecord.
func TestCorruptEntry(t *testing.T) {
	storage := newTestStorage(t)

	if _, err := storage.db.Exec(`
		INSERT INTO cache_entries (signature, stage, format_version, payload, created_at)
		VALUES ('bad-json', 's', 1, '{not json', 0), ('old', 's', 99, '{}', 0)
	`); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	for _, sig := range []string{"bad-json", "old"} {
		_, err := storage.GetEntry(sig, "s")
		if !errors.Is(err, ErrCorruptRecord) {
			t.Errorf("%s: expected ErrCorruptRecord, got %v", sig, err)
		}
	}
}

// TestSignaturesAndSweep verifies listing and age-based deletion.
func TestSignaturesAndSweep(t *testing.T) {
	storage := newTestStorage(t)

	now := time.Now()
	entries := []EntryRecord{
		{Signature: "b", Stage: "stage1_khaosat", Text: "x", CreatedAt: now},
		{Signature: "a", Stage: "stage1_khaosat", Text: "x", CreatedAt: now.Add(-72 * time.Hour)},
		{Signature: "a", Stage: "stage2_diem", Text: "x", CreatedAt: now},
	}
	for _, e := range entries {
		if err := storage.PutEntry(e); err != nil {
			t.Fatalf("PutEntry failed: %v", err)
		}
	}

	sigs, err := storage.ListSignatures()
	if err != nil {
		t.Fatalf("ListSignatures failed: %v", err)
	}
	if len(sigs) != 2 || sigs[0] != "a" || sigs[1] != "b" {
		t.Errorf("Expected [a b], got %v", sigs)
	}

	removed, err := storage.DeleteEntriesBefore(now.Add(-48 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteEntriesBefore failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}

	count, _ := storage.CountEntries()
	if count != 2 {
		t.Errorf("Expected 2 entries left, got %d", count)
	}
}

// TestUpsertPattern verifies repeats bump usage_count.
func TestUpsertPattern(t *testing.T) {
	storage := newTestStorage(t)

	p := Pattern{
		Prefix:     "01234567",
		Signature:  "0123456789abcdef",
		Department: "CNTT",
		Indicators: []string{"xuất sắc"},
		CreatedAt:  time.Now(),
	}
	if err := storage.UpsertPattern(p); err != nil {
		t.Fatalf("UpsertPattern failed: %v", err)
	}
	p.Indicators = []string{"giỏi", "tốt"}
	if err := storage.UpsertPattern(p); err != nil {
		t.Fatalf("UpsertPattern failed: %v", err)
	}

	patterns, err := storage.ListPatterns("01234567")
	if err != nil {
		t.Fatalf("ListPatterns failed: %v", err)
	}
	if len(patterns) != 1 {
		t.Fatalf("Expected 1 pattern, got %d", len(patterns))
	}
	if patterns[0].UsageCount != 2 {
		t.Errorf("Expected usage_count 2, got %d", patterns[0].UsageCount)
	}
	if len(patterns[0].Indicators) != 2 {
		t.Errorf("Expected refreshed indicators, got %v", patterns[0].Indicators)
	}

	count, _ := storage.CountPatterns()
	if count != 1 {
		t.Errorf("Expected 1 pattern, got %d", count)
	}
}

// TestSummary verifies aggregation of stage events and feedback.
func TestSummary(t *testing.T) {
	storage := newTestStorage(t)

	now := time.Now()
	events := []StageEvent{
		{SessionID: "s1", Stage: "stage1_khaosat", Source: "cache", Timestamp: now},
		{SessionID: "s1", Stage: "stage2_diem", Source: "generated", KnowledgeUsed: true, Timestamp: now},
		{SessionID: "s2", Stage: "stage1_khaosat", Source: "template", Template: "excellent_performer", Timestamp: now},
		{SessionID: "s2", Stage: "stage2_diem", Source: "error", Timestamp: now},
		{SessionID: "old", Stage: "stage1_khaosat", Source: "cache", Timestamp: now.Add(-time.Hour)},
	}
	for _, e := range events {
		if err := storage.RecordStageEvent(e); err != nil {
			t.Fatalf("RecordStageEvent failed: %v", err)
		}
	}
	for _, score := range []int{4, 5} {
		if err := storage.RecordFeedback(FeedbackRecord{SessionID: "s1", Score: score, Timestamp: now}); err != nil {
			t.Fatalf("RecordFeedback failed: %v", err)
		}
	}

	u, err := storage.Summary(now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if u.Consultations != 2 || u.StageRuns != 4 {
		t.Errorf("Unexpected totals: %+v", u)
	}
	if u.CacheHits != 1 || u.TemplateResponses != 1 || u.Generated != 1 || u.KnowledgeEnhanced != 1 || u.Errors != 1 {
		t.Errorf("Unexpected breakdown: %+v", u)
	}
	if u.FeedbackCount != 2 || u.AverageFeedback != 4.5 {
		t.Errorf("Unexpected feedback summary: %+v", u)
	}
	if u.CacheHitRate() != 25 {
		t.Errorf("Expected hit rate 25, got %v", u.CacheHitRate())
	}
}

// TestGracefulDegradation verifies behavior when DB is unavailable.
func TestGracefulDegradation(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	storage := &SQLiteStorage{
		dbPath:  filepath.Join(blocker, "sub", "test.db"),
		enabled: true,
	}

	if err := storage.Init(); err == nil {
		t.Error("Expected Init to fail")
	}

	if err := storage.PutEntry(EntryRecord{Signature: "a", Stage: "s"}); err != nil {
		t.Errorf("PutEntry should return nil on disabled storage, got: %v", err)
	}

	rec, err := storage.GetEntry("a", "s")
	if err != nil || rec != nil {
		t.Errorf("Expected miss on disabled storage, got %+v, %v", rec, err)
	}

	if err := storage.RecordStageEvent(StageEvent{SessionID: "s"}); err != nil {
		t.Errorf("RecordStageEvent should not error on disabled storage, got: %v", err)
	}
}
