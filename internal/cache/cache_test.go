package cache

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/study-advisor/internal/fingerprint"
	"github.com/khanglvm/study-advisor/internal/stage"
	"github.com/khanglvm/study-advisor/internal/storage"
)

const sigA = fingerprint.Signature("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newSQLiteStore(t *testing.T, clock *fakeClock) *Store {
	t.Helper()
	st := storage.NewStorage(filepath.Join(t.TempDir(), "cache.db"), nil)
	require.NoError(t, st.Init())
	t.Cleanup(func() { st.Close() })
	return New(st, Options{Now: clock.Now}, nil)
}

// mockStorage is a minimal in-memory storage.Storage.
type mockStorage struct {
	entries  map[string]storage.EntryRecord
	corrupt  map[string]bool
	deleted  []string
	patterns []storage.Pattern
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		entries: make(map[string]storage.EntryRecord),
		corrupt: make(map[string]bool),
	}
}

func key(sig, st string) string { return sig + "_" + st }

func (m *mockStorage) Init() error { return nil }

func (m *mockStorage) GetEntry(sig, st string) (*storage.EntryRecord, error) {
	if m.corrupt[key(sig, st)] {
		return nil, fmt.Errorf("%w: test", storage.ErrCorruptRecord)
	}
	rec, ok := m.entries[key(sig, st)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *mockStorage) PutEntry(rec storage.EntryRecord) error {
	m.entries[key(rec.Signature, rec.Stage)] = rec
	return nil
}

func (m *mockStorage) DeleteEntry(sig, st string) error {
	m.deleted = append(m.deleted, key(sig, st))
	delete(m.entries, key(sig, st))
	delete(m.corrupt, key(sig, st))
	return nil
}

func (m *mockStorage) ListSignatures() ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, rec := range m.entries {
		if !seen[rec.Signature] {
			seen[rec.Signature] = true
			out = append(out, rec.Signature)
		}
	}
	return out, nil
}

func (m *mockStorage) CountEntries() (int, error) { return len(m.entries), nil }

func (m *mockStorage) DeleteEntriesBefore(cutoff time.Time) (int, error) {
	n := 0
	for k, rec := range m.entries {
		if rec.CreatedAt.Before(cutoff) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (m *mockStorage) UpsertPattern(p storage.Pattern) error {
	m.patterns = append(m.patterns, p)
	return nil
}

func (m *mockStorage) ListPatterns(prefix string) ([]storage.Pattern, error) {
	var out []storage.Pattern
	for _, p := range m.patterns {
		if p.Prefix == prefix {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockStorage) CountPatterns() (int, error)                     { return len(m.patterns), nil }
func (m *mockStorage) RecordStageEvent(storage.StageEvent) error       { return nil }
func (m *mockStorage) RecordFeedback(storage.FeedbackRecord) error     { return nil }
func (m *mockStorage) Summary(time.Time) (storage.UsageSummary, error) { return storage.UsageSummary{}, nil }
func (m *mockStorage) Cleanup(time.Duration) error                     { return nil }
func (m *mockStorage) Close() error                                    { return nil }

func TestPutGetUntilFreshnessTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	store := newSQLiteStore(t, clock)

	require.NoError(t, store.Put(sigA, stage.Survey, "kết quả", GeneratedConfidence))

	clock.Advance(23*time.Hour + 59*time.Minute)
	entry, ok := store.Get(sigA, stage.Survey)
	require.True(t, ok)
	assert.Equal(t, "kết quả", entry.Text)
	assert.Equal(t, float64(GeneratedConfidence), entry.Confidence)

	clock.Advance(2 * time.Minute)
	_, ok = store.Get(sigA, stage.Survey)
	assert.False(t, ok)

	count, err := store.storage.CountEntries()
	require.NoError(t, err)
	assert.Equal(t, 0, count, "expired entry should be removed on read")

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 50.0, stats.HitRate)
}

func TestGetIsStageScoped(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := newSQLiteStore(t, clock)

	require.NoError(t, store.Put(sigA, stage.Survey, "one", 80))
	_, ok := store.Get(sigA, stage.Transcript)
	assert.False(t, ok)
}

func TestCorruptEntryIsPurged(t *testing.T) {
	mock := newMockStorage()
	mock.corrupt[key(string(sigA), stage.Survey.Key())] = true
	store := New(mock, Options{}, nil)

	_, ok := store.Get(sigA, stage.Survey)
	assert.False(t, ok)
	assert.Equal(t, []string{key(string(sigA), stage.Survey.Key())}, mock.deleted)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestSweep(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	store := newSQLiteStore(t, clock)

	require.NoError(t, store.Put("old", stage.Survey, "x", 80))
	clock.Advance(49 * time.Hour)
	require.NoError(t, store.Put("new", stage.Survey, "y", 80))

	n, err := store.Sweep(0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok := store.Get("new", stage.Survey)
	assert.True(t, ok)
}

func TestFeedbackConfidence(t *testing.T) {
	assert.Equal(t, 90.0, FeedbackConfidence(4))
	assert.Equal(t, 95.0, FeedbackConfidence(5))
	assert.Equal(t, 75.0, FeedbackConfidence(1))
}

func TestSimilarityScan(t *testing.T) {
	mock := newMockStorage()
	store := New(mock, Options{}, nil)

	same := fingerprint.Signature("fedcba9876543210fedcba9876543210")
	partial := fingerprint.Signature("00000000000000000000000000001234")
	for _, sig := range []fingerprint.Signature{sigA, same, partial} {
		require.NoError(t, store.Put(sig, stage.Survey, "t", 80))
	}

	neighbors, err := store.SimilarityScan(sigA, 0.8)
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, same, neighbors[0].Signature)
	assert.Equal(t, 1.0, neighbors[0].Score)
}

func TestSimilarityScanLimit(t *testing.T) {
	mock := newMockStorage()
	store := New(mock, Options{}, nil)

	for i := 0; i < 6; i++ {
		sig := fingerprint.Signature(fmt.Sprintf("%x0123456789abcdef", i))
		require.NoError(t, store.Put(sig, stage.Survey, "t", 80))
	}

	neighbors, err := store.SimilarityScan(sigA, 0)
	require.NoError(t, err)
	assert.Len(t, neighbors, 3)
	for _, n := range neighbors {
		assert.GreaterOrEqual(t, n.Score, DefaultSimilarityThreshold)
		assert.NotEqual(t, sigA, n.Signature)
	}
}

func TestBucketDistance(t *testing.T) {
	var s BucketDistance
	assert.Equal(t, 1.0, s.Score("abc", "abc"))
	assert.Equal(t, 0.0, s.Score("0", "f"))
	assert.Equal(t, 0.0, s.Score("ab", "abc"))
	assert.InDelta(t, 1-8.0/2/15, s.Score("08", "00"), 1e-9)

	strategy, ok := StrategyByName("bucket_distance")
	assert.True(t, ok)
	assert.Equal(t, "bucket_distance", strategy.Name())
	_, ok = StrategyByName("nope")
	assert.False(t, ok)
}

func TestExtractSuccessIndicators(t *testing.T) {
	text := "Sinh viên có kỹ năng tự học xuất sắc và là một người giỏi giao tiếp. Điểm mạnh lớn nhất là tư duy."
	indicators := ExtractSuccessIndicators(text)
	require.Len(t, indicators, 3)
	assert.Contains(t, indicators[0], "xuất sắc")
	assert.Contains(t, indicators[1], "Điểm mạnh")
	assert.Contains(t, indicators[2], "giỏi")

	assert.Empty(t, ExtractSuccessIndicators("không có gì"))
}

func TestRecordSuccess(t *testing.T) {
	mock := newMockStorage()
	store := New(mock, Options{}, nil)

	require.NoError(t, store.RecordSuccess(sigA, "", "Kết quả tốt"))
	patterns, err := store.Patterns(sigA)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, "01234567", patterns[0].Prefix)
	assert.Equal(t, "unknown", patterns[0].Department)
	assert.Equal(t, []string{"Kết quả tốt"}, patterns[0].Indicators)
}
