/*
Package cache is the content-addressable store of stage results.

Entries are keyed by (signature, stage) and expire after the freshness TTL,
checked on read. A periodic sweep removes entries past the cleanup TTL. The
store also keeps the successful-pattern index fed by positive feedback and a
similarity scan over stored signatures.

Reads never fail the caller: storage errors and corrupt records degrade to a
miss, and corrupt records are purged.
*/
package cache

import (
	"errors"
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/khanglvm/study-advisor/internal/fingerprint"
	"github.com/khanglvm/study-advisor/internal/stage"
	"github.com/khanglvm/study-advisor/internal/storage"
)

// Confidence values on the 0-100 scale.
const (
	GeneratedConfidence   = 80
	MaxFeedbackConfidence = 95
)

// Defaults for Options.
const (
	DefaultFreshnessTTL        = 24 * time.Hour
	DefaultCleanupTTL          = 48 * time.Hour
	DefaultSimilarityThreshold = 0.8
	maxNeighbors               = 3
)

// FeedbackConfidence maps a 1-5 feedback score to an entry confidence.
func FeedbackConfidence(score int) float64 {
	return math.Min(MaxFeedbackConfidence, float64(70+5*score))
}

// Entry is a cached stage result.
type Entry struct {
	Signature  fingerprint.Signature `json:"signature"`
	Stage      stage.ID              `json:"stage"`
	Text       string                `json:"text"`
	Confidence float64               `json:"confidence"`
	CreatedAt  time.Time             `json:"created_at"`
}

// Options configures a Store.
type Options struct {
	FreshnessTTL        time.Duration
	CleanupTTL          time.Duration
	SimilarityThreshold float64
	Strategy            NeighborStrategy

	// Now overrides the clock in tests.
	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.FreshnessTTL <= 0 {
		o.FreshnessTTL = DefaultFreshnessTTL
	}
	if o.CleanupTTL <= 0 {
		o.CleanupTTL = DefaultCleanupTTL
	}
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if o.Strategy == nil {
		o.Strategy = CharsetJaccard{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Store is the response cache.
type Store struct {
	storage storage.Storage
	opts    Options
	logger  *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Store over an initialized storage backend.
func New(st storage.Storage, opts Options, logger *zap.Logger) *Store {
	opts.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{storage: st, opts: opts, logger: logger}
}

// Get returns the entry for (sig, id) if present and fresh.
func (s *Store) Get(sig fingerprint.Signature, id stage.ID) (Entry, bool) {
	rec, err := s.storage.GetEntry(string(sig), id.Key())
	if err != nil {
		if errors.Is(err, storage.ErrCorruptRecord) {
			s.logger.Warn("purging corrupt cache entry",
				zap.String("signature", string(sig)),
				zap.String("stage", id.Key()),
				zap.Error(err))
			s.delete(sig, id)
		} else {
			s.logger.Warn("cache read failed", zap.Error(err))
		}
		s.misses.Add(1)
		return Entry{}, false
	}
	if rec == nil {
		s.misses.Add(1)
		return Entry{}, false
	}

	if s.opts.Now().Sub(rec.CreatedAt) >= s.opts.FreshnessTTL {
		s.delete(sig, id)
		s.misses.Add(1)
		return Entry{}, false
	}

	s.hits.Add(1)
	return Entry{
		Signature:  sig,
		Stage:      id,
		Text:       rec.Text,
		Confidence: rec.Confidence,
		CreatedAt:  rec.CreatedAt,
	}, true
}

// Put stores text for (sig, id), replacing any earlier entry.
func (s *Store) Put(sig fingerprint.Signature, id stage.ID, text string, confidence float64) error {
	return s.storage.PutEntry(storage.EntryRecord{
		Signature:  string(sig),
		Stage:      id.Key(),
		Text:       text,
		Confidence: confidence,
		CreatedAt:  s.opts.Now(),
	})
}

// Sweep removes entries older than maxAge and returns how many were removed.
// A non-positive maxAge uses the configured cleanup TTL.
func (s *Store) Sweep(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = s.opts.CleanupTTL
	}
	n, err := s.storage.DeleteEntriesBefore(s.opts.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("swept expired cache entries", zap.Int("count", n))
	}
	return n, nil
}

func (s *Store) delete(sig fingerprint.Signature, id stage.ID) {
	if err := s.storage.DeleteEntry(string(sig), id.Key()); err != nil {
		s.logger.Warn("failed to delete cache entry", zap.Error(err))
	}
}
