package knowledge

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Search modes.
const (
	ModeSemantic = "semantic"
	ModeHybrid   = "hybrid"
)

// Defaults for Options.
const (
	DefaultTopK     = 3
	DefaultMinScore = 0.5
)

// Options configures an Index.
type Options struct {
	// Dir holds documents.json and vectors.bin. Empty keeps the index in memory.
	Dir      string
	TopK     int
	MinScore float64
	Mode     string
	Fusion   FusionConfig
}

// Index is the knowledge index.
type Index struct {
	embedder Embedder
	opts     Options
	logger   *zap.Logger

	mu         sync.RWMutex
	persistMu  sync.Mutex
	docs       []Document
	vectors    [][]float32
	positions  map[string]int
	bleveIndex bleve.Index
}

// Open loads the index from opts.Dir, or seeds it when nothing is persisted.
// Documents whose vectors are missing or were produced by another embedder
// are re-embedded.
func Open(ctx context.Context, embedder Embedder, opts Options, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Mode == "" {
		opts.Mode = ModeSemantic
	}
	if opts.Fusion == (FusionConfig{}) {
		opts.Fusion = DefaultFusionConfig
	}

	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	i := &Index{
		embedder:   embedder,
		opts:       opts,
		logger:     logger,
		positions:  make(map[string]int),
		bleveIndex: idx,
	}

	docs, vectors, err := i.load()
	if err != nil {
		logger.Warn("knowledge base unreadable, reseeding", zap.String("dir", opts.Dir), zap.Error(err))
		docs, vectors = nil, nil
	}

	reembed := docs == nil || len(vectors) != len(docs)
	if docs == nil {
		docs = SeedDocuments()
	}
	if reembed {
		vectors = make([][]float32, len(docs))
		for n, doc := range docs {
			vec, err := embedder.Embed(ctx, doc.Content)
			if err != nil {
				idx.Close()
				return nil, fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
			}
			vectors[n] = vec
		}
	}

	if err := i.rebuild(docs, vectors); err != nil {
		idx.Close()
		return nil, err
	}

	if reembed {
		if err := i.persist(); err != nil {
			logger.Warn("failed to persist knowledge base", zap.Error(err))
		}
	}

	logger.Info("knowledge base ready",
		zap.Int("documents", len(docs)),
		zap.String("embedder", embedder.Name()),
		zap.String("mode", opts.Mode))
	return i, nil
}

// buildIndexMapping creates the bleve mapping for lexical search.
func buildIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	contentFieldMapping := bleve.NewTextFieldMapping()
	docMapping.AddFieldMappingsAt("content", contentFieldMapping)

	typeFieldMapping := bleve.NewTextFieldMapping()
	docMapping.AddFieldMappingsAt("type", typeFieldMapping)

	deptFieldMapping := bleve.NewTextFieldMapping()
	docMapping.AddFieldMappingsAt("khoa", deptFieldMapping)

	skillFieldMapping := bleve.NewTextFieldMapping()
	docMapping.AddFieldMappingsAt("skill", skillFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

func lexicalDoc(doc Document) map[string]interface{} {
	return map[string]interface{}{
		"content": doc.Content + " " + strings.Join(doc.Metadata.Keywords, " "),
		"type":    doc.Metadata.Type,
		"khoa":    doc.Metadata.Department,
		"skill":   strings.ReplaceAll(doc.Metadata.Skill, "_", " "),
	}
}

// rebuild replaces the in-memory state.
func (i *Index) rebuild(docs []Document, vectors [][]float32) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.bleveIndex.NewBatch()
	for n, doc := range docs {
		if doc.ID == "" {
			docs[n].ID = ulid.Make().String()
			doc = docs[n]
		}
		i.positions[doc.ID] = n
		if err := batch.Index(doc.ID, lexicalDoc(doc)); err != nil {
			i.logger.Warn("failed to index document", zap.String("id", doc.ID), zap.Error(err))
		}
	}
	if err := i.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch index documents: %w", err)
	}

	i.docs = docs
	i.vectors = vectors
	return nil
}

// Upsert embeds doc and adds it to the index, replacing a document with the
// same ID. Existing vectors are never recomputed. The stored document, with
// its assigned ID, is returned.
func (i *Index) Upsert(ctx context.Context, doc Document) (Document, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return doc, fmt.Errorf("document content is empty")
	}
	if doc.ID == "" {
		doc.ID = ulid.Make().String()
	}

	vec, err := i.embedder.Embed(ctx, doc.Content)
	if err != nil {
		return doc, fmt.Errorf("failed to embed document: %w", err)
	}

	i.mu.Lock()
	if pos, ok := i.positions[doc.ID]; ok {
		i.docs[pos] = doc
		i.vectors[pos] = vec
	} else {
		i.positions[doc.ID] = len(i.docs)
		i.docs = append(i.docs, doc)
		i.vectors = append(i.vectors, vec)
	}
	if err := i.bleveIndex.Index(doc.ID, lexicalDoc(doc)); err != nil {
		i.logger.Warn("failed to index document", zap.String("id", doc.ID), zap.Error(err))
	}
	i.mu.Unlock()

	if err := i.persist(); err != nil {
		return doc, err
	}
	return doc, nil
}

// Search returns documents scoring at or above minScore, best first, at most
// topK of them. Non-positive topK uses the configured default; negative
// minScore uses the configured minimum.
func (i *Index) Search(ctx context.Context, query string, topK int, minScore float64) ([]Result, error) {
	if topK <= 0 {
		topK = i.opts.TopK
	}
	if minScore < 0 {
		minScore = i.opts.MinScore
	}

	var results []Result
	var err error
	if i.opts.Mode == ModeHybrid {
		results, err = i.SearchHybrid(ctx, query, topK, i.opts.Fusion)
	} else {
		results, err = i.SearchSemantic(ctx, query, topK)
	}
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Score >= minScore {
			r.Rank = len(out) + 1
			out = append(out, r)
		}
	}
	return out, nil
}

// Count returns the number of indexed documents.
func (i *Index) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.docs)
}

// Documents returns a copy of the indexed documents in insertion order.
func (i *Index) Documents() []Document {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return append([]Document(nil), i.docs...)
}

// Close closes the index and releases resources.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.bleveIndex != nil {
		return i.bleveIndex.Close()
	}

	return nil
}
