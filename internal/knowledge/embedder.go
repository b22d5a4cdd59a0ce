package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Name() string
}

// DefaultHashDimensions is the vector size of the hashing embedder.
const DefaultHashDimensions = 512

const bigramWeight = 0.5

// HashEmbedder is a deterministic, dependency-free embedder. It tokenizes
// with bleve's standard analyzer and hashes unigrams and bigrams into a
// fixed number of buckets.
type HashEmbedder struct {
	dims     int
	analyzer analysis.Analyzer
}

// NewHashEmbedder creates a hashing embedder. Non-positive dims selects
// DefaultHashDimensions.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashEmbedder{
		dims:     dims,
		analyzer: bleve.NewIndexMapping().AnalyzerNamed(standard.Name),
	}
}

// Embed implements Embedder.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dims)
	terms := h.tokens(text)
	for i, term := range terms {
		vec[h.bucket(term)] += 1
		if i > 0 {
			vec[h.bucket(terms[i-1]+" "+term)] += bigramWeight
		}
	}
	return Normalize(vec), nil
}

func (h *HashEmbedder) tokens(text string) []string {
	if h.analyzer == nil {
		return strings.Fields(strings.ToLower(text))
	}
	stream := h.analyzer.Analyze([]byte(text))
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		terms = append(terms, string(tok.Term))
	}
	return terms
}

func (h *HashEmbedder) bucket(s string) int {
	f := fnv.New32a()
	f.Write([]byte(s))
	return int(f.Sum32() % uint32(h.dims))
}

// Dimensions implements Embedder.
func (h *HashEmbedder) Dimensions() int { return h.dims }

// Name implements Embedder.
func (h *HashEmbedder) Name() string { return fmt.Sprintf("hash:%d", h.dims) }

// OllamaEmbedder calls a local Ollama server's embeddings endpoint.
type OllamaEmbedder struct {
	endpoint string
	model    string
	dims     int
	client   *http.Client
}

// NewOllamaEmbedder creates an embedder for endpoint (the server root, e.g.
// http://localhost:11434) and model.
func NewOllamaEmbedder(endpoint, model string, dims int) *OllamaEmbedder {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaEmbedder{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		dims:     dims,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed implements Embedder.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(data))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding")
	}
	if e.dims > 0 && len(result.Embedding) != e.dims {
		return nil, fmt.Errorf("ollama returned %d dimensions, expected %d", len(result.Embedding), e.dims)
	}

	return Normalize(result.Embedding), nil
}

// Dimensions implements Embedder. Zero means "whatever the model returns".
func (e *OllamaEmbedder) Dimensions() int { return e.dims }

// Name implements Embedder.
func (e *OllamaEmbedder) Name() string { return "ollama:" + e.model }
