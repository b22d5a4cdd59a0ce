package knowledge

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("expected [0.6 0.8], got %v", v)
	}

	zero := Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector changed: %v", zero)
	}
}

func TestDot(t *testing.T) {
	if got := dot([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("expected 0 for orthogonal vectors, got %f", got)
	}
	if got := dot([]float32{1, 2}, []float32{1, 2, 3}); got != 0 {
		t.Errorf("expected 0 for different lengths, got %f", got)
	}
	a := Normalize([]float32{1, 2, 3})
	if got := dot(a, a); math.Abs(got-1) > 1e-6 {
		t.Errorf("expected 1 for identical normalized vectors, got %f", got)
	}
}

func TestPackUnpackFloat32(t *testing.T) {
	in := []float32{0.5, -1.25, 3}
	out := UnpackFloat32(PackFloat32(in))
	if len(out) != len(in) {
		t.Fatalf("expected %d values, got %d", len(in), len(out))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("value %d: expected %f, got %f", i, in[i], out[i])
		}
	}

	if UnpackFloat32([]byte{1, 2, 3}) != nil {
		t.Error("expected nil for misaligned input")
	}
}

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	a, _ := e.Embed(context.Background(), "Kỹ năng tự học")
	b, _ := e.Embed(context.Background(), "kỹ năng TỰ HỌC")

	if len(a) != 64 {
		t.Fatalf("expected 64 dimensions, got %d", len(a))
	}
	if got := dot(a, b); math.Abs(got-1) > 1e-6 {
		t.Errorf("expected case-insensitive identical embeddings, similarity %f", got)
	}

	empty, _ := e.Embed(context.Background(), "")
	if dot(empty, empty) != 0 {
		t.Error("expected zero vector for empty text")
	}
}

func TestOllamaEmbedder(t *testing.T) {
	var gotPath string
	var gotReq ollamaEmbedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(`{"embedding":[3,4]}`))
	}))
	defer server.Close()

	e := NewOllamaEmbedder(server.URL+"/", "nomic-embed-text", 2)
	vec, err := e.Embed(context.Background(), "xin chào")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if gotPath != "/api/embeddings" {
		t.Errorf("expected /api/embeddings, got %s", gotPath)
	}
	if gotReq.Model != "nomic-embed-text" || gotReq.Prompt != "xin chào" {
		t.Errorf("unexpected request: %+v", gotReq)
	}
	if math.Abs(float64(vec[0])-0.6) > 1e-6 {
		t.Errorf("expected normalized vector, got %v", vec)
	}
	if e.Name() != "ollama:nomic-embed-text" {
		t.Errorf("unexpected name %s", e.Name())
	}
}

func TestOllamaEmbedderErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewOllamaEmbedder(server.URL, "missing", 0).Embed(context.Background(), "a")
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Errorf("expected status error, got %v", err)
	}

	dimServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embedding":[1,2,3]}`))
	}))
	defer dimServer.Close()

	_, err = NewOllamaEmbedder(dimServer.URL, "m", 2).Embed(context.Background(), "a")
	if err == nil {
		t.Error("expected dimension mismatch error")
	}
}
