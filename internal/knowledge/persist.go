package knowledge

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	documentsFile = "documents.json"
	vectorsFile   = "vectors.bin"

	documentsFormatVersion = 1
	vectorsVersion         = 1
)

var vectorsMagic = [4]byte{'S', 'A', 'K', 'V'}

type documentsEnvelope struct {
	FormatVersion int        `json:"format_version"`
	Embedder      string     `json:"embedder"`
	Documents     []Document `json:"documents"`
	LastUpdated   time.Time  `json:"last_updated"`
}

type vectorsHeader struct {
	Magic   [4]byte
	Version uint32
	Dims    uint32
	Count   uint32
}

// load reads the persisted documents and vectors. A missing directory or
// documents file yields (nil, nil, nil). Vectors are returned as nil when they
// cannot be reused with the current embedder, which forces a re-embed.
func (i *Index) load() ([]Document, [][]float32, error) {
	if i.opts.Dir == "" {
		return nil, nil, nil
	}

	data, err := os.ReadFile(filepath.Join(i.opts.Dir, documentsFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read documents: %w", err)
	}

	var env documentsEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("failed to parse documents: %w", err)
	}
	if env.FormatVersion != documentsFormatVersion {
		return nil, nil, fmt.Errorf("unsupported documents format version %d", env.FormatVersion)
	}
	docs := env.Documents
	if docs == nil {
		docs = []Document{}
	}

	if env.Embedder != i.embedder.Name() {
		i.logger.Info("embedder changed, re-embedding knowledge base",
			zap.String("stored", env.Embedder), zap.String("current", i.embedder.Name()))
		return docs, nil, nil
	}

	vectors, err := readVectors(filepath.Join(i.opts.Dir, vectorsFile))
	if err != nil {
		i.logger.Warn("vectors unreadable, re-embedding knowledge base", zap.Error(err))
		return docs, nil, nil
	}
	if len(vectors) != len(docs) {
		i.logger.Warn("vector count mismatch, re-embedding knowledge base",
			zap.Int("documents", len(docs)), zap.Int("vectors", len(vectors)))
		return docs, nil, nil
	}
	if dims := i.embedder.Dimensions(); dims > 0 && len(vectors) > 0 && len(vectors[0]) != dims {
		return docs, nil, nil
	}

	return docs, vectors, nil
}

// persist rewrites documents.json and vectors.bin. Both files are written to
// temporaries first and renamed together.
func (i *Index) persist() error {
	if i.opts.Dir == "" {
		return nil
	}

	i.persistMu.Lock()
	defer i.persistMu.Unlock()

	i.mu.RLock()
	env := documentsEnvelope{
		FormatVersion: documentsFormatVersion,
		Embedder:      i.embedder.Name(),
		Documents:     append([]Document(nil), i.docs...),
		LastUpdated:   time.Now(),
	}
	vecData, err := encodeVectors(i.vectors)
	i.mu.RUnlock()
	if err != nil {
		return err
	}

	docData, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal documents: %w", err)
	}

	if err := os.MkdirAll(i.opts.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create knowledge directory: %w", err)
	}

	docPath := filepath.Join(i.opts.Dir, documentsFile)
	vecPath := filepath.Join(i.opts.Dir, vectorsFile)

	docTmp, err := writeTemp(docPath, docData)
	if err != nil {
		return err
	}
	vecTmp, err := writeTemp(vecPath, vecData)
	if err != nil {
		os.Remove(docTmp)
		return err
	}

	if err := os.Rename(vecTmp, vecPath); err != nil {
		os.Remove(docTmp)
		os.Remove(vecTmp)
		return fmt.Errorf("failed to replace vectors: %w", err)
	}
	if err := os.Rename(docTmp, docPath); err != nil {
		os.Remove(docTmp)
		return fmt.Errorf("failed to replace documents: %w", err)
	}
	return nil
}

func writeTemp(path string, data []byte) (string, error) {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return tmp, nil
}

func encodeVectors(vectors [][]float32) ([]byte, error) {
	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}

	var buf bytes.Buffer
	header := vectorsHeader{
		Magic:   vectorsMagic,
		Version: vectorsVersion,
		Dims:    uint32(dims),
		Count:   uint32(len(vectors)),
	}
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to encode vectors header: %w", err)
	}
	for n, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("vector %d has %d dimensions, expected %d", n, len(v), dims)
		}
		buf.Write(PackFloat32(v))
	}
	return buf.Bytes(), nil
}

func readVectors(path string) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vectors: %w", err)
	}

	r := bytes.NewReader(data)
	var header vectorsHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read vectors header: %w", err)
	}
	if header.Magic != vectorsMagic {
		return nil, fmt.Errorf("bad vectors magic %q", header.Magic[:])
	}
	if header.Version != vectorsVersion {
		return nil, fmt.Errorf("unsupported vectors version %d", header.Version)
	}

	rowBytes := int(header.Dims) * 4
	vectors := make([][]float32, header.Count)
	row := make([]byte, rowBytes)
	for n := range vectors {
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, fmt.Errorf("failed to read vector %d: %w", n, err)
		}
		vectors[n] = UnpackFloat32(row)
	}
	return vectors, nil
}
