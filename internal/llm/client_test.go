package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ndjsonServer(t *testing.T, lines ...string) (*httptest.Server, *ChatRequest) {
	t.Helper()
	var got ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, line := range lines {
			io.WriteString(w, line+"\n")
		}
	}))
	t.Cleanup(server.Close)
	return server, &got
}

func drain(t *testing.T, s Stream) (string, []error) {
	t.Helper()
	var text strings.Builder
	var errs []error
	for {
		frame, err := s.Next()
		if err == io.EOF {
			return text.String(), errs
		}
		if err != nil {
			errs = append(errs, err)
			if !IsMalformedFrame(err) {
				return text.String(), errs
			}
			continue
		}
		text.WriteString(frame.Token)
	}
}

func TestGenerateStreamsTokens(t *testing.T) {
	server, got := ndjsonServer(t,
		`{"message":{"role":"assistant","content":"Xin "},"done":false}`,
		``,
		`{"message":{"role":"assistant","content":"chào"},"done":false}`,
		`{"message":{"role":"assistant","content":""},"done":true}`,
		`{"message":{"role":"assistant","content":"ignored"},"done":false}`,
	)

	client := NewClient(server.URL + "/api/chat")
	stream, err := client.Generate(context.Background(), ChatRequest{
		Model:    "gemma3:12b",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
		Options:  Options{Temperature: 0.3, NumCtx: 3072},
	})
	require.NoError(t, err)
	defer stream.Close()

	text, errs := drain(t, stream)
	assert.Empty(t, errs)
	assert.Equal(t, "Xin chào", text)
	assert.True(t, got.Stream)
	assert.Equal(t, 3072, got.Options.NumCtx)
}

func TestMalformedFrameIsRecoverable(t *testing.T) {
	server, _ := ndjsonServer(t,
		`{"message":{"content":"a"}}`,
		`not json`,
		`{"message":{"content":"b"},"done":true}`,
	)

	stream, err := NewClient(server.URL+"/api/chat").Generate(context.Background(), ChatRequest{})
	require.NoError(t, err)
	defer stream.Close()

	text, errs := drain(t, stream)
	assert.Equal(t, "ab", text)
	require.Len(t, errs, 1)
	var mfe *MalformedFrameError
	require.True(t, errors.As(errs[0], &mfe))
	assert.Equal(t, "not json", mfe.Line)
}

func TestMalformedFrameErrorKeepsRunesWhole(t *testing.T) {
	line := "a" + strings.Repeat("ệ", 60)
	msg := (&MalformedFrameError{Line: line, Err: errors.New("bad")}).Error()

	assert.True(t, utf8.ValidString(msg))
	assert.NotContains(t, msg, `\x`)
	assert.Contains(t, msg, `ệ..."`)
	assert.Less(t, len(msg), len(line))
}

func TestStreamWithoutDoneIsTransportError(t *testing.T) {
	server, _ := ndjsonServer(t, `{"message":{"content":"partial"}}`)

	stream, err := NewClient(server.URL+"/api/chat").Generate(context.Background(), ChatRequest{})
	require.NoError(t, err)
	defer stream.Close()

	_, errs := drain(t, stream)
	require.Len(t, errs, 1)
	var te *TransportError
	require.True(t, errors.As(errs[0], &te))
	assert.ErrorIs(t, errs[0], ErrIncompleteStream)
}

func TestStreamErrorFrame(t *testing.T) {
	server, _ := ndjsonServer(t, `{"error":"model runner crashed"}`)

	stream, err := NewClient(server.URL+"/api/chat").Generate(context.Background(), ChatRequest{})
	require.NoError(t, err)
	defer stream.Close()

	_, errs := drain(t, stream)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "model runner crashed")
}

func TestGenerateHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model 'x' not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewClient(server.URL+"/api/chat").Generate(context.Background(), ChatRequest{Model: "x"})
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "not found")
}

func TestGenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(server.URL+"/api/chat").Generate(ctx, ChatRequest{})
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:11434", BaseURL("http://localhost:11434/api/chat"))
	assert.Equal(t, "http://host:1", BaseURL("http://host:1/"))
}

func TestModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		io.WriteString(w, `{"models":[{"name":"gemma3:12b"},{"name":"nomic-embed-text"}]}`)
	}))
	defer server.Close()

	models, err := NewClient(server.URL + "/api/chat").Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gemma3:12b", "nomic-embed-text"}, models)
}

func TestBuildModelfile(t *testing.T) {
	mf := BuildModelfile(ModelSpec{
		Base:       "gemma3:12b",
		System:     "Bạn là cố vấn.",
		Parameters: []Parameter{{Key: "temperature", Value: "0.5"}, {Key: "num_ctx", Value: "4096"}},
	})

	assert.Equal(t, strings.Join([]string{
		"FROM gemma3:12b",
		`SYSTEM """Bạn là cố vấn."""`,
		"PARAMETER temperature 0.5",
		"PARAMETER num_ctx 4096",
		"PARAMETER top_p 0.9",
		"PARAMETER top_k 40",
		"PARAMETER repeat_penalty 1.1",
		"",
	}, "\n"), mf)

	assert.True(t, strings.HasPrefix(BuildModelfile(ModelSpec{}), "FROM "+DefaultBaseModel+"\n"))
	assert.Equal(t, []string{"career_advisor", "education_consultant", "skills_analyzer"}, PresetNames())
}

func TestCreateModel(t *testing.T) {
	var got createRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/create", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"status":"success"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL + "/api/chat")
	require.NoError(t, client.CreateModel(context.Background(), "advisor-v1", "FROM gemma3"))
	assert.Equal(t, "advisor-v1", got.Name)
	assert.Equal(t, "FROM gemma3", got.Modelfile)
	assert.False(t, got.Stream)

	assert.Error(t, client.CreateModel(context.Background(), " ", "FROM x"))
}

func TestWriteModelfile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	path, err := WriteModelfile(dir, "advisor-v1", "FROM gemma3\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "advisor-v1.Modelfile"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "FROM gemma3\n", string(data))
}
