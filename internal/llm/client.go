package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultChatURL is the chat endpoint of a local Ollama server.
const DefaultChatURL = "http://localhost:11434/api/chat"

const (
	maxFrameSize   = 1 << 20
	maxErrorDetail = 4 << 10
)

// Client is an Ollama HTTP client.
type Client struct {
	chatURL    string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given /api/chat URL. Deadlines come
// from the request context, so the HTTP client itself has no timeout.
func NewClient(chatURL string) *Client {
	if chatURL == "" {
		chatURL = DefaultChatURL
	}
	return &Client{
		chatURL:    chatURL,
		baseURL:    BaseURL(chatURL),
		httpClient: &http.Client{},
	}
}

// BaseURL strips the /api/... path from an endpoint URL.
func BaseURL(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	if i := strings.Index(endpoint, "/api/"); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}

// ChatURL returns the chat endpoint.
func (c *Client) ChatURL() string { return c.chatURL }

type chatChunk struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

// Generate implements Generator.
func (c *Client) Generate(ctx context.Context, req ChatRequest) (Stream, error) {
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "chat", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, &TransportError{Op: "chat", StatusCode: resp.StatusCode, Err: readErrorDetail(resp.Body)}
	}

	return newFrameStream(resp.Body), nil
}

func readErrorDetail(r io.Reader) error {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorDetail))
	detail := strings.TrimSpace(string(data))
	if detail == "" {
		detail = "no details"
	}
	return errors.New(detail)
}

type frameStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func newFrameStream(body io.ReadCloser) *frameStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	return &frameStream{body: body, scanner: scanner}
}

// NewFrameStream wraps an NDJSON frame source.
func NewFrameStream(body io.ReadCloser) Stream {
	return newFrameStream(body)
}

func (s *frameStream) Next() (Frame, error) {
	if s.done {
		return Frame{}, io.EOF
	}

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return Frame{}, &MalformedFrameError{Line: string(line), Err: err}
		}
		if chunk.Error != "" {
			s.done = true
			return Frame{}, &TransportError{Op: "stream", Err: errors.New(chunk.Error)}
		}
		if chunk.Done {
			s.done = true
		}
		return Frame{Token: chunk.Message.Content, Done: chunk.Done}, nil
	}

	s.done = true
	if err := s.scanner.Err(); err != nil {
		return Frame{}, &TransportError{Op: "stream", Err: err}
	}
	return Frame{}, &TransportError{Op: "stream", Err: ErrIncompleteStream}
}

func (s *frameStream) Close() error {
	return s.body.Close()
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Models lists the models installed on the backend.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "tags", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "tags", StatusCode: resp.StatusCode, Err: readErrorDetail(resp.Body)}
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
