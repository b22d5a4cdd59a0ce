// Package llmtest provides a scripted llm.Generator for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/khanglvm/study-advisor/internal/llm"
)

// Generator streams a canned reply chosen by the request temperature, one
// word per frame.
type Generator struct {
	// Replies maps a sampling temperature to the reply text.
	Replies map[float64]string
	// Fail maps a temperature to the error Generate returns.
	Fail map[float64]error

	mu       sync.Mutex
	requests []llm.ChatRequest
}

// New returns a Generator with a distinct reply for each stage and for chat.
func New() *Generator {
	return &Generator{
		Replies: map[float64]string{
			0.3: "survey report",
			0.1: "grades report",
			0.5: "synthesis report",
			0.7: "chat answer",
		},
		Fail: map[float64]error{},
	}
}

// Generate implements llm.Generator.
func (g *Generator) Generate(_ context.Context, req llm.ChatRequest) (llm.Stream, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req.Clone())
	err := g.Fail[req.Options.Temperature]
	reply := g.Replies[req.Options.Temperature]
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, word := range strings.SplitAfter(reply, " ") {
		frame, _ := json.Marshal(map[string]any{"message": map[string]string{"content": word}})
		lines = append(lines, string(frame))
	}
	lines = append(lines, `{"message":{"content":""},"done":true}`)
	return llm.NewFrameStream(io.NopCloser(strings.NewReader(strings.Join(lines, "\n")))), nil
}

// Calls returns the number of Generate calls.
func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// Requests returns copies of the received requests.
func (g *Generator) Requests() []llm.ChatRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]llm.ChatRequest(nil), g.requests...)
}
