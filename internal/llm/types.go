/*
Package llm talks to an Ollama-compatible text-generation backend.

Chat requests are streamed: the backend answers with newline-delimited JSON
frames, each carrying a token, and a final frame marked done. Generate returns
a pull-based Stream over those frames so callers consume them in order.
*/
package llm

import "context"

// Roles used in chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options are the sampling options sent with a request.
type Options struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	TopK        int     `json:"top_k,omitempty"`
}

// ChatRequest is the body of a /api/chat call.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  Options   `json:"options"`
}

// Clone returns a copy whose message slice can be modified independently.
func (r ChatRequest) Clone() ChatRequest {
	r.Messages = append([]Message(nil), r.Messages...)
	return r
}

// Frame is one decoded stream frame.
type Frame struct {
	Token string
	Done  bool
}

// Stream yields frames in backend order. Next returns io.EOF after the done
// frame. A *MalformedFrameError from Next is recoverable; any other error
// ends the stream.
type Stream interface {
	Next() (Frame, error)
	Close() error
}

// Generator starts a streamed generation.
type Generator interface {
	Generate(ctx context.Context, req ChatRequest) (Stream, error)
}
