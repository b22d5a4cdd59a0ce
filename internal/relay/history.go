package relay

import (
	"sync"

	"github.com/khanglvm/study-advisor/internal/llm"
)

// DefaultMaxHistory is the default number of chat messages kept.
const DefaultMaxHistory = 10

// History is a bounded chat history. When it grows past its limit it keeps
// the first message, which carries the system context, and the most recent
// ones.
type History struct {
	mu   sync.Mutex
	max  int
	msgs []llm.Message
}

// NewHistory creates an empty history holding at most max messages.
// max <= 1 means DefaultMaxHistory.
func NewHistory(max int) *History {
	if max <= 1 {
		max = DefaultMaxHistory
	}
	return &History{max: max}
}

// Max returns the message limit.
func (h *History) Max() int { return h.max }

// Len returns the number of stored messages.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

// Messages returns a copy of the stored messages.
func (h *History) Messages() []llm.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]llm.Message(nil), h.msgs...)
}

// Append adds messages and trims.
func (h *History) Append(msgs ...llm.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msgs...)
	h.trimLocked()
}

// Replace swaps the whole history and trims.
func (h *History) Replace(msgs []llm.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append([]llm.Message(nil), msgs...)
	h.trimLocked()
}

// Clear removes every message.
func (h *History) Clear() {
	h.Replace(nil)
}

func (h *History) trimLocked() {
	if len(h.msgs) <= h.max {
		return
	}
	trimmed := make([]llm.Message, 0, h.max)
	trimmed = append(trimmed, h.msgs[0])
	trimmed = append(trimmed, h.msgs[len(h.msgs)-(h.max-1):]...)
	h.msgs = trimmed
}
