package prompts

import (
	"strings"

	"github.com/khanglvm/study-advisor/internal/llm"
)

const knowledgeHeader = "\n\n**KNOWLEDGE BASE CONTEXT:**"

// Augment appends retrieved knowledge snippets to the first message of req,
// which is the system prompt for stage requests. The original request is
// left untouched.
func Augment(req llm.ChatRequest, snippets []string) llm.ChatRequest {
	out := req.Clone()
	if len(snippets) == 0 || len(out.Messages) == 0 {
		return out
	}

	var b strings.Builder
	b.WriteString(out.Messages[0].Content)
	b.WriteString(knowledgeHeader)
	for _, s := range snippets {
		b.WriteString("\n📚 **Kiến thức chuyên môn**: ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	out.Messages[0].Content = b.String()
	return out
}
