package session

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/khanglvm/study-advisor/internal/llm"
	"github.com/khanglvm/study-advisor/internal/stage"
)

// Format is an export format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

const exportSuffix = "_export"

// ParseFormat resolves "json", "markdown" or "md". Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown export format %q (use json or markdown)", s)
	}
}

// Export writes rec next to the saved sessions as <name>_export.json or
// <name>_export.md and returns the path.
func (m *Manager) Export(rec Record, format Format) (string, error) {
	if err := checkName(rec.Name); err != nil {
		return "", err
	}

	var (
		data []byte
		ext  string
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal session: %w", err)
		}
		ext = ".json"
	case FormatMarkdown:
		data = []byte(Markdown(rec))
		ext = ".md"
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	path := filepath.Join(m.dir, rec.Name+exportSuffix+ext)
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// ExportSaved loads the named session and exports it.
func (m *Manager) ExportSaved(name string, format Format) (string, error) {
	rec, err := m.Load(name)
	if err != nil {
		return "", err
	}
	return m.Export(rec, format)
}

// Markdown renders rec as a readable report.
func Markdown(rec Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Session: %s\n\n", rec.Name)
	fmt.Fprintf(&b, "**Timestamp:** %s\n", rec.SavedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "**Model:** %s\n", orUnknown(rec.Model))
	fmt.Fprintf(&b, "**Type:** %s\n", orUnknown(rec.Type))
	if p := rec.Advisor.Profile; p != nil {
		if p.Personal.Name != "" {
			fmt.Fprintf(&b, "**Student:** %s\n", p.Personal.Name)
		}
		fmt.Fprintf(&b, "**Department:** %s\n", p.Department())
	}
	b.WriteString("\n")

	if len(rec.Advisor.Results) > 0 {
		b.WriteString("## Analysis\n\n")
		for _, r := range rec.Advisor.Results {
			fmt.Fprintf(&b, "### Stage %d (%s)\n\n", r.Stage.Number(), r.Source)
			b.WriteString(strings.TrimSpace(r.Text))
			b.WriteString("\n\n")
		}
	}

	if turns := conversation(rec); len(turns) > 0 {
		b.WriteString("## Conversation History\n\n")
		for _, m := range turns {
			label := "User"
			if m.Role == llm.RoleAssistant {
				label = "Assistant"
			}
			fmt.Fprintf(&b, "**%s:** %s\n\n", label, strings.TrimSpace(m.Content))
			if m.Role == llm.RoleAssistant {
				b.WriteString("---\n\n")
			}
		}
	}
	return b.String()
}

// conversation drops system prompts and the stage 3 prompt pair, which is
// already listed under Analysis, so only the follow-up chat remains.
func conversation(rec Record) []llm.Message {
	history := rec.Advisor.History
	var report string
	for _, r := range rec.Advisor.Results {
		if r.Stage == stage.Synthesis {
			report = r.Text
		}
	}

	var out []llm.Message
	for i := 0; i < len(history); i++ {
		m := history[i]
		if m.Role == llm.RoleSystem {
			continue
		}
		if m.Role == llm.RoleUser && report != "" && i+1 < len(history) &&
			history[i+1].Role == llm.RoleAssistant && history[i+1].Content == report {
			i++
			continue
		}
		out = append(out, m)
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
