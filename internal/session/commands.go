package session

import (
	"fmt"
	"strings"

	"github.com/khanglvm/study-advisor/internal/advisor"
)

// Help lists the chat slash commands.
const Help = `/save <name>              save the current session
/load <name>              resume a saved session
/list                     list saved sessions
/delete <name>            delete a saved session
/export <name|current> [json|markdown]
/template <preset>        apply a consultation preset
/clear                    clear the chat history
/help                     show this help`

// Result is the outcome of a slash command.
type Result struct {
	Message  string
	Sessions []Info
	Path     string
}

// Commands runs chat slash commands against the current advisor session.
type Commands struct {
	manager    *Manager
	model      string
	maxHistory int
	current    *advisor.Session
	preset     *Preset
}

// NewCommands binds the command set to s.
func NewCommands(m *Manager, s *advisor.Session, model string, maxHistory int) *Commands {
	return &Commands{manager: m, current: s, model: model, maxHistory: maxHistory}
}

// IsCommand reports whether line is a slash command.
func IsCommand(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "/")
}

// Session returns the current session, which /load replaces.
func (c *Commands) Session() *advisor.Session {
	return c.current
}

// Record captures the current session under name.
func (c *Commands) Record(name string) Record {
	rec := Record{
		Name:    name,
		Type:    TypeGeneral,
		Model:   c.model,
		Advisor: c.current.Snapshot(),
	}
	if c.preset != nil {
		p := *c.preset
		rec.Type = p.Name
		rec.Preset = &p
	}
	return rec
}

// Execute runs one slash command.
func (c *Commands) Execute(line string) (Result, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 || !strings.HasPrefix(parts[0], "/") {
		return Result{}, fmt.Errorf("invalid command format: %q", line)
	}
	cmd := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	args := parts[1:]

	switch {
	case cmd == "save" && len(args) >= 1:
		path, err := c.manager.Save(c.Record(args[0]))
		if err != nil {
			return Result{}, err
		}
		return Result{Message: fmt.Sprintf("Session %s saved", args[0]), Path: path}, nil

	case cmd == "load" && len(args) >= 1:
		rec, err := c.manager.Load(args[0])
		if err != nil {
			return Result{}, err
		}
		s, err := advisor.Restore(rec.Advisor, c.maxHistory)
		if err != nil {
			return Result{}, fmt.Errorf("failed to restore session %s: %w", args[0], err)
		}
		c.current = s
		c.preset = rec.Preset
		if rec.Model != "" {
			c.model = rec.Model
		}
		return Result{Message: fmt.Sprintf("Session %s loaded (%s, %s)", args[0], rec.Type, rec.SavedAt.Format("2006-01-02 15:04"))}, nil

	case cmd == "list":
		infos, err := c.manager.List()
		if err != nil {
			return Result{}, err
		}
		msg := "No saved sessions"
		if len(infos) > 0 {
			var b strings.Builder
			for _, info := range infos {
				fmt.Fprintf(&b, "- %s (%s) - %s\n", info.Name, info.Type, info.SavedAt.Format("2006-01-02 15:04"))
			}
			msg = strings.TrimSuffix(b.String(), "\n")
		}
		return Result{Message: msg, Sessions: infos}, nil

	case cmd == "delete" && len(args) >= 1:
		if err := c.manager.Delete(args[0]); err != nil {
			return Result{}, err
		}
		return Result{Message: fmt.Sprintf("Session %s deleted", args[0])}, nil

	case cmd == "export" && len(args) >= 1:
		format := FormatJSON
		if len(args) >= 2 {
			f, err := ParseFormat(args[1])
			if err != nil {
				return Result{}, err
			}
			format = f
		}
		var (
			path string
			err  error
		)
		if args[0] == "current" {
			path, err = c.manager.Export(c.Record("current"), format)
		} else {
			path, err = c.manager.ExportSaved(args[0], format)
		}
		if err != nil {
			return Result{}, err
		}
		return Result{Message: "Exported to " + path, Path: path}, nil

	case cmd == "template" && len(args) >= 1:
		p, err := LookupPreset(args[0])
		if err != nil {
			return Result{}, err
		}
		p.Apply(c.current)
		c.preset = &p
		return Result{Message: fmt.Sprintf("Template %s loaded", p.Name)}, nil

	case cmd == "clear":
		c.current.History().Clear()
		c.preset = nil
		return Result{Message: "Chat history cleared"}, nil

	case cmd == "help":
		return Result{Message: Help}, nil
	}
	return Result{}, fmt.Errorf("unknown command or missing parameters: %s", strings.TrimSpace(line))
}
