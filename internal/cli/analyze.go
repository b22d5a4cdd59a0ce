package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/study-advisor/internal/advisor"
	"github.com/khanglvm/study-advisor/internal/app"
	"github.com/khanglvm/study-advisor/internal/learning"
	"github.com/khanglvm/study-advisor/internal/profile"
	"github.com/khanglvm/study-advisor/internal/relay"
	"github.com/khanglvm/study-advisor/internal/session"
	"github.com/khanglvm/study-advisor/internal/stage"
)

type analyzeFlags struct {
	survey     string
	transcript string
	chat       bool
	preset     string
}

func newAnalyzeCmd(o *rootOptions) *cobra.Command {
	var f analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyse a student's survey and transcript",
		Long: `Run the three analysis stages for one student and print the advice as it
streams in. With --chat, stay in a follow-up conversation afterwards; type
/help inside the chat for session commands.`,
		Example: `  study-advisor analyze --survey khaosat.json --transcript diem.json
  study-advisor analyze -s khaosat.json -t diem.json --chat --preset career_guidance`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, o, f)
		},
	}

	cmd.Flags().StringVarP(&f.survey, "survey", "s", "", "Survey export (JSON)")
	cmd.Flags().StringVarP(&f.transcript, "transcript", "t", "", "Transcript export (JSON)")
	cmd.Flags().BoolVar(&f.chat, "chat", false, "Continue with an interactive follow-up chat")
	cmd.Flags().StringVar(&f.preset, "preset", "", "Consultation preset for the chat: "+strings.Join(session.PresetNames(), ", "))
	cmd.MarkFlagRequired("survey")
	cmd.MarkFlagRequired("transcript")

	return cmd
}

func runAnalyze(cmd *cobra.Command, o *rootOptions, f analyzeFlags) error {
	if f.preset != "" {
		if _, err := session.LookupPreset(f.preset); err != nil {
			return err
		}
	}

	p, err := profile.Load(f.survey, f.transcript)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := o.openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Student: %s (%s)\n", p.Personal.Name, p.Department())

	s := a.NewSession(p)
	if err := a.Advisor.Run(ctx, s, newPrinter(out)); err != nil {
		return fmt.Errorf("analysis stopped: %w", err)
	}
	fmt.Fprintf(out, "\nSession: %s\n", s.ID)

	if !f.chat {
		return nil
	}
	return chatLoop(ctx, a, s, cmd.InOrStdin(), out, f.preset)
}

// chatLoop reads questions and slash commands until EOF or /quit.
func chatLoop(ctx context.Context, a *app.App, s *advisor.Session, in io.Reader, out io.Writer, preset string) error {
	cmds := session.NewCommands(a.Saved, s, a.Config.Backend.Model, a.Config.Chat.MaxHistory)
	if preset != "" {
		if _, err := cmds.Execute("/template " + preset); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "\nAsk a follow-up question. /help lists commands, /quit exits.")
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case session.IsCommand(line):
			res, err := cmds.Execute(line)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}
			fmt.Fprintln(out, res.Message)
			continue
		}

		if _, err := a.Advisor.Chat(ctx, cmds.Session(), line, newPrinter(out)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "\nError: %v\n", err)
		}
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

// printer renders relay events for a terminal: stage headings, tokens as
// they arrive, and whole answers served from cache or templates.
type printer struct {
	w        io.Writer
	stage    string
	streamed bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) Emit(e relay.Event) error {
	if e.Stage != "" && e.Stage != p.stage {
		p.stage = e.Stage
		p.streamed = false
		fmt.Fprintf(p.w, "\n== %s ==\n", stageTitle(e.Stage))
	}

	var err error
	switch {
	case e.Error != "":
		_, err = fmt.Fprintf(p.w, "\n[error] %s\n", e.Error)
	case e.Token != "":
		p.streamed = true
		_, err = io.WriteString(p.w, e.Token)
	case e.Status == relay.StatusDone:
		if !p.streamed && e.FullResponse != "" {
			_, err = io.WriteString(p.w, e.FullResponse)
		}
		if e.Source != "" && e.Source != learning.SourceGenerated {
			fmt.Fprintf(p.w, "\n(%s)", e.Source)
		}
		p.streamed = false
		_, err = fmt.Fprintln(p.w)
	case e.Status == relay.StatusAllDone:
		_, err = fmt.Fprintln(p.w, "\nAnalysis complete.")
	case strings.HasPrefix(e.Status, "error_"):
		_, err = fmt.Fprintf(p.w, "\n[%s]\n", e.Status)
	}
	return err
}

func stageTitle(key string) string {
	id, err := stage.Parse(key)
	if err != nil {
		return key
	}
	switch id {
	case stage.Survey:
		return "Stage 1: skills survey"
	case stage.Transcript:
		return "Stage 2: grades"
	case stage.Synthesis:
		return "Stage 3: synthesis"
	}
	return key
}
