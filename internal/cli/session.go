package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/khanglvm/study-advisor/internal/session"
)

func newSessionCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage saved chat sessions",
		Long: `Saved sessions are written by /save inside 'analyze --chat' and live in
sessions.dir as <name>.json.`,
	}
	cmd.AddCommand(
		newSessionListCmd(o),
		newSessionShowCmd(o),
		newSessionExportCmd(o),
		newSessionDeleteCmd(o),
	)
	return cmd
}

func (o *rootOptions) sessions() (*session.Manager, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := o.logger(cfg)
	if err != nil {
		return nil, err
	}
	return session.NewManager(cfg.Sessions.Dir, logger.Named("sessions"))
}

func newSessionListCmd(o *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := o.sessions()
			if err != nil {
				return err
			}
			infos, err := m.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, infos)
			}
			if len(infos) == 0 {
				fmt.Fprintln(out, "No saved sessions.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tMODEL\tSAVED")
			for _, info := range infos {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.Name, info.Type, info.Model, info.SavedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

func newSessionShowCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved session as Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := o.sessions()
			if err != nil {
				return err
			}
			rec, err := m.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), session.Markdown(rec))
			return nil
		},
	}
}

func newSessionExportCmd(o *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Export a saved session to JSON or Markdown",
		Example: `  study-advisor session export tuvan-01 --format markdown`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := session.ParseFormat(format)
			if err != nil {
				return err
			}
			m, err := o.sessions()
			if err != nil {
				return err
			}
			path, err := m.ExportSaved(args[0], f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json or markdown")
	return cmd
}

func newSessionDeleteCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved session",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := o.sessions()
			if err != nil {
				return err
			}
			if err := m.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
			return nil
		},
	}
}
