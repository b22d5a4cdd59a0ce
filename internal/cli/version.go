package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanglvm/study-advisor/internal/version"
)

// NewVersionCmd creates the 'version' command.
func NewVersionCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the current version, commit hash, and build date.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, version.Current())
			}
			v, c, d := version.GetVersionComponents()
			fmt.Fprintf(out, "Version:  %s\n", v)
			fmt.Fprintf(out, "Commit:   %s\n", c)
			fmt.Fprintf(out, "Built:    %s\n", d)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}
