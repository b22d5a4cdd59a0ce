package cli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanglvm/study-advisor/internal/learning"
	"github.com/khanglvm/study-advisor/internal/storage"
)

// newLearningCmd reports and prunes the recorded stage events and feedback.
func newLearningCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learning",
		Short: "Usage statistics and feedback history",
		Long: `Every stage run is recorded with its source (cache, template, generated,
shared, error), and every feedback score with its stage. The records live
next to the cache in advisor.db.`,
	}
	cmd.AddCommand(newLearningStatusCmd(o), newLearningClearCmd(o))
	return cmd
}

func (o *rootOptions) storage() (*storage.SQLiteStorage, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := o.logger(cfg)
	if err != nil {
		return nil, err
	}
	st := storage.NewStorage(cfg.CacheDBPath(), logger.Named("storage"))
	if err := st.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return st, nil
}

func newLearningStatusCmd(o *rootOptions) *cobra.Command {
	var since string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show how stages were answered",
		Example: `  study-advisor learning status
  study-advisor learning status --since 7d --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var from time.Time
			if since != "" {
				age, err := parseAge(since)
				if err != nil {
					return err
				}
				from = time.Now().Add(-age)
			}

			st, err := o.storage()
			if err != nil {
				return err
			}
			defer st.Close()

			sum, err := learning.Summarize(st, from)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, sum)
			}

			window := "all time"
			if since != "" {
				window = "last " + since
			}
			fmt.Fprintf(out, "Learning status (%s)\n", window)
			fmt.Fprintln(out, "====================")
			fmt.Fprintf(out, "Consultations:       %d\n", sum.Consultations)
			fmt.Fprintf(out, "Stage runs:          %d\n", sum.StageRuns)
			fmt.Fprintf(out, "  from cache:        %d (%.1f%%)\n", sum.CacheHits, sum.CacheHitRate)
			fmt.Fprintf(out, "  from templates:    %d\n", sum.TemplateResponses)
			fmt.Fprintf(out, "  generated:         %d\n", sum.Generated)
			fmt.Fprintf(out, "  knowledge-enhanced: %d\n", sum.KnowledgeEnhanced)
			fmt.Fprintf(out, "  errors:            %d\n", sum.Errors)
			fmt.Fprintf(out, "Feedback:            %d (avg %.2f)\n", sum.FeedbackCount, sum.AverageFeedback)
			return nil
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "Window, e.g. 24h or 7d (default all time)")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

func newLearningClearCmd(o *rootOptions) *cobra.Command {
	var olderThan string
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete recorded events and feedback",
		RunE: func(cmd *cobra.Command, args []string) error {
			retention := time.Duration(0)
			if olderThan != "" {
				age, err := parseAge(olderThan)
				if err != nil {
					return err
				}
				retention = age
			}

			out := cmd.OutOrStdout()
			if !yes {
				fmt.Fprint(out, "This will delete learning data. Continue? (y/N): ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if a := strings.TrimSpace(answer); a != "y" && a != "Y" {
					fmt.Fprintln(out, "Cancelled")
					return nil
				}
			}

			st, err := o.storage()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Cleanup(retention); err != nil {
				return err
			}
			fmt.Fprintln(out, "Learning data cleared")
			return nil
		},
	}
	cmd.Flags().StringVar(&olderThan, "older-than", "", "Only delete records older than this, e.g. 30d")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation")
	return cmd
}
