package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/khanglvm/study-advisor/internal/app"
	"github.com/khanglvm/study-advisor/internal/profile"
	"github.com/khanglvm/study-advisor/internal/templates"
)

func newTemplatesCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect the canned stage-1 responses",
	}
	cmd.AddCommand(newTemplatesListCmd(o), newTemplatesMatchCmd(o))
	return cmd
}

func (o *rootOptions) matcher() (*templates.Matcher, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	ts, err := app.LoadTemplates(cfg.Templates.File)
	if err != nil {
		return nil, err
	}
	return templates.NewMatcher(ts, cfg.Templates.Threshold, nil), nil
}

func newTemplatesListCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List templates and their conditions",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := o.matcher()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCONFIDENCE\tCONDITIONS\tDESCRIPTION")
			for _, t := range m.Templates() {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", t.Name, t.Confidence, describeConditions(t.Conditions), t.Description)
			}
			return w.Flush()
		},
	}
}

func describeConditions(conds []templates.Condition) string {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		switch {
		case c.Contains != "":
			parts = append(parts, fmt.Sprintf("%s∋%s", c.Metric, c.Contains))
		case len(c.OneOf) > 0:
			parts = append(parts, fmt.Sprintf("%s∈{%s}", c.Metric, strings.Join(c.OneOf, ",")))
		case c.Min != nil && c.Max != nil:
			parts = append(parts, fmt.Sprintf("%g≤%s≤%g", *c.Min, c.Metric, *c.Max))
		case c.Min != nil:
			parts = append(parts, fmt.Sprintf("%s≥%g", c.Metric, *c.Min))
		case c.Max != nil:
			parts = append(parts, fmt.Sprintf("%s≤%g", c.Metric, *c.Max))
		default:
			parts = append(parts, c.Metric)
		}
	}
	return strings.Join(parts, " ")
}

func newTemplatesMatchCmd(o *rootOptions) *cobra.Command {
	var surveyPath, transcriptPath string
	var render bool

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Score every template against a student",
		Example: `  study-advisor templates match --survey khaosat.json --transcript diem.json
  study-advisor templates match -s khaosat.json --render`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile.Load(surveyPath, transcriptPath)
			if err != nil {
				return err
			}
			m, err := o.matcher()
			if err != nil {
				return err
			}

			metrics := templates.FromProfile(p)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Level: %s  skills %.1f  grades %.1f  consistency %.1f\n",
				templates.Classify(metrics), metrics.SkillsAvg, metrics.GradesAvg, metrics.GradeConsistency)

			for _, t := range m.Templates() {
				score := templates.Score(&t, metrics)
				mark := " "
				if score > m.Threshold() {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %-32s %5.1f\n", mark, t.Name, score)
			}

			if !render {
				return nil
			}
			resp, ok := m.Respond(metrics)
			if !ok {
				fmt.Fprintf(out, "\nNo template above %.0f; the stage would be generated.\n", m.Threshold())
				return nil
			}
			fmt.Fprintf(out, "\n--- %s (confidence %d) ---\n%s\n", resp.Template, resp.Confidence, resp.Text)
			if resp.Gap != nil {
				fmt.Fprintf(out, "Missing values: %s\n", strings.Join(resp.Gap.Missing, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&surveyPath, "survey", "s", "", "Survey export (JSON)")
	cmd.Flags().StringVarP(&transcriptPath, "transcript", "t", "", "Transcript export (JSON)")
	cmd.Flags().BoolVar(&render, "render", false, "Render the winning template")
	cmd.MarkFlagRequired("survey")
	return cmd
}
