package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/study-advisor/internal/knowledge"
)

var errKnowledgeDisabled = errors.New("knowledge base is disabled or could not be opened")

func newKnowledgeCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "knowledge",
		Aliases: []string{"kb"},
		Short:   "Search and extend the advising knowledge base",
	}
	cmd.AddCommand(newKnowledgeSearchCmd(o), newKnowledgeAddCmd(o), newKnowledgeStatsCmd(o))
	return cmd
}

func newKnowledgeSearchCmd(o *rootOptions) *cobra.Command {
	var (
		topK     int
		minScore float64
		mode     string
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base",
		Example: `  study-advisor knowledge search "quản lý thời gian"
  study-advisor kb search "lập trình" --mode bm25 --top-k 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			ctx := cmd.Context()

			a, err := o.openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(a)
			if a.Knowledge == nil {
				return errKnowledgeDisabled
			}

			var results []knowledge.Result
			switch mode {
			case "":
				results, err = a.Knowledge.Search(ctx, query, topK, minScore)
			case "bm25":
				results, err = a.Knowledge.SearchBM25(query, topK)
			case "hybrid":
				results, err = a.Knowledge.SearchHybrid(ctx, query, topK, knowledge.FusionConfig{
					SemanticWeight: a.Config.Knowledge.SemanticWeight,
					KeywordWeight:  a.Config.Knowledge.KeywordWeight,
				})
			case "semantic":
				results, err = a.Knowledge.SearchSemantic(ctx, query, topK)
			default:
				return fmt.Errorf("unknown mode %q (semantic, bm25, hybrid)", mode)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return printJSON(out, results)
			}
			if len(results) == 0 {
				fmt.Fprintf(out, "No knowledge found for %q\n", query)
				return nil
			}
			for n, r := range results {
				fmt.Fprintf(out, "%d. [%s] %.3f  %s\n", n+1, r.Metadata.Type, r.Score, r.ID)
				fmt.Fprintf(out, "   %s\n", r.Content)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Maximum results (default knowledge.top_k)")
	cmd.Flags().Float64Var(&minScore, "min-score", -1, "Minimum score (default knowledge.min_score)")
	cmd.Flags().StringVar(&mode, "mode", "", "semantic, bm25 or hybrid (default knowledge.mode)")
	cmd.Flags().BoolVarP(&jsonOut, "json", "j", false, "Output as JSON")
	return cmd
}

func newKnowledgeAddCmd(o *rootOptions) *cobra.Command {
	var meta knowledge.Metadata
	var keywords []string

	cmd := &cobra.Command{
		Use:   "add <content>",
		Short: "Add a document to the knowledge base",
		Example: `  study-advisor kb add "Sinh viên yếu toán nên ôn lại giải tích trước kỳ 3" \
    --type improvement_strategy --department "Khoa học máy tính"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := o.openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(a)
			if a.Knowledge == nil {
				return errKnowledgeDisabled
			}

			meta.Keywords = keywords
			doc, err := a.Knowledge.Upsert(ctx, knowledge.Document{
				Content:  strings.Join(args, " "),
				Metadata: meta,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%d documents)\n", doc.ID, a.Knowledge.Count())
			return nil
		},
	}

	cmd.Flags().StringVar(&meta.Type, "type", knowledge.TypeImprovementStrategy, "Document type")
	cmd.Flags().StringVar(&meta.Department, "department", "", "Department the advice applies to")
	cmd.Flags().StringVar(&meta.Skill, "skill", "", "Survey skill area")
	cmd.Flags().StringVar(&meta.Level, "level", "", "Performance level")
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "Comma-separated keywords")
	return cmd
}

func newKnowledgeStatsCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show document counts and coverage",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(a)
			if a.Knowledge == nil {
				return errKnowledgeDisabled
			}
			return printJSON(cmd.OutOrStdout(), a.Knowledge.Stats())
		},
	}
}
