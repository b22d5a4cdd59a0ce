package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanglvm/study-advisor/internal/cache"
	"github.com/khanglvm/study-advisor/internal/fingerprint"
	"github.com/khanglvm/study-advisor/internal/profile"
)

var errCacheDisabled = errors.New("cache is disabled (cache.enabled: false)")

func newCacheCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the response cache",
	}
	cmd.AddCommand(newCacheStatsCmd(o), newCacheSweepCmd(o), newCacheSimilarCmd(o))
	return cmd
}

func newCacheStatsCmd(o *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show hit rate and entry counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(a)
			if a.Cache == nil {
				return errCacheDisabled
			}

			st, err := a.Cache.Stats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, st)
			}
			fmt.Fprintf(out, "Entries:   %d\n", st.Entries)
			fmt.Fprintf(out, "Patterns:  %d\n", st.Patterns)
			fmt.Fprintf(out, "Hits:      %d\n", st.Hits)
			fmt.Fprintf(out, "Misses:    %d\n", st.Misses)
			fmt.Fprintf(out, "Hit rate:  %.1f%%\n", st.HitRate)
			fmt.Fprintf(out, "Strategy:  %s\n", st.Strategy)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

func newCacheSweepCmd(o *rootOptions) *cobra.Command {
	var olderThan string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove entries past the cleanup TTL",
		Example: `  study-advisor cache sweep
  study-advisor cache sweep --older-than 1h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(a)
			if a.Cache == nil {
				return errCacheDisabled
			}

			maxAge := a.Config.Cache.CleanupTTL
			if olderThan != "" {
				if maxAge, err = parseAge(olderThan); err != nil {
					return err
				}
				if maxAge <= 0 {
					return fmt.Errorf("--older-than must be positive")
				}
			}
			n, err := a.Cache.Sweep(maxAge)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries older than %s\n", n, maxAge)
			return nil
		},
	}
	cmd.Flags().StringVar(&olderThan, "older-than", "", "Age cutoff, e.g. 36h or 7d (default cache.cleanup_ttl)")
	return cmd
}

func newCacheSimilarCmd(o *rootOptions) *cobra.Command {
	var surveyPath, transcriptPath, strategy string
	var threshold float64

	cmd := &cobra.Command{
		Use:   "similar [signature]",
		Short: "List cached signatures close to a profile",
		Long: `Score stored signatures against a signature given as argument or computed
from a survey export. Matches are reported only; they are never served.`,
		Example: `  study-advisor cache similar 3f2a9c1e...
  study-advisor cache similar --survey khaosat.json --threshold 0.6`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sig fingerprint.Signature
			switch {
			case len(args) == 1:
				sig = fingerprint.Signature(args[0])
			case surveyPath != "":
				p, err := profile.Load(surveyPath, transcriptPath)
				if err != nil {
					return err
				}
				sig = fingerprint.Of(p)
				if p.HasTranscript() {
					sig = fingerprint.WithTranscript(p)
				}
			default:
				return errors.New("a signature or --survey is required")
			}

			if strategy != "" {
				if _, ok := cache.StrategyByName(strategy); !ok {
					return fmt.Errorf("unknown strategy %q", strategy)
				}
			}

			a, err := o.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(a)
			if a.Cache == nil {
				return errCacheDisabled
			}

			store := a.Cache
			if strategy != "" {
				s, _ := cache.StrategyByName(strategy)
				store = cache.New(a.Storage, cache.Options{
					FreshnessTTL:        a.Config.Cache.FreshnessTTL,
					CleanupTTL:          a.Config.Cache.CleanupTTL,
					SimilarityThreshold: a.Config.Cache.SimilarityThreshold,
					Strategy:            s,
				}, a.Logger.Named("cache"))
			}

			neighbors, err := store.SimilarityScan(sig, threshold)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Signature: %s\n", sig)
			if len(neighbors) == 0 {
				fmt.Fprintln(out, "No similar profiles cached.")
				return nil
			}
			for _, n := range neighbors {
				fmt.Fprintf(out, "  %s  %.2f\n", n.Signature, n.Score)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&surveyPath, "survey", "s", "", "Survey export to fingerprint")
	cmd.Flags().StringVarP(&transcriptPath, "transcript", "t", "", "Transcript export to fingerprint")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum similarity (default cache.similarity_threshold)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "charset_jaccard or bucket_distance")
	return cmd
}
