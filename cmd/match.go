package main

import (
	"github.com/spf13/cobra"

	"style-shopper/vision"
)

var (
	matchLimit    int
	matchMinScore int
	matchAll      bool
	matchWorkers  int
	matchTop      int
)

func init() {
	addMatchFlags(matchCmd)
	rootCmd.AddCommand(matchCmd)
}

// addMatchFlags registers the flags shared by match and run; zero means "from config"
func addMatchFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&matchLimit, "limit", 0, "Max products to analyze (default MATCH_LIMIT)")
	cmd.Flags().IntVar(&matchMinScore, "min-score", -1, "Minimum match score to keep, 0-10 (default MIN_SCORE)")
	cmd.Flags().BoolVar(&matchAll, "all", false, "Analyze every product, ignoring --limit")
	cmd.Flags().IntVar(&matchWorkers, "workers", 0, "Concurrent model calls (default MATCH_WORKERS)")
	cmd.Flags().IntVar(&matchTop, "top", 10, "Number of top matches to display")
}

func (a *app) matchOptions() vision.MatchOptions {
	opts := vision.MatchOptions{
		Limit:      a.config.MatchLimit,
		MinScore:   a.config.MinScore,
		MaxWorkers: a.config.MatchWorkers,
	}
	if matchLimit > 0 {
		opts.Limit = matchLimit
	}
	if matchAll {
		opts.Limit = 0
	}
	if matchMinScore >= 0 {
		opts.MinScore = matchMinScore
	}
	if matchWorkers > 0 {
		opts.MaxWorkers = matchWorkers
	}
	return opts
}

var matchCmd = &cobra.Command{
	Use:   "match [--limit N] [--min-score N] [--all] [--workers N]",
	Short: "Scores the last scraped products against your style profile.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.openStore(ctx); err != nil {
			return err
		}
		p := a.pipeline(ctx)
		defer p.Close()

		return runMatch(cmd, a, p, a.matchOptions(), matchTop)
	},
}
