package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	runScrapeOnly bool
	runMatchOnly  bool
)

func init() {
	runCmd.Flags().BoolVar(&runScrapeOnly, "scrape-only", false, "Only scrape products, don't match")
	runCmd.Flags().BoolVar(&runMatchOnly, "match-only", false, "Only match products (use the last scrape)")
	runCmd.Flags().BoolVar(&scrapeHTTPOnly, "http-only", false, "Use HTTP requests only (disable headless browser)")
	runCmd.Flags().BoolVar(&scrapeDebug, "debug", false, "Save the fetched markup of each retailer under the data directory")
	addMatchFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--scrape-only | --match-only] [--top N]",
	Short: "Scrapes new arrivals, then matches them against your style profile.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runScrapeOnly && runMatchOnly {
			return fmt.Errorf("cannot use both --scrape-only and --match-only")
		}

		ctx := cmd.Context()
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		applyScrapeFlags(a.config)

		if err := a.openStore(ctx); err != nil {
			return err
		}
		p := a.pipeline(ctx)
		defer p.Close()

		if !runMatchOnly {
			if err := runScrape(cmd, a, p); err != nil {
				return err
			}
		}
		if runScrapeOnly {
			fmt.Fprintln(cmd.OutOrStdout(), "Scrape complete. Run with --match-only to find matches.")
			return nil
		}
		return runMatch(cmd, a, p, a.matchOptions(), matchTop)
	},
}
