package main

import (
	"github.com/spf13/cobra"

	"style-shopper/internal/types"
)

var (
	scrapeHTTPOnly  bool
	scrapeDebug     bool
	scrapeRetailers []string
)

func init() {
	scrapeCmd.Flags().BoolVar(&scrapeHTTPOnly, "http-only", false, "Use HTTP requests only (disable headless browser)")
	scrapeCmd.Flags().BoolVar(&scrapeDebug, "debug", false, "Save the fetched markup of each retailer under the data directory")
	scrapeCmd.Flags().StringSliceVar(&scrapeRetailers, "retailers", nil, "Retailers to scrape (default: all)")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--http-only] [--debug]",
	Short: "Scrapes new arrivals from every retailer and saves them.",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		return runScrape(cmd, a, p)
	},
}

func applyScrapeFlags(config *types.Config) {
	if scrapeHTTPOnly {
		config.UseHeadlessBrowser = false
	}
	if scrapeDebug {
		config.Debug = true
	}
}
