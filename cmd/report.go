package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"style-shopper/internal/pipeline"
	"style-shopper/internal/types"
	"style-shopper/storage"
	"style-shopper/vision"
)

func runScrape(cmd *cobra.Command, a *app, p *pipeline.Pipeline) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Scraping new arrivals...")

	report, err := p.Scrape(cmd.Context(), scrapeRetailers)
	if report != nil {
		for _, store := range report.Stores {
			if store.Error != "" {
				fmt.Fprintf(out, "  - %s... failed: %s\n", store.StoreName, store.Error)
				continue
			}
			fmt.Fprintf(out, "  - %s... %d products\n", store.StoreName, len(store.Products))
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTotal: %d products scraped\n", len(report.Products))
	fmt.Fprintf(out, "Saved to: %s\n", storage.ProductsPath(a.config.DataDir))
	return nil
}

func runMatch(cmd *cobra.Command, a *app, p *pipeline.Pipeline, opts vision.MatchOptions, top int) error {
	out := cmd.OutOrStdout()

	profile, err := p.Profile()
	if errors.Is(err, pipeline.ErrNoProfile) {
		printProfileNeeded(out, a.config.DataDir)
		return err
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintln(out, "FINDING YOUR PERFECT MATCHES")
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "\nYour style: %s\n\n", profile.Summary)

	recs, err := p.FindMatches(cmd.Context(), opts)
	if errors.Is(err, pipeline.ErrNoProducts) {
		fmt.Fprintln(out, "No scraped products. Run `shopper scrape` first.")
		return err
	}
	if err != nil {
		return err
	}

	printMatches(out, recs.Recommendations, top)
	fmt.Fprintf(out, "\n\nFull results saved to: %s\n", storage.RecommendationsPath(a.config.DataDir))
	return nil
}

func printProfileNeeded(out io.Writer, dataDir string) {
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintln(out, "STYLE PROFILE NEEDED")
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintln(out, "\nTo find products that match your style, add reference images:")
	fmt.Fprintln(out, "  1. Add outfit photos or inspiration images to:")
	fmt.Fprintf(out, "     %s/style_profiles/\n", dataDir)
	fmt.Fprintln(out, "  2. Run: shopper analyze")
	fmt.Fprintln(out, "  3. Then run this command again")
}

func printMatches(out io.Writer, results []types.MatchResult, top int) {
	shown := len(results)
	if top > 0 && top < shown {
		shown = top
	}

	fmt.Fprintln(out, "\n"+strings.Repeat("=", 60))
	fmt.Fprintf(out, "TOP %d MATCHES FOR YOU\n", shown)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	if len(results) == 0 {
		fmt.Fprintln(out, "\nNo strong matches found. Try:")
		fmt.Fprintln(out, "  - Lowering --min-score")
		fmt.Fprintln(out, "  - Adding more style reference images")
		fmt.Fprintln(out, "  - Increasing --limit to analyze more products")
		return
	}

	for i, r := range results[:shown] {
		p := r.Product
		fmt.Fprintf(out, "\n%d. %s\n", i+1, p.Name)
		fmt.Fprintf(out, "   %s%s (%d/10)\n", strings.Repeat("★", r.Score), strings.Repeat("☆", 10-r.Score), r.Score)
		fmt.Fprintf(out, "   Price: %s | %s\n", p.Price, p.Retailer)
		fmt.Fprintf(out, "   %s\n", r.Reasoning)
		if r.StyleNotes != "" {
			fmt.Fprintf(out, "   Style note: %s\n", r.StyleNotes)
		}
		fmt.Fprintf(out, "   %s\n", p.URL)
	}
}
