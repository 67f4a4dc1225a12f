package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"style-shopper/internal/feed"
	"style-shopper/storage"
)

var (
	feedInput  string
	feedOutput string
)

func init() {
	feedCmd.Flags().StringVar(&feedInput, "input", "", "Recommendations JSON (default <DATA_DIR>/scraped_items/recommendations.json)")
	feedCmd.Flags().StringVar(&feedOutput, "output", "", "Output HTML file (default <DATA_DIR>/feed.html)")
	rootCmd.AddCommand(feedCmd)
}

var feedCmd = &cobra.Command{
	Use:   "feed [--input <json>] [--output <html>]",
	Short: "Renders the latest recommendations as an HTML page.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		input := feedInput
		if input == "" {
			input = storage.RecommendationsPath(a.config.DataDir)
		}
		output := feedOutput
		if output == "" {
			output = filepath.Join(a.config.DataDir, "feed.html")
		}

		recs, err := storage.LoadRecommendations(input)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("input file not found: %s (run `shopper match` first)", input)
		}
		if err != nil {
			return err
		}

		if err := feed.RenderFile(output, recs, time.Now()); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Generated feed with %d products\n", len(recs.Recommendations))
		fmt.Fprintf(out, "Saved to: %s\n", output)
		return nil
	},
}
