package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"style-shopper/vision"
)

var analyzeDir string

func init() {
	analyzeCmd.Flags().StringVar(&analyzeDir, "dir", "", "Directory of style reference images (default <DATA_DIR>/style_profiles)")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [--dir <images>]",
	Short: "Builds your style profile from reference images.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		dir := analyzeDir
		if dir == "" {
			dir = filepath.Join(a.config.DataDir, "style_profiles")
		}

		sources, err := vision.ImagesInDir(dir)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", dir, err)
		}
		if len(sources) == 0 {
			fmt.Fprintf(out, "No images found in %s/\n", dir)
			fmt.Fprintln(out, "Please add your style reference images (outfit photos, inspiration, etc.)")
			fmt.Fprintln(out, "Supported formats: JPG, PNG, WebP, GIF")
			return vision.ErrNoImages
		}

		fmt.Fprintf(out, "Found %d style reference images:\n", len(sources))
		for _, src := range sources {
			fmt.Fprintf(out, "  - %s\n", src.Name())
		}
		fmt.Fprintln(out, "\nAnalyzing your style...")

		p := a.pipeline(ctx)
		defer p.Close()
		profile, err := p.AnalyzeStyle(ctx, sources)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, "\n"+strings.Repeat("=", 60))
		fmt.Fprintln(out, "YOUR STYLE PROFILE")
		fmt.Fprintln(out, strings.Repeat("=", 60))
		fmt.Fprintf(out, "\n%s\n\n", profile.Summary)

		for _, field := range []struct {
			label  string
			values []string
		}{
			{"Colors", profile.ColorPalette},
			{"Styles", profile.PreferredStyles},
			{"Silhouettes", profile.Silhouettes},
			{"Patterns", profile.Patterns},
			{"Materials", profile.Materials},
			{"Aesthetic", profile.Aesthetics},
			{"Avoids", profile.Avoid},
		} {
			if len(field.values) > 0 {
				fmt.Fprintf(out, "%s: %s\n", field.label, strings.Join(field.values, ", "))
			}
		}
		return nil
	},
}
