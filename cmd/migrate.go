package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"style-shopper/storage"
)

var migrateInput string

func init() {
	migrateCmd.Flags().StringVar(&migrateInput, "input", "", "Product batch JSON (default <DATA_DIR>/scraped_items/latest_arrivals.json)")
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate [--input <json>]",
	Short: "Copies a scraped product batch into the configured database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if a.config.DatabaseURL == "" && a.config.SQLitePath == "" {
			return errors.New("no database configured: set DATABASE_URL or SQLITE_PATH")
		}

		input := migrateInput
		if input == "" {
			input = storage.ProductsPath(a.config.DataDir)
		}
		batch, err := storage.LoadProductBatch(input)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("file not found: %s", input)
		}
		if err != nil {
			return err
		}
		if len(batch.Products) == 0 {
			return fmt.Errorf("no products found in %s", input)
		}
		fmt.Fprintf(out, "Found %d products in %s\n", len(batch.Products), input)

		fmt.Fprintln(out, "Initializing database...")
		if err := a.openStore(ctx); err != nil {
			return err
		}

		fmt.Fprintln(out, "Saving products...")
		saved, err := a.store.SaveProducts(ctx, batch.Products, batch.ScrapedAt)
		if err != nil {
			return fmt.Errorf("failed to save products: %w", err)
		}
		fmt.Fprintf(out, "Done: %d products saved to database.\n", saved)
		return nil
	},
}
