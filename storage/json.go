package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"style-shopper/internal/types"
)

// ErrNotFound is returned when a persisted artifact does not exist yet
var ErrNotFound = errors.New("not found")

// ProductsPath is where the latest scrape batch is written
func ProductsPath(dataDir string) string {
	return filepath.Join(dataDir, "scraped_items", "latest_arrivals.json")
}

// RecommendationsPath is where the latest ranked matches are written
func RecommendationsPath(dataDir string) string {
	return filepath.Join(dataDir, "scraped_items", "recommendations.json")
}

// ProfilePath is where the current style profile is written
func ProfilePath(dataDir string) string {
	return filepath.Join(dataDir, "style_profiles", "profile.json")
}

// SaveProductBatch writes a scrape batch as indented JSON
func SaveProductBatch(path string, batch *types.ProductBatch) error {
	return writeJSON(path, batch)
}

// LoadProductBatch reads a scrape batch
func LoadProductBatch(path string) (*types.ProductBatch, error) {
	var batch types.ProductBatch
	if err := readJSON(path, &batch); err != nil {
		return nil, err
	}
	if batch.Products == nil {
		batch.Products = []types.Product{}
	}
	return &batch, nil
}

// SaveProfile overwrites the persisted style profile
func SaveProfile(path string, profile *types.StyleProfile) error {
	return writeJSON(path, profile)
}

// LoadProfile reads the persisted style profile
func LoadProfile(path string) (*types.StyleProfile, error) {
	var profile types.StyleProfile
	if err := readJSON(path, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SaveRecommendations writes ranked matches
func SaveRecommendations(path string, recs *types.Recommendations) error {
	return writeJSON(path, recs)
}

// LoadRecommendations reads ranked matches
func LoadRecommendations(path string) (*types.Recommendations, error) {
	var recs types.Recommendations
	if err := readJSON(path, &recs); err != nil {
		return nil, err
	}
	if recs.Recommendations == nil {
		recs.Recommendations = []types.MatchResult{}
	}
	return &recs, nil
}

// writeJSON writes through a temp file and rename so readers never see a partial document
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// JSONProductStore keeps the latest scrape batch in a single JSON file.
// Each save supersedes the previous batch.
type JSONProductStore struct {
	path string
}

// NewJSONProductStore creates a file-backed product store
func NewJSONProductStore(path string) *JSONProductStore {
	return &JSONProductStore{path: path}
}

// SaveProducts replaces the stored batch, keeping the first product per URL
func (s *JSONProductStore) SaveProducts(ctx context.Context, products []types.Product, scrapedAt time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	unique := DedupeByURL(products)
	if err := SaveProductBatch(s.path, types.NewProductBatch(unique, scrapedAt)); err != nil {
		return 0, err
	}
	return len(unique), nil
}

// AllProducts returns the stored batch in scrape order
func (s *JSONProductStore) AllProducts(ctx context.Context) ([]types.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	batch, err := LoadProductBatch(s.path)
	if err != nil {
		return nil, err
	}
	return batch.Products, nil
}

// Close is a no-op for the file store
func (s *JSONProductStore) Close() error {
	return nil
}

// DedupeByURL keeps the first product for each URL, preserving order
func DedupeByURL(products []types.Product) []types.Product {
	seen := make(map[string]bool, len(products))
	unique := make([]types.Product, 0, len(products))
	for _, p := range products {
		if seen[p.URL] {
			continue
		}
		seen[p.URL] = true
		unique = append(unique, p)
	}
	return unique
}
