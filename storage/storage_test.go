package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"style-shopper/internal/types"
)

func strPtr(s string) *string { return &s }

func sampleProducts() []types.Product {
	return []types.Product{
		{Name: "Linen Shirt", Price: "€45", URL: "https://www.arket.com/en-ww/p/linen-shirt", ImageURL: "https://img/shirt.jpg", Retailer: "Arket"},
		{Name: "Gaspard Cardigan", Price: "$165", URL: "https://www.sezane.com/us-en/product/gaspard-cardigan/ecru", Retailer: "Sezane", Colors: []string{"Ecru"}, Category: strPtr("knitwear")},
	}
}

func TestProductBatch_RoundTrip(t *testing.T) {
	path := ProductsPath(t.TempDir())
	scrapedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	batch := types.NewProductBatch(sampleProducts(), scrapedAt)

	require.NoError(t, SaveProductBatch(path, batch))

	loaded, err := LoadProductBatch(path)
	require.NoError(t, err)
	assert.True(t, scrapedAt.Equal(loaded.ScrapedAt))
	assert.Equal(t, 2, loaded.TotalProducts)
	if diff := cmp.Diff(batch.Products, loaded.Products, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("products changed (-want +got):\n%s", diff)
	}
}

func TestProfile_RoundTripIsExact(t *testing.T) {
	path := ProfilePath(t.TempDir())
	profile := &types.StyleProfile{
		ColorPalette: []string{"warm beige", "ink navy"},
		Silhouettes:  []string{"wide-leg"},
		Summary:      "Quiet luxury basics.",
	}

	require.NoError(t, SaveProfile(path, profile))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	loaded, err := LoadProfile(path)
	require.NoError(t, err)
	require.NoError(t, SaveProfile(path, loaded))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestLoad_MissingFileIsNotFound(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadProfile(ProfilePath(dir))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = LoadRecommendations(RecommendationsPath(dir))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = NewJSONProductStore(ProductsPath(dir)).AllProducts(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadProfile(path)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRecommendations_RoundTrip(t *testing.T) {
	path := RecommendationsPath(t.TempDir())
	results := []types.MatchResult{{Product: sampleProducts()[0], Score: 8, Reasoning: "Fits the palette."}}
	recs := types.NewRecommendations(&types.StyleProfile{Summary: "Minimal"}, 5, results, time.Now().UTC())

	require.NoError(t, SaveRecommendations(path, recs))

	loaded, err := LoadRecommendations(path)
	require.NoError(t, err)
	assert.Equal(t, "Minimal", loaded.StyleSummary)
	assert.Equal(t, 5, loaded.ProductsAnalyzed)
	assert.Equal(t, 1, loaded.MatchesFound)
	require.Len(t, loaded.Recommendations, 1)
	assert.Equal(t, 8, loaded.Recommendations[0].Score)
}

func TestJSONProductStore_SupersedesBatch(t *testing.T) {
	ctx := context.Background()
	store := NewJSONProductStore(ProductsPath(t.TempDir()))
	defer store.Close()

	products := append(sampleProducts(), sampleProducts()[0])
	n, err := store.SaveProducts(ctx, products, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.SaveProducts(ctx, sampleProducts()[:1], time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := store.AllProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Linen Shirt", all[0].Name)
	assert.False(t, IsRelational(store))
}

func TestSQLiteStore_UpsertByURL(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "shopper.db"))
	require.NoError(t, err)
	defer store.Close()
	assert.True(t, IsRelational(store))

	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n, err := store.SaveProducts(ctx, sampleProducts(), older)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	updated := sampleProducts()[0]
	updated.Price = "€39"
	_, err = store.SaveProducts(ctx, []types.Product{updated}, older.Add(24*time.Hour))
	require.NoError(t, err)

	all, err := store.AllProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	// Freshest first
	assert.Equal(t, "Linen Shirt", all[0].Name)
	assert.Equal(t, "€39", all[0].Price)
	assert.Equal(t, []string{}, all[0].Colors)
	assert.Nil(t, all[0].Category)

	assert.Equal(t, []string{"Ecru"}, all[1].Colors)
	require.NotNil(t, all[1].Category)
	assert.Equal(t, "knitwear", *all[1].Category)
}

func TestSQLiteStore_EmptySave(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "shopper.db"))
	require.NoError(t, err)
	defer store.Close()

	n, err := store.SaveProducts(context.Background(), nil, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := store.AllProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOpenProductStore(t *testing.T) {
	ctx := context.Background()
	config := types.DefaultConfig()
	config.DataDir = t.TempDir()

	store, err := OpenProductStore(ctx, config)
	require.NoError(t, err)
	assert.IsType(t, &JSONProductStore{}, store)

	config.SQLitePath = filepath.Join(config.DataDir, "shopper.db")
	store, err = OpenProductStore(ctx, config)
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &SQLiteStore{}, store)
}

func TestPostgresStore_UpsertByURL(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	store, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate(ctx))
	_, err = store.db.Exec(ctx, "TRUNCATE products")
	require.NoError(t, err)

	_, err = store.SaveProducts(ctx, sampleProducts(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = store.SaveProducts(ctx, sampleProducts()[1:], time.Now())
	require.NoError(t, err)

	all, err := store.AllProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Gaspard Cardigan", all[0].Name)
	assert.Equal(t, []string{"Ecru"}, all[0].Colors)
}
