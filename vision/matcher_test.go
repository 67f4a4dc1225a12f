package vision

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"style-shopper/internal/monitoring"
	"style-shopper/internal/types"
)

func testProfile() *types.StyleProfile {
	return &types.StyleProfile{
		ColorPalette: []string{"warm beige", "ivory"},
		Materials:    []string{"linen"},
		Avoid:        []string{"neon"},
		Summary:      "Soft neutral minimalism.",
	}
}

func product(name string, withImage bool) types.Product {
	p := types.Product{
		Name:     name,
		Price:    "$100",
		URL:      "https://shop.example.com/p/" + strings.ToLower(name),
		Retailer: "Sezane",
	}
	if withImage {
		p.ImageURL = "https://img.example.com/" + strings.ToLower(name) + ".jpg"
	}
	return p
}

func scoreJSON(score int) string {
	return fmt.Sprintf(`{"score": %d, "reasoning": "r", "style_notes": "n", "suggested_pairings": ["a", "b"]}`, score)
}

func scoredModel() *fakeModel {
	return &fakeModel{
		responses: map[string]string{
			"Alpha":   scoreJSON(9),
			"Bravo":   "```json\n" + scoreJSON(4) + "\n```",
			"Charlie": scoreJSON(7),
			"Delta":   scoreJSON(6),
			"Echo":    scoreJSON(8),
		},
		delay: 10 * time.Millisecond,
	}
}

func fiveProducts() []types.Product {
	return []types.Product{
		product("Alpha", true),
		product("Bravo", true),
		product("Charlie", true),
		product("Delta", true),
		product("Echo", true),
	}
}

func assertSortedByScore(t *testing.T, results []types.MatchResult) {
	t.Helper()
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestMatchProducts_FailedImageIsDropped(t *testing.T) {
	products := fiveProducts()
	model := scoredModel()
	images := &fakeImages{failing: map[string]bool{products[2].ImageURL: true}}
	matcher := NewProductMatcher(testProfile(), model, images, logrus.New())

	results := matcher.MatchProducts(context.Background(), products, MatchOptions{MaxWorkers: 2})

	assert.LessOrEqual(t, len(results), 4)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.NotEqual(t, "Charlie", r.Product.Name)
	}
	assert.LessOrEqual(t, int(model.maxInFlight), 2)
	assert.Equal(t, 4, model.callCount())
	assertSortedByScore(t, results)
	assert.Equal(t, []int{9, 8, 6, 4}, scores(results))
}

func scores(results []types.MatchResult) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.Score
	}
	return out
}

func TestMatchProducts_SkipsProductsWithoutImage(t *testing.T) {
	model := scoredModel()
	images := &fakeImages{}
	matcher := NewProductMatcher(testProfile(), model, images, logrus.New())

	products := []types.Product{product("Alpha", false), product("Bravo", true)}
	results := matcher.MatchProducts(context.Background(), products, MatchOptions{})

	require.Len(t, results, 1)
	assert.Equal(t, "Bravo", results[0].Product.Name)
	assert.Equal(t, []string{products[1].ImageURL}, images.fetched)
}

func TestMatchProducts_MinScoreFiltersSubset(t *testing.T) {
	ctx := context.Background()
	all := NewProductMatcher(testProfile(), scoredModel(), &fakeImages{}, logrus.New()).
		MatchProducts(ctx, fiveProducts(), MatchOptions{MinScore: 0})
	filtered := NewProductMatcher(testProfile(), scoredModel(), &fakeImages{}, logrus.New()).
		MatchProducts(ctx, fiveProducts(), MatchOptions{MinScore: 7})

	require.Len(t, all, 5)
	require.Len(t, filtered, 3)

	inAll := make(map[string]bool)
	for _, r := range all {
		inAll[r.Product.URL] = true
	}
	for _, r := range filtered {
		assert.True(t, inAll[r.Product.URL])
		assert.GreaterOrEqual(t, r.Score, 7)
	}
	assertSortedByScore(t, all)
	assertSortedByScore(t, filtered)
}

func TestMatchProducts_LimitKeepsInputOrder(t *testing.T) {
	images := &fakeImages{}
	products := append([]types.Product{product("Zulu", false)}, fiveProducts()...)
	matcher := NewProductMatcher(testProfile(), scoredModel(), images, logrus.New())

	results := matcher.MatchProducts(context.Background(), products, MatchOptions{Limit: 2, MaxWorkers: 1})

	require.Len(t, results, 2)
	assert.Equal(t, "Alpha", results[0].Product.Name)
	assert.Equal(t, "Bravo", results[1].Product.Name)
	assert.Len(t, images.fetched, 2)
}

func TestMatchProducts_ModelFailuresAreDropped(t *testing.T) {
	model := &fakeModel{
		responses: map[string]string{
			"Alpha": "I can't rate clothing.",
			"Bravo": scoreJSON(7),
		},
	}
	metrics := monitoring.NewMetrics()
	matcher := NewProductMatcher(testProfile(), model, &fakeImages{}, logrus.New()).WithMetrics(metrics)

	results := matcher.MatchProducts(context.Background(),
		[]types.Product{product("Alpha", true), product("Bravo", true)}, MatchOptions{MinScore: 6})

	require.Len(t, results, 1)
	assert.Equal(t, "Bravo", results[0].Product.Name)
	assert.Equal(t, []string{"a", "b"}, results[0].SuggestedPairings)
}

func TestMatchProducts_NonImageContentIsDropped(t *testing.T) {
	model := scoredModel()
	matcher := NewProductMatcher(testProfile(), model, &fakeImages{mediaType: "text/html"}, logrus.New())

	results := matcher.MatchProducts(context.Background(), fiveProducts(), MatchOptions{})

	assert.Empty(t, results)
	assert.Zero(t, model.callCount())
}

func TestMatchProducts_MissingScoreDefaultsToZero(t *testing.T) {
	model := &fakeModel{fallback: `{"reasoning": "No verdict."}`}
	matcher := NewProductMatcher(testProfile(), model, &fakeImages{}, logrus.New())

	results := matcher.MatchProducts(context.Background(), []types.Product{product("Alpha", true)}, MatchOptions{})

	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].Score)
	assert.NotNil(t, results[0].SuggestedPairings)
}

func TestMatchProduct_UsesCache(t *testing.T) {
	ctx := context.Background()
	model := scoredModel()
	images := &fakeImages{}
	cache := newMemoryCache()
	matcher := NewProductMatcher(testProfile(), model, images, logrus.New()).WithCache(cache)

	first, err := matcher.MatchProduct(ctx, product("Echo", true))
	require.NoError(t, err)
	second, err := matcher.MatchProduct(ctx, product("Echo", true))
	require.NoError(t, err)

	assert.Equal(t, 8, first.Score)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, 1, model.callCount())
	assert.Len(t, images.fetched, 1)

	other := NewProductMatcher(&types.StyleProfile{Summary: "Maximalist"}, model, images, logrus.New()).WithCache(cache)
	_, err = other.MatchProduct(ctx, product("Echo", true))
	require.NoError(t, err)
	assert.Equal(t, 2, model.callCount())
}

func TestMatchProduct_NoImage(t *testing.T) {
	matcher := NewProductMatcher(testProfile(), scoredModel(), &fakeImages{}, logrus.New())

	_, err := matcher.MatchProduct(context.Background(), product("Alpha", false))
	assert.ErrorIs(t, err, ErrNoProductImage)
}

func TestTopMatches(t *testing.T) {
	matcher := NewProductMatcher(testProfile(), scoredModel(), &fakeImages{}, logrus.New())

	results := matcher.TopMatches(context.Background(), fiveProducts(), 2, 6)

	assert.Equal(t, []int{9, 8}, scores(results))
}

func TestMatchPrompt(t *testing.T) {
	model := scoredModel()
	matcher := NewProductMatcher(testProfile(), model, &fakeImages{}, logrus.New())

	_, err := matcher.MatchProduct(context.Background(), product("Alpha", true))
	require.NoError(t, err)

	prompt := model.prompts[0]
	assert.Contains(t, prompt, "Style Summary: Soft neutral minimalism.")
	assert.Contains(t, prompt, "Preferred Colors: warm beige, ivory")
	assert.Contains(t, prompt, "Tends to Avoid: neon")
	assert.NotContains(t, prompt, "Preferred Patterns")
	assert.Contains(t, prompt, "- Colors: Not specified")
	assert.Contains(t, prompt, "Be honest and critical.")
	require.Len(t, model.images[0], 1)
	assert.Equal(t, "image/jpeg", model.images[0][0].MediaType)
}
