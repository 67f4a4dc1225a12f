package vision

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"style-shopper/internal/monitoring"
	"style-shopper/internal/types"
)

// DefaultMaxWorkers bounds concurrent product scoring; every task is a paid model call
const DefaultMaxWorkers = 3

// ErrNoProductImage is returned when a product has no image to compare
var ErrNoProductImage = errors.New("product has no image")

// MatchCache stores scored results between runs. Implementations handle expiry.
type MatchCache interface {
	Get(ctx context.Context, key string) (*types.MatchResult, bool, error)
	Set(ctx context.Context, key string, result types.MatchResult) error
}

// MatchOptions controls a matching run. Limit <= 0 means no limit.
type MatchOptions struct {
	MinScore   int
	Limit      int
	MaxWorkers int
}

// ProductMatcher scores products against one style profile
type ProductMatcher struct {
	profile        *types.StyleProfile
	profileContext string
	fingerprint    string
	model          Model
	images         ImageFetcher
	logger         types.Logger
	cache          MatchCache
	metrics        *monitoring.Metrics
}

type matchPayload struct {
	Score             flexScore  `json:"score"`
	Reasoning         string     `json:"reasoning"`
	StyleNotes        string     `json:"style_notes"`
	SuggestedPairings stringList `json:"suggested_pairings"`
}

// NewProductMatcher creates a matcher for profile. The profile is treated as read-only.
func NewProductMatcher(profile *types.StyleProfile, model Model, images ImageFetcher, logger types.Logger) *ProductMatcher {
	return &ProductMatcher{
		profile:        profile,
		profileContext: ProfileContext(profile),
		fingerprint:    profile.Fingerprint(),
		model:          model,
		images:         images,
		logger:         logger,
	}
}

// WithCache enables result caching keyed by profile and product URL
func (m *ProductMatcher) WithCache(cache MatchCache) *ProductMatcher {
	m.cache = cache
	return m
}

// WithMetrics records per-product outcomes
func (m *ProductMatcher) WithMetrics(metrics *monitoring.Metrics) *ProductMatcher {
	m.metrics = metrics
	return m
}

// CacheKey identifies one product's score under one profile
func CacheKey(fingerprint, productURL string) string {
	return "match:" + fingerprint + ":" + productURL
}

// MatchProduct scores a single product: fetch its image, ask the model, parse the verdict
func (m *ProductMatcher) MatchProduct(ctx context.Context, product types.Product) (*types.MatchResult, error) {
	if product.ImageURL == "" {
		return nil, ErrNoProductImage
	}

	key := CacheKey(m.fingerprint, product.URL)
	if m.cache != nil {
		cached, ok, err := m.cache.Get(ctx, key)
		if err != nil {
			m.logger.Warnf("Match cache read failed for %s: %v", product.URL, err)
		} else if ok {
			m.metrics.IncMatchOutcome(monitoring.OutcomeCached)
			cached.Product = product
			return cached, nil
		}
	}

	data, mediaType, err := m.images.FetchImage(ctx, product.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("image fetch failed: %w", err)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, fmt.Errorf("image fetch failed: unexpected content type %q", mediaType)
	}

	prompt := productMatchPrompt(m.profileContext, product)
	text, err := m.model.Complete(ctx, []Image{{MediaType: mediaType, Data: data}}, prompt, matchMaxTokens)
	if err != nil {
		return nil, err
	}

	var payload matchPayload
	if err := DecodeJSON(text, &payload); err != nil {
		return nil, err
	}

	result := &types.MatchResult{
		Product:           product,
		Score:             clampScore(int(payload.Score)),
		Reasoning:         payload.Reasoning,
		StyleNotes:        payload.StyleNotes,
		SuggestedPairings: nonNil(payload.SuggestedPairings),
	}

	if m.cache != nil {
		if err := m.cache.Set(ctx, key, *result); err != nil {
			m.logger.Warnf("Match cache write failed for %s: %v", product.URL, err)
		}
	}
	return result, nil
}

type matchOutcome struct {
	product types.Product
	result  *types.MatchResult
	err     error
}

// MatchProducts scores products with at most opts.MaxWorkers in flight.
// Products without an image are skipped, opts.Limit truncates the remaining
// list in input order, and a failing product is logged and dropped. Results
// with score >= opts.MinScore are returned sorted by score, highest first.
func (m *ProductMatcher) MatchProducts(ctx context.Context, products []types.Product, opts MatchOptions) []types.MatchResult {
	candidates := make([]types.Product, 0, len(products))
	for _, p := range products {
		if p.ImageURL != "" {
			candidates = append(candidates, p)
		}
	}
	if opts.Limit > 0 && len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = DefaultMaxWorkers
	}

	m.logger.Infof("Matching %d products against style profile...", len(candidates))

	outcomes := make(chan matchOutcome)
	go func() {
		var g errgroup.Group
		g.SetLimit(workers)
		for _, p := range candidates {
			g.Go(func() error {
				result, err := m.MatchProduct(ctx, p)
				outcomes <- matchOutcome{product: p, result: result, err: err}
				return nil
			})
		}
		_ = g.Wait()
		close(outcomes)
	}()

	// Outcomes are logged as they complete, so log order is not input order
	results := make([]types.MatchResult, 0, len(candidates))
	completed := 0
	for o := range outcomes {
		completed++
		prefix := fmt.Sprintf("  [%d/%d] %s", completed, len(candidates), o.product.Name)

		switch {
		case o.err != nil:
			m.metrics.IncMatchOutcome(monitoring.OutcomeFailed)
			m.logger.Warnf("%s: Could not analyze (%v)", prefix, o.err)
		case o.result.Score >= opts.MinScore:
			m.metrics.IncMatchOutcome(monitoring.OutcomeKept)
			m.logger.Infof("%s: %d/10", prefix, o.result.Score)
			results = append(results, *o.result)
		default:
			m.metrics.IncMatchOutcome(monitoring.OutcomeBelowThreshold)
			m.logger.Infof("%s: %d/10 (below threshold)", prefix, o.result.Score)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// TopMatches returns the best topN results scoring at least minScore
func (m *ProductMatcher) TopMatches(ctx context.Context, products []types.Product, topN, minScore int) []types.MatchResult {
	results := m.MatchProducts(ctx, products, MatchOptions{MinScore: minScore})
	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results
}
