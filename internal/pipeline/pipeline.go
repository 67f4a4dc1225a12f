package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"style-shopper/extractor"
	"style-shopper/internal/monitoring"
	"style-shopper/internal/types"
	"style-shopper/storage"
	"style-shopper/utils"
	"style-shopper/vision"
)

var (
	// ErrNoProfile is returned when matching is requested before a style analysis
	ErrNoProfile = errors.New("no style profile found, analyze style first")
	// ErrNoProducts is returned when matching is requested before a scrape
	ErrNoProducts = errors.New("no products found, run scrapers first")
)

// Pipeline wires scraping, style analysis and matching to the persisted artifacts
type Pipeline struct {
	config    *types.Config
	logger    types.Logger
	metrics   *monitoring.Metrics
	store     types.ProductStore
	model     vision.Model
	images    vision.ImageFetcher
	cache     vision.MatchCache
	extractor *extractor.Extractor
	now       func() time.Time

	mu sync.Mutex
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithStore sets the product store; without one only the JSON batch file is used
func WithStore(store types.ProductStore) Option {
	return func(p *Pipeline) { p.store = store }
}

// WithModel sets the vision model instead of the configured Anthropic client
func WithModel(model vision.Model) Option {
	return func(p *Pipeline) { p.model = model }
}

// WithImageFetcher sets the product image downloader
func WithImageFetcher(images vision.ImageFetcher) Option {
	return func(p *Pipeline) { p.images = images }
}

// WithCache enables the match cache
func WithCache(cache vision.MatchCache) Option {
	return func(p *Pipeline) { p.cache = cache }
}

// WithExtractor sets the scraper set instead of every supported retailer
func WithExtractor(e *extractor.Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// New creates a pipeline. metrics may be nil.
func New(config *types.Config, logger types.Logger, metrics *monitoring.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) visionModel() (vision.Model, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model != nil {
		return p.model, nil
	}
	client, err := vision.NewAnthropicClient(p.config, p.logger, p.metrics)
	if err != nil {
		return nil, err
	}
	p.model = client
	return client, nil
}

func (p *Pipeline) imageFetcher() vision.ImageFetcher {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.images == nil {
		p.images = utils.NewHTTPClient(p.config, p.logger)
	}
	return p.images
}

// Scrape runs the retailers (all when empty), writes the JSON batch and, when a
// database store is configured, upserts the products there too
func (p *Pipeline) Scrape(ctx context.Context, retailers []string) (*types.ScrapeReport, error) {
	e := p.extractor
	if e == nil {
		e = extractor.NewExtractor(p.config, p.logger, p.metrics)
		defer e.Close()
	}

	report, err := e.ScrapeAll(ctx, retailers)
	if err != nil {
		return report, err
	}

	batch, err := e.SaveReport(report, storage.ProductsPath(p.config.DataDir))
	if err != nil {
		return report, err
	}

	if p.store != nil && storage.IsRelational(p.store) {
		n, err := p.store.SaveProducts(ctx, batch.Products, batch.ScrapedAt)
		if err != nil {
			return report, fmt.Errorf("failed to save products to store: %w", err)
		}
		p.logger.Infof("Upserted %d products into the product store", n)
	}
	return report, nil
}

// Products returns the scraped products from the store, falling back to the
// JSON batch file when the store fails or is empty
func (p *Pipeline) Products(ctx context.Context) ([]types.Product, error) {
	if p.store != nil {
		products, err := p.store.AllProducts(ctx)
		switch {
		case err == nil && len(products) > 0:
			return products, nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			p.logger.Warnf("Product store read failed, falling back to JSON: %v", err)
		}
	}

	batch, err := storage.LoadProductBatch(storage.ProductsPath(p.config.DataDir))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoProducts
	}
	if err != nil {
		return nil, err
	}
	if len(batch.Products) == 0 {
		return nil, ErrNoProducts
	}
	return batch.Products, nil
}

// Profile returns the saved style profile
func (p *Pipeline) Profile() (*types.StyleProfile, error) {
	profile, err := storage.LoadProfile(storage.ProfilePath(p.config.DataDir))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoProfile
	}
	return profile, err
}

// Recommendations returns the saved recommendations
func (p *Pipeline) Recommendations() (*types.Recommendations, error) {
	return storage.LoadRecommendations(storage.RecommendationsPath(p.config.DataDir))
}

// AnalyzeStyle builds a style profile from sources and saves it
func (p *Pipeline) AnalyzeStyle(ctx context.Context, sources []vision.ImageSource) (*types.StyleProfile, error) {
	model, err := p.visionModel()
	if err != nil {
		return nil, err
	}

	profile, err := vision.NewStyleAnalyzer(model, p.logger).Analyze(ctx, sources)
	if err != nil {
		return nil, err
	}

	path := storage.ProfilePath(p.config.DataDir)
	if err := storage.SaveProfile(path, profile); err != nil {
		return nil, fmt.Errorf("failed to save style profile: %w", err)
	}
	p.logger.Infof("Style profile saved to %s", path)
	return profile, nil
}

// FindMatches scores the stored products against the saved profile and
// saves the ranked recommendations
func (p *Pipeline) FindMatches(ctx context.Context, opts vision.MatchOptions) (*types.Recommendations, error) {
	profile, err := p.Profile()
	if err != nil {
		return nil, err
	}
	products, err := p.Products(ctx)
	if err != nil {
		return nil, err
	}
	model, err := p.visionModel()
	if err != nil {
		return nil, err
	}

	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = p.config.MatchWorkers
	}

	matcher := vision.NewProductMatcher(profile, model, p.imageFetcher(), p.logger).WithMetrics(p.metrics)
	if p.cache != nil {
		matcher = matcher.WithCache(p.cache)
	}
	results := matcher.MatchProducts(ctx, products, opts)

	analyzed := len(products)
	if opts.Limit > 0 && opts.Limit < analyzed {
		analyzed = opts.Limit
	}

	recs := types.NewRecommendations(profile, analyzed, results, p.now().UTC())
	path := storage.RecommendationsPath(p.config.DataDir)
	if err := storage.SaveRecommendations(path, recs); err != nil {
		return nil, fmt.Errorf("failed to save recommendations: %w", err)
	}
	p.logger.Infof("Found %d matches, saved to %s", recs.MatchesFound, path)
	return recs, nil
}

// Close releases the image fetcher it created
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.images.(*utils.HTTPClient); ok {
		c.Close()
	}
}
