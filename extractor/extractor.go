package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"style-shopper/adapters"
	"style-shopper/internal/monitoring"
	"style-shopper/internal/types"
	"style-shopper/storage"
)

// Extractor orchestrates new-arrival scraping across retailers
type Extractor struct {
	config    *types.Config
	logger    types.Logger
	metrics   *monitoring.Metrics
	scrapers  map[string]*Scraper
	setupErrs map[string]error
	now       func() time.Time
}

// NewExtractor creates an extractor with every supported retailer. A retailer
// whose fetcher cannot be built (e.g. no Chrome) is kept and reported as failed.
func NewExtractor(config *types.Config, logger types.Logger, metrics *monitoring.Metrics) *Extractor {
	e := newExtractor(config, logger, metrics)
	for _, name := range adapters.SupportedRetailers() {
		adapter, err := adapters.NewAdapter(name, config, logger)
		if err != nil {
			logger.Warnf("Retailer %s unavailable: %v", name, err)
			e.setupErrs[name] = err
			continue
		}
		e.scrapers[name] = NewScraper(adapter, config, logger, metrics)
	}
	return e
}

// NewExtractorWithAdapters creates an extractor over caller supplied adapters
func NewExtractorWithAdapters(config *types.Config, logger types.Logger, metrics *monitoring.Metrics, storeAdapters ...types.StoreAdapter) *Extractor {
	e := newExtractor(config, logger, metrics)
	for _, adapter := range storeAdapters {
		e.scrapers[retailerKey(adapter.GetStoreName())] = NewScraper(adapter, config, logger, metrics)
	}
	return e
}

func newExtractor(config *types.Config, logger types.Logger, metrics *monitoring.Metrics) *Extractor {
	return &Extractor{
		config:    config,
		logger:    logger,
		metrics:   metrics,
		scrapers:  make(map[string]*Scraper),
		setupErrs: make(map[string]error),
		now:       time.Now,
	}
}

func retailerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ScrapeAll scrapes the given retailers sequentially; an empty list means all
// configured retailers. Per-retailer failures are reported in the StoreResult,
// and only context cancellation stops the run.
func (e *Extractor) ScrapeAll(ctx context.Context, retailers []string) (*types.ScrapeReport, error) {
	if len(retailers) == 0 {
		retailers = adapters.SupportedRetailers()
	}

	report := &types.ScrapeReport{
		Stores:   make([]types.StoreResult, 0, len(retailers)),
		Products: []types.Product{},
	}

	startTime := time.Now()
	for _, retailer := range retailers {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result := e.scrapeStore(ctx, retailer)
		report.Stores = append(report.Stores, result)
		report.Products = append(report.Products, result.Products...)
	}
	report.Products = storage.DedupeByURL(report.Products)

	e.logger.Infof("Scraped %d unique products from %d retailers in %v",
		len(report.Products), len(report.Stores), time.Since(startTime))
	return report, nil
}

func (e *Extractor) scrapeStore(ctx context.Context, retailer string) types.StoreResult {
	key := retailerKey(retailer)
	result := types.StoreResult{StoreName: retailer, Products: []types.Product{}}

	if err, ok := e.setupErrs[key]; ok {
		result.Error = err.Error()
		return result
	}
	scraper, ok := e.scrapers[key]
	if !ok {
		result.Error = fmt.Sprintf("no adapter found for retailer: %s", retailer)
		return result
	}

	result.StoreName = scraper.adapter.GetStoreName()
	e.logger.Infof("=== %s ===", result.StoreName)
	result.Products = scraper.ScrapeNewArrivals(ctx)
	e.logger.Infof("%s: %d products", result.StoreName, len(result.Products))
	return result
}

// ScrapeToJSON scrapes and writes the product batch to path
func (e *Extractor) ScrapeToJSON(ctx context.Context, retailers []string, path string) (*types.ProductBatch, error) {
	report, err := e.ScrapeAll(ctx, retailers)
	if err != nil {
		return nil, err
	}
	return e.SaveReport(report, path)
}

// SaveReport writes the products of a finished run to path as a batch
func (e *Extractor) SaveReport(report *types.ScrapeReport, path string) (*types.ProductBatch, error) {
	batch := types.NewProductBatch(report.Products, e.now().UTC())
	if err := storage.SaveProductBatch(path, batch); err != nil {
		return nil, fmt.Errorf("failed to write results to file: %w", err)
	}

	e.logger.Infof("Saved %d products to %s", batch.TotalProducts, path)
	return batch, nil
}

// Close cleans up resources
func (e *Extractor) Close() {
	for _, scraper := range e.scrapers {
		scraper.Close()
	}
}
