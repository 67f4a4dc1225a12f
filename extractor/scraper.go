package extractor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"style-shopper/internal/monitoring"
	"style-shopper/internal/types"
)

// Scraper runs one retailer's listing scrape. It never fails: fetch and parse
// problems are logged and yield an empty or partial product list.
type Scraper struct {
	adapter types.StoreAdapter
	config  *types.Config
	logger  types.Logger
	metrics *monitoring.Metrics
}

// NewScraper creates a scraper around a store adapter. metrics may be nil.
func NewScraper(adapter types.StoreAdapter, config *types.Config, logger types.Logger, metrics *monitoring.Metrics) *Scraper {
	return &Scraper{
		adapter: adapter,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

// ScrapeNewArrivals fetches the retailer's new-arrivals page and extracts products
func (s *Scraper) ScrapeNewArrivals(ctx context.Context) []types.Product {
	products, err := s.scrape(ctx)
	if err != nil {
		s.logger.Errorf("Error fetching %s: %v", s.adapter.GetNewArrivalsURL(), err)
	}
	if len(products) == 0 {
		if hint := s.adapter.BlockedHint(); hint != "" {
			s.logger.Warnf("Note: %s", hint)
		}
	}
	return products
}

func (s *Scraper) scrape(ctx context.Context) (products []types.Product, err error) {
	store := s.adapter.GetStoreName()
	startTime := time.Now()
	products = []types.Product{}
	defer func() {
		s.metrics.ObserveScrape(store, len(products), time.Since(startTime), err)
	}()

	url := s.adapter.GetNewArrivalsURL()
	s.logger.Infof("Fetching (%s): %s", s.config.FetchModeFor(store), url)

	html, err := s.adapter.GetPageContent(ctx, url)
	if err != nil {
		return products, err
	}

	if s.config.Debug {
		s.saveDebugHTML(store, html)
	}

	products = s.adapter.ParseProducts(html)
	s.logger.Infof("%s scrape finished in %v with %d products", store, time.Since(startTime), len(products))
	return products, nil
}

// saveDebugHTML keeps the fetched markup for selector debugging
func (s *Scraper) saveDebugHTML(store, html string) {
	path := filepath.Join(s.config.DataDir, "debug_"+strings.ToLower(store)+".html")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.logger.Warnf("Failed to create debug directory: %v", err)
		return
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		s.logger.Warnf("Failed to save debug HTML: %v", err)
		return
	}
	s.logger.Infof("Saved debug HTML to %s", path)
}

// Close releases the adapter's fetcher
func (s *Scraper) Close() {
	s.adapter.Close()
}
