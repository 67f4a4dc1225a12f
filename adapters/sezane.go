package adapters

import (
	"regexp"
	"strings"

	"style-shopper/internal/types"

	"github.com/PuerkitoBio/goquery"
)

const (
	sezaneBaseURL = "https://www.sezane.com"
	sezaneAnchors = `a[href*="/product/"]`
)

var (
	sezaneSlugPattern  = regexp.MustCompile(`/product/([^/]+)`)
	sezaneColorPattern = regexp.MustCompile(`/product/[^/]+/([^/?#]+)`)
	sezaneCollabMarker = regexp.MustCompile(`(?i)\s+Sezane\s+X\s+`)
)

// SezaneAdapter handles extraction for sezane.com. Its listing is server
// rendered, and product URLs carry name and colour.
type SezaneAdapter struct {
	*BaseAdapter
}

// NewSezaneAdapter creates a new Sezane adapter
func NewSezaneAdapter(config *types.Config, logger types.Logger, fetcher types.PageFetcher) *SezaneAdapter {
	return &SezaneAdapter{
		BaseAdapter: NewBaseAdapter(config, logger, fetcher, sezaneBaseURL, sezaneAnchors),
	}
}

// GetStoreName returns the store name
func (s *SezaneAdapter) GetStoreName() string {
	return "Sezane"
}

// GetNewArrivalsURL returns the new-in listing
func (s *SezaneAdapter) GetNewArrivalsURL() string {
	return s.baseURL + "/us-en/new-in"
}

// BlockedHint is empty; Sezane serves its listing to plain HTTP clients
func (s *SezaneAdapter) BlockedHint() string {
	return ""
}

// ParseProducts extracts products from a Sezane listing page.
// Variant fragments (#size-...) are dropped so each product appears once.
func (s *SezaneAdapter) ParseProducts(html string) []types.Product {
	doc, err := s.ParseHTML(html)
	if err != nil {
		s.logger.Errorf("Failed to parse Sezane listing: %v", err)
		return []types.Product{}
	}

	accept := func(href string) bool { return strings.Contains(href, "/product/") }
	return s.ScanProducts(doc.Find(sezaneAnchors), StripFragment, accept, s.buildProduct)
}

func (s *SezaneAdapter) buildProduct(anchor *goquery.Selection, productURL string) (*types.Product, error) {
	name := unknownName
	if m := sezaneSlugPattern.FindStringSubmatch(productURL); m != nil {
		name = sezaneCollabMarker.ReplaceAllString(TitleFromSlug(m[1]), " × ")
	}

	colors := []string{}
	if m := sezaneColorPattern.FindStringSubmatch(productURL); m != nil {
		colors = append(colors, TitleFromSlug(m[1]))
	}

	return &types.Product{
		Name:     name,
		Price:    s.FindPrice(anchor, true),
		URL:      productURL,
		ImageURL: s.FindImage(anchor),
		Retailer: s.GetStoreName(),
		Colors:   colors,
		Sizes:    []string{},
	}, nil
}
