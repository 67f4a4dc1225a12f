package adapters

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"style-shopper/internal/types"

	"github.com/PuerkitoBio/goquery"
)

const (
	arketBaseURL         = "https://www.arket.com"
	arketAnchors         = `a[href*="/p/"], a[href*="/product"]`
	arketFallbackAnchors = `[class*="product"] a[href]`
	arketNameSelector    = `[class*="name"], [class*="title"], h2, h3, span`
)

var (
	arketSlugPattern     = regexp.MustCompile(`/p/([^/?]+)`)
	arketHTMLSlugPattern = regexp.MustCompile(`/([^/]+)\.html`)
)

// ArketAdapter handles extraction for arket.com. The listing is rendered
// client side behind Akamai, so it is normally fetched through the browser.
type ArketAdapter struct {
	*BaseAdapter
}

// NewArketAdapter creates a new Arket adapter
func NewArketAdapter(config *types.Config, logger types.Logger, fetcher types.PageFetcher) *ArketAdapter {
	return &ArketAdapter{
		BaseAdapter: NewBaseAdapter(config, logger, fetcher, arketBaseURL, `a[href*="/p/"]`),
	}
}

// GetStoreName returns the store name
func (a *ArketAdapter) GetStoreName() string {
	return "Arket"
}

// GetNewArrivalsURL returns the women's new arrivals listing
func (a *ArketAdapter) GetNewArrivalsURL() string {
	return a.baseURL + "/en-ww/women/new-arrivals/"
}

// BlockedHint explains the usual reason for an empty Arket scrape
func (a *ArketAdapter) BlockedHint() string {
	return "Arket has strong bot protection (Akamai). Consider using their mobile app API or RSS feeds."
}

// ParseProducts extracts products from an Arket listing page
func (a *ArketAdapter) ParseProducts(html string) []types.Product {
	doc, err := a.ParseHTML(html)
	if err != nil {
		a.logger.Errorf("Failed to parse Arket listing: %v", err)
		return []types.Product{}
	}

	anchors := doc.Find(arketAnchors)
	if anchors.Length() == 0 {
		anchors = doc.Find(arketFallbackAnchors)
	}

	accept := func(href string) bool {
		return strings.Contains(href, "/p/") || strings.Contains(href, "/product")
	}
	return a.ScanProducts(anchors, StripQuery, accept, a.buildProduct)
}

func (a *ArketAdapter) buildProduct(anchor *goquery.Selection, productURL string) (*types.Product, error) {
	return &types.Product{
		Name:     a.resolveName(anchor, productURL),
		Price:    a.FindPrice(anchor, false),
		URL:      productURL,
		ImageURL: a.FindImage(anchor),
		Retailer: a.GetStoreName(),
		Colors:   []string{},
		Sizes:    []string{},
	}, nil
}

// resolveName prefers readable anchor text, then a nested name element, then the URL slug
func (a *ArketAdapter) resolveName(anchor *goquery.Selection, productURL string) string {
	text := cleanText(anchor.Text())
	if n := utf8.RuneCountInString(text); n > 3 && n < 100 {
		return text
	}

	if nested := cleanText(anchor.Find(arketNameSelector).First().Text()); nested != "" {
		return nested
	}

	if m := arketSlugPattern.FindStringSubmatch(productURL); m != nil {
		return TitleFromSlug(m[1])
	}
	if m := arketHTMLSlugPattern.FindStringSubmatch(productURL); m != nil {
		return TitleFromSlug(m[1])
	}
	return unknownName
}
