package adapters

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"style-shopper/internal/types"
	"style-shopper/utils"

	"github.com/PuerkitoBio/goquery"
)

// StripMode selects which volatile URL suffix is removed before deduplication
type StripMode int

const (
	// StripFragment drops "#..." (colour/size variant anchors) and tracking parameters
	StripFragment StripMode = iota
	// StripQuery drops "?..." and anything after it
	StripQuery
)

const (
	imageSearchLevels = 3
	priceSearchLevels = 4
	unknownName       = "Unknown"
	defaultPrice      = "N/A"
)

var (
	priceClassSelector = `[class*="price"], [class*="Price"]`
	dollarPattern      = regexp.MustCompile(`\$\d+`)
)

// BaseAdapter provides the fetch strategy and the extraction helpers shared by
// retailer adapters. Retailer adapters embed it and supply selectors and
// per-anchor field resolution.
type BaseAdapter struct {
	config       *types.Config
	logger       types.Logger
	fetcher      types.PageFetcher
	baseURL      string
	waitSelector string
}

// NewBaseAdapter creates a base adapter around an already constructed fetcher
func NewBaseAdapter(config *types.Config, logger types.Logger, fetcher types.PageFetcher, baseURL, waitSelector string) *BaseAdapter {
	return &BaseAdapter{
		config:       config,
		logger:       logger,
		fetcher:      fetcher,
		baseURL:      strings.TrimRight(baseURL, "/"),
		waitSelector: waitSelector,
	}
}

// NewPageFetcher builds the fetcher for a fetch mode. Browser mode fails when
// no Chrome runtime is installed.
func NewPageFetcher(config *types.Config, logger types.Logger, mode types.FetchMode) (types.PageFetcher, error) {
	if mode == types.FetchBrowser {
		client, err := utils.NewBrowserClient(config, logger)
		if err != nil {
			return nil, fmt.Errorf("browser fetching unavailable: %w", err)
		}
		return client, nil
	}
	return utils.NewHTTPClient(config, logger), nil
}

// GetPageContent retrieves page markup through the configured fetcher
func (b *BaseAdapter) GetPageContent(ctx context.Context, url string) (string, error) {
	return b.fetcher.GetPageContent(ctx, url, b.waitSelector)
}

// ParseHTML parses HTML content into a goquery document
func (b *BaseAdapter) ParseHTML(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// BaseURL returns the retailer origin used to resolve relative links
func (b *BaseAdapter) BaseURL() string {
	return b.baseURL
}

// Close cleans up resources
func (b *BaseAdapter) Close() {
	if b.fetcher != nil {
		b.fetcher.Close()
	}
}

// NormalizeURL makes href absolute against the retailer origin, drops the
// fragment and tracking parameters, and strips the query entirely in
// StripQuery mode. Returns "" for unusable hrefs.
func (b *BaseAdapter) NormalizeURL(href string, mode StripMode) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	base, err := url.Parse(b.baseURL + "/")
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)

	abs.Fragment = ""
	abs.RawFragment = ""
	if mode == StripQuery {
		abs.RawQuery = ""
	} else {
		abs.RawQuery = stripTrackingParams(abs.RawQuery)
	}
	if abs.RawQuery == "" {
		abs.ForceQuery = false
	}
	return abs.String()
}

var trackingParams = map[string]bool{
	"gclid":   true,
	"fbclid":  true,
	"msclkid": true,
	"mc_cid":  true,
	"mc_eid":  true,
	"_ga":     true,
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	return strings.HasPrefix(key, "utm_") || trackingParams[key]
}

// stripTrackingParams removes campaign parameters and keeps the rest in order
func stripTrackingParams(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	kept := make([]string, 0)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if !isTrackingParam(key) {
			kept = append(kept, pair)
		}
	}
	return strings.Join(kept, "&")
}

// ResolveAssetURL turns protocol-relative and root-relative asset URLs into absolute ones
func (b *BaseAdapter) ResolveAssetURL(src string) string {
	src = strings.TrimSpace(src)
	switch {
	case src == "":
		return ""
	case strings.HasPrefix(src, "http"):
		return src
	case strings.HasPrefix(src, "//"):
		return "https:" + src
	case strings.HasPrefix(src, "/"):
		return b.baseURL + src
	default:
		return b.baseURL + "/" + src
	}
}

// productBuilder resolves one product from a listing anchor and its normalized URL
type productBuilder func(anchor *goquery.Selection, productURL string) (*types.Product, error)

// ScanProducts walks product anchors, deduplicates them by normalized URL
// (first seen wins) and builds one product per surviving anchor. A failure on
// one anchor is logged and skipped.
func (b *BaseAdapter) ScanProducts(anchors *goquery.Selection, mode StripMode, accept func(href string) bool, build productBuilder) []types.Product {
	b.logger.Infof("Found %d product links", anchors.Length())

	products := make([]types.Product, 0)
	seen := make(map[string]bool)

	anchors.Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" || (accept != nil && !accept(href)) {
			return
		}

		productURL := b.NormalizeURL(href, mode)
		if productURL == "" || seen[productURL] {
			return
		}
		seen[productURL] = true

		product, err := b.safeBuild(build, s, productURL)
		if err != nil {
			b.logger.Warnf("Error parsing product %s: %v", productURL, err)
			return
		}
		if product != nil {
			products = append(products, *product)
		}
	})

	b.logger.Infof("Deduplicated to %d unique products", len(products))
	return products
}

func (b *BaseAdapter) safeBuild(build productBuilder, s *goquery.Selection, productURL string) (product *types.Product, err error) {
	defer func() {
		if r := recover(); r != nil {
			product = nil
			err = fmt.Errorf("panic while parsing anchor: %v", r)
		}
	}()
	return build(s, productURL)
}

// FindImage returns the first image inside the anchor or, failing that, inside
// one of its first three ancestors. src wins over data-src, which wins over
// the first srcset candidate.
func (b *BaseAdapter) FindImage(anchor *goquery.Selection) string {
	img := anchor.Find("img").First()
	parent := anchor.Parent()
	for level := 0; img.Length() == 0 && level < imageSearchLevels && parent.Length() > 0; level++ {
		img = parent.Find("img").First()
		parent = parent.Parent()
	}
	if img.Length() == 0 {
		return ""
	}

	src := strings.TrimSpace(img.AttrOr("src", ""))
	if src == "" {
		src = strings.TrimSpace(img.AttrOr("data-src", ""))
	}
	if src == "" {
		src = firstSrcsetURL(img.AttrOr("srcset", ""))
	}
	return b.ResolveAssetURL(src)
}

func firstSrcsetURL(srcset string) string {
	first := strings.TrimSpace(strings.Split(srcset, ",")[0])
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// FindPrice searches the anchor's ancestors, nearest first, for a price. At each
// level a dollar-amount text node is tried first when matchDollar is set, then
// an element whose class mentions "price".
func (b *BaseAdapter) FindPrice(anchor *goquery.Selection, matchDollar bool) string {
	parent := anchor.Parent()
	for level := 0; level < priceSearchLevels && parent.Length() > 0; level++ {
		if matchDollar {
			if text := findTextNode(parent, dollarPattern); text != "" {
				return text
			}
		}
		if el := parent.Find(priceClassSelector).First(); el.Length() > 0 {
			return strings.TrimSpace(el.Text())
		}
		parent = parent.Parent()
	}
	return defaultPrice
}

// findTextNode returns the first descendant text node matching pattern, trimmed
func findTextNode(s *goquery.Selection, pattern *regexp.Regexp) string {
	var found string
	s.Contents().EachWithBreak(func(i int, child *goquery.Selection) bool {
		if goquery.NodeName(child) == "#text" {
			if text := child.Text(); pattern.MatchString(text) {
				found = strings.TrimSpace(text)
				return false
			}
			return true
		}
		found = findTextNode(child, pattern)
		return found == ""
	})
	return found
}

// TitleFromSlug converts a URL slug such as "linen-midi-dress" into "Linen Midi Dress"
func TitleFromSlug(slug string) string {
	slug = strings.ReplaceAll(slug, "-", " ")
	slug = strings.ReplaceAll(slug, "_", " ")
	return titleCase(slug)
}

// titleCase upper-cases the first letter of every alphabetic run and lower-cases the rest
func titleCase(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				sb.WriteRune(unicode.ToLower(r))
			} else {
				sb.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// cleanText collapses whitespace runs the way a browser renders text
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
