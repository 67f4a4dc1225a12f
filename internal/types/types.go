package types

import (
	"context"
	"strings"
	"time"
)

// FetchMode selects how a retailer's listing page is retrieved
type FetchMode string

const (
	// FetchStatic issues a single HTTP GET with browser-like headers
	FetchStatic FetchMode = "static"
	// FetchBrowser renders the page in a headless Chrome instance
	FetchBrowser FetchMode = "browser"
)

// ParseFetchMode converts a config string into a FetchMode, defaulting to static
func ParseFetchMode(s string) FetchMode {
	if strings.EqualFold(strings.TrimSpace(s), string(FetchBrowser)) {
		return FetchBrowser
	}
	return FetchStatic
}

// Config holds the configuration for scraping, analysis and matching
type Config struct {
	RequestDelay       time.Duration
	MaxRetries         int
	Timeout            time.Duration
	UseHeadlessBrowser bool
	BrowserPath        string
	UserAgent          string
	FetchModes         map[string]FetchMode
	DataDir            string
	Debug              bool

	ModelAPIKey  string
	ModelBaseURL string
	VisionModel  string
	ModelTimeout time.Duration
	ModelRPS     float64

	MatchWorkers int
	MatchLimit   int
	MinScore     int

	DatabaseURL string
	SQLitePath  string
	RedisAddr   string
	CacheTTL    time.Duration
	ServerPort  string
	LogLevel    string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		RequestDelay:       0,
		MaxRetries:         0,
		Timeout:            30 * time.Second,
		UseHeadlessBrowser: true,
		UserAgent:          "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		FetchModes: map[string]FetchMode{
			"sezane": FetchStatic,
			"arket":  FetchBrowser,
		},
		DataDir:      "data",
		ModelBaseURL: "https://api.anthropic.com",
		VisionModel:  "claude-sonnet-4-20250514",
		ModelTimeout: 60 * time.Second,
		ModelRPS:     2,
		MatchWorkers: 3,
		MatchLimit:   25,
		MinScore:     6,
		CacheTTL:     7 * 24 * time.Hour,
		ServerPort:   "5001",
	}
}

// FetchModeFor returns the configured fetch mode for a retailer. Browser
// fetching is downgraded to static when the headless browser is disabled.
func (c *Config) FetchModeFor(retailer string) FetchMode {
	mode, ok := c.FetchModes[strings.ToLower(retailer)]
	if !ok {
		mode = FetchStatic
	}
	if mode == FetchBrowser && !c.UseHeadlessBrowser {
		return FetchStatic
	}
	return mode
}

// StoreAdapter defines the interface for retailer-specific extraction logic
type StoreAdapter interface {
	// GetStoreName returns the display name of the retailer
	GetStoreName() string

	// GetNewArrivalsURL returns the listing page to scrape
	GetNewArrivalsURL() string

	// GetPageContent fetches raw markup using the adapter's fetch strategy
	GetPageContent(ctx context.Context, url string) (string, error)

	// ParseProducts extracts deduplicated products from listing markup
	ParseProducts(html string) []Product

	// BlockedHint is logged when a scrape yields nothing; may be empty
	BlockedHint() string

	Close()
}

// PageFetcher retrieves the markup of a page. Static fetchers ignore waitSelector.
type PageFetcher interface {
	GetPageContent(ctx context.Context, url string, waitSelector string) (string, error)
	Close()
}

// ProductStore persists scraped products keyed by URL
type ProductStore interface {
	// SaveProducts upserts products by URL and returns how many were written
	SaveProducts(ctx context.Context, products []Product, scrapedAt time.Time) (int, error)

	// AllProducts returns stored products, most recently scraped first
	AllProducts(ctx context.Context) ([]Product, error)

	Close() error
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
