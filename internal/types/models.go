package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Product represents a single item scraped from a retailer listing
type Product struct {
	Name        string   `json:"name"`
	Price       string   `json:"price"`
	URL         string   `json:"url"`
	ImageURL    string   `json:"image_url"`
	Retailer    string   `json:"retailer"`
	Category    *string  `json:"category"`
	Colors      []string `json:"colors"`
	Sizes       []string `json:"sizes"`
	Description *string  `json:"description"`
}

// MarshalJSON always emits list fields as arrays, never null
func (p Product) MarshalJSON() ([]byte, error) {
	type product Product
	out := product(p)
	out.Colors = nonNil(out.Colors)
	out.Sizes = nonNil(out.Sizes)
	return json.Marshal(out)
}

// ProfileParseFailedSummary marks a profile built from an unparseable model response
const ProfileParseFailedSummary = "Could not parse style profile"

// StyleProfile represents extracted style preferences from reference images
type StyleProfile struct {
	ColorPalette    []string `json:"color_palette"`
	PreferredStyles []string `json:"preferred_styles"`
	Silhouettes     []string `json:"silhouettes"`
	Patterns        []string `json:"patterns"`
	Materials       []string `json:"materials"`
	Aesthetics      []string `json:"aesthetics"`
	Avoid           []string `json:"avoid"`
	Summary         string   `json:"summary"`
}

// MarshalJSON always emits descriptor lists as arrays, never null
func (s StyleProfile) MarshalJSON() ([]byte, error) {
	type profile StyleProfile
	out := profile(s)
	out.ColorPalette = nonNil(out.ColorPalette)
	out.PreferredStyles = nonNil(out.PreferredStyles)
	out.Silhouettes = nonNil(out.Silhouettes)
	out.Patterns = nonNil(out.Patterns)
	out.Materials = nonNil(out.Materials)
	out.Aesthetics = nonNil(out.Aesthetics)
	out.Avoid = nonNil(out.Avoid)
	return json.Marshal(out)
}

// ParseFailed reports whether the profile is the sentinel for an unparseable analysis
func (s StyleProfile) ParseFailed() bool {
	return s.Summary == ProfileParseFailedSummary
}

// Fingerprint is a stable hash of the profile, used to key cached match results
func (s StyleProfile) Fingerprint() string {
	data, _ := json.Marshal(s)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// MatchResult is the score of one product against one style profile
type MatchResult struct {
	Product           Product  `json:"product"`
	Score             int      `json:"score"`
	Reasoning         string   `json:"reasoning"`
	StyleNotes        string   `json:"style_notes"`
	SuggestedPairings []string `json:"suggested_pairings"`
}

// MarshalJSON always emits suggested_pairings as an array
func (m MatchResult) MarshalJSON() ([]byte, error) {
	type result MatchResult
	out := result(m)
	out.SuggestedPairings = nonNil(out.SuggestedPairings)
	return json.Marshal(out)
}

// StoreResult represents the scrape result for a single retailer
type StoreResult struct {
	StoreName string    `json:"store_name"`
	Products  []Product `json:"products"`
	Error     string    `json:"error,omitempty"`
}

// ScrapeReport is the outcome of one scrape run across retailers
type ScrapeReport struct {
	Stores   []StoreResult `json:"stores"`
	Products []Product     `json:"products"`
}

// ProductBatch is the persisted form of one scrape run
type ProductBatch struct {
	ScrapedAt     time.Time `json:"scraped_at"`
	TotalProducts int       `json:"total_products"`
	Products      []Product `json:"products"`
}

// NewProductBatch stamps a product list with its scrape time
func NewProductBatch(products []Product, scrapedAt time.Time) *ProductBatch {
	return &ProductBatch{
		ScrapedAt:     scrapedAt,
		TotalProducts: len(products),
		Products:      nonNilProducts(products),
	}
}

// Recommendations is the persisted form of one matching run
type Recommendations struct {
	GeneratedAt      time.Time     `json:"generated_at"`
	StyleSummary     string        `json:"style_summary"`
	ProductsAnalyzed int           `json:"products_analyzed"`
	MatchesFound     int           `json:"matches_found"`
	Recommendations  []MatchResult `json:"recommendations"`
}

// NewRecommendations wraps ranked match results for persistence
func NewRecommendations(profile *StyleProfile, analyzed int, results []MatchResult, generatedAt time.Time) *Recommendations {
	if results == nil {
		results = []MatchResult{}
	}
	return &Recommendations{
		GeneratedAt:      generatedAt,
		StyleSummary:     profile.Summary,
		ProductsAnalyzed: analyzed,
		MatchesFound:     len(results),
		Recommendations:  results,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilProducts(p []Product) []Product {
	if p == nil {
		return []Product{}
	}
	return p
}
