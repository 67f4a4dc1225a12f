package feed

import (
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"style-shopper/internal/types"
)

// ExcellentScore and above get the dark badge
const ExcellentScore = 9

const dateLayout = "January 02, 2006 at 03:04 PM"

// ErrNoResults is returned when there is nothing to render
var ErrNoResults = errors.New("no results found in recommendations")

//go:embed feed.html.tmpl
var pageSource string

var page = template.Must(template.New("feed").Parse(pageSource))

// Card is one rendered recommendation
type Card struct {
	Name      string
	Price     string
	Retailer  string
	URL       string
	ImageURL  string
	Score     int
	Reasoning string
	Excellent bool
	Dots      []bool
}

// Page is the data behind the feed template
type Page struct {
	StyleSummary  string
	Count         int
	BestScore     int
	AverageScore  string
	GeneratedDate string
	Cards         []Card
}

// Stats returns the count, best score and one-decimal average of results
func Stats(results []types.MatchResult) (count, best int, average string) {
	if len(results) == 0 {
		return 0, 0, "0"
	}
	total := 0
	for _, r := range results {
		total += r.Score
		if r.Score > best {
			best = r.Score
		}
	}
	return len(results), best, fmt.Sprintf("%.1f", float64(total)/float64(len(results)))
}

// BuildPage prepares recommendations for rendering. now is used when the
// recommendations carry no generation time.
func BuildPage(recs *types.Recommendations, now time.Time) (*Page, error) {
	if recs == nil || len(recs.Recommendations) == 0 {
		return nil, ErrNoResults
	}

	generated := recs.GeneratedAt
	if generated.IsZero() {
		generated = now
	}

	p := &Page{
		StyleSummary:  recs.StyleSummary,
		GeneratedDate: generated.Format(dateLayout),
		Cards:         make([]Card, 0, len(recs.Recommendations)),
	}
	p.Count, p.BestScore, p.AverageScore = Stats(recs.Recommendations)

	for _, r := range recs.Recommendations {
		p.Cards = append(p.Cards, newCard(r))
	}
	return p, nil
}

func newCard(r types.MatchResult) Card {
	name := r.Product.Name
	if name == "" {
		name = "Unknown"
	}
	price := r.Product.Price
	if price == "" || price == "N/A" {
		price = "Price on site"
	}
	url := r.Product.URL
	if url == "" {
		url = "#"
	}

	dots := make([]bool, 10)
	for i := range dots {
		dots[i] = i < r.Score
	}

	return Card{
		Name:      name,
		Price:     price,
		Retailer:  r.Product.Retailer,
		URL:       url,
		ImageURL:  r.Product.ImageURL,
		Score:     r.Score,
		Reasoning: r.Reasoning,
		Excellent: r.Score >= ExcellentScore,
		Dots:      dots,
	}
}

// Render writes the feed page for recs to w
func Render(w io.Writer, recs *types.Recommendations, now time.Time) error {
	p, err := BuildPage(recs, now)
	if err != nil {
		return err
	}
	return page.Execute(w, p)
}

// RenderFile writes the feed page to path, creating parent directories
func RenderFile(path string, recs *types.Recommendations, now time.Time) error {
	p, err := BuildPage(recs, now)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create feed directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create feed file: %w", err)
	}
	if err := page.Execute(f, p); err != nil {
		f.Close()
		return fmt.Errorf("failed to render feed: %w", err)
	}
	return f.Close()
}
