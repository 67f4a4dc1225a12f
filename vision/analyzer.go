package vision

import (
	"context"
	"errors"
	"fmt"

	"style-shopper/internal/types"
)

// MaxStyleImages caps how many reference images go into one analysis
const MaxStyleImages = 10

var (
	// ErrNoImages is returned when Analyze is called without images
	ErrNoImages = errors.New("no images provided")
	// ErrNoReadableImages is returned when none of the supplied images could be read
	ErrNoReadableImages = errors.New("no valid images found")
)

// StyleAnalyzer builds a style profile from reference images
type StyleAnalyzer struct {
	model  Model
	logger types.Logger
}

// NewStyleAnalyzer creates a new analyzer
func NewStyleAnalyzer(model Model, logger types.Logger) *StyleAnalyzer {
	return &StyleAnalyzer{model: model, logger: logger}
}

type profilePayload struct {
	ColorPalette    stringList `json:"color_palette"`
	PreferredStyles stringList `json:"preferred_styles"`
	Silhouettes     stringList `json:"silhouettes"`
	Patterns        stringList `json:"patterns"`
	Materials       stringList `json:"materials"`
	Aesthetics      stringList `json:"aesthetics"`
	Avoid           stringList `json:"avoid"`
	Summary         string     `json:"summary"`
}

// Analyze sends up to MaxStyleImages readable images to the model in one
// request. Unreadable images are skipped. An unparseable reply yields the
// "could not parse" profile rather than an error.
func (a *StyleAnalyzer) Analyze(ctx context.Context, sources []ImageSource) (*types.StyleProfile, error) {
	if len(sources) == 0 {
		return nil, ErrNoImages
	}
	if len(sources) > MaxStyleImages {
		a.logger.Infof("Using the first %d of %d images", MaxStyleImages, len(sources))
		sources = sources[:MaxStyleImages]
	}

	images := make([]Image, 0, len(sources))
	for _, src := range sources {
		img, err := src.Load()
		if err != nil {
			a.logger.Warnf("Skipping unreadable image %s: %v", src.Name(), err)
			continue
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		return nil, ErrNoReadableImages
	}

	a.logger.Infof("Analyzing style from %d images", len(images))
	text, err := a.model.Complete(ctx, images, styleAnalysisPrompt, analysisMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("style analysis failed: %w", err)
	}

	var payload profilePayload
	if err := DecodeJSON(text, &payload); err != nil {
		a.logger.Errorf("Error parsing style profile: %v", err)
		a.logger.Debugf("Response was: %s", text)
		return &types.StyleProfile{Summary: types.ProfileParseFailedSummary}, nil
	}

	return &types.StyleProfile{
		ColorPalette:    nonNil(payload.ColorPalette),
		PreferredStyles: nonNil(payload.PreferredStyles),
		Silhouettes:     nonNil(payload.Silhouettes),
		Patterns:        nonNil(payload.Patterns),
		Materials:       nonNil(payload.Materials),
		Aesthetics:      nonNil(payload.Aesthetics),
		Avoid:           nonNil(payload.Avoid),
		Summary:         payload.Summary,
	}, nil
}

// AnalyzeDir analyzes every supported image in dir
func (a *StyleAnalyzer) AnalyzeDir(ctx context.Context, dir string) (*types.StyleProfile, error) {
	sources, err := ImagesInDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list images in %s: %w", dir, err)
	}
	return a.Analyze(ctx, sources)
}

func nonNil(l stringList) []string {
	if l == nil {
		return []string{}
	}
	return []string(l)
}
