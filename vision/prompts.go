package vision

import (
	"fmt"
	"strings"

	"style-shopper/internal/types"
)

const (
	analysisMaxTokens = 1500
	matchMaxTokens    = 500
)

const styleAnalysisPrompt = `Analyze these style reference images to create a comprehensive style profile.
These images represent the user's personal style preferences - they may be outfit photos,
fashion inspiration, or items they own and love.

Extract and return a JSON object with these fields:
{
    "color_palette": ["list of preferred colors, be specific (e.g., 'warm beige', 'navy blue', 'forest green')"],
    "preferred_styles": ["list of style categories (e.g., 'French minimalist', 'bohemian', 'classic tailored')"],
    "silhouettes": ["preferred fits and shapes (e.g., 'high-waisted', 'oversized blazers', 'midi length')"],
    "patterns": ["preferred patterns (e.g., 'subtle stripes', 'florals', 'solid colors')"],
    "materials": ["preferred fabrics (e.g., 'linen', 'cashmere', 'silk')"],
    "aesthetics": ["overall aesthetic descriptors (e.g., 'effortless chic', 'understated elegance')"],
    "avoid": ["styles/elements that seem absent or contrary to the aesthetic"],
    "summary": "A 2-3 sentence description of the overall style identity"
}

Return ONLY the JSON object, no other text.`

const productMatchTemplate = `Analyze this product image and determine how well it matches the following style profile:

%s

Product Info:
- Name: %s
- Price: %s
- Colors: %s

Return a JSON object with:
{
    "score": <1-10 integer, where 10 is perfect match>,
    "reasoning": "<2-3 sentences explaining the score>",
    "style_notes": "<how this piece fits or doesn't fit the aesthetic>",
    "suggested_pairings": ["<2-3 items from their wardrobe this would pair with>"]
}

Be honest and critical. A score of 7+ means it's a strong match worth buying.
A score of 5-6 means it could work but isn't ideal.
Below 5 means it doesn't align well with the style profile.

Return ONLY the JSON object.`

// ProfileContext renders the non-empty profile fields as prompt lines
func ProfileContext(p *types.StyleProfile) string {
	var parts []string
	add := func(label string, values []string) {
		if len(values) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", label, strings.Join(values, ", ")))
		}
	}

	if p.Summary != "" {
		parts = append(parts, "Style Summary: "+p.Summary)
	}
	add("Preferred Colors", p.ColorPalette)
	add("Style Categories", p.PreferredStyles)
	add("Preferred Silhouettes", p.Silhouettes)
	add("Preferred Patterns", p.Patterns)
	add("Preferred Materials", p.Materials)
	add("Aesthetic", p.Aesthetics)
	add("Tends to Avoid", p.Avoid)

	return strings.Join(parts, "\n")
}

func productMatchPrompt(profileContext string, product types.Product) string {
	colors := "Not specified"
	if len(product.Colors) > 0 {
		colors = strings.Join(product.Colors, ", ")
	}
	return fmt.Sprintf(productMatchTemplate, profileContext, product.Name, product.Price, colors)
}
