package discover

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/pkg/tgstat"
)

// defaultCategorySlugs maps normalized keywords to listing-site category
// slugs. A keyword with no mapping yields nothing; that is not an error.
var defaultCategorySlugs = map[string]string{
	"crypto":         "crypto",
	"cryptocurrency": "crypto",
	"bitcoin":        "crypto",
	"trading":        "trading",
	"forex":          "trading",
	"investment":     "investments",
	"investments":    "investments",
	"news":           "news",
	"tech":           "technologies",
	"technology":     "technologies",
	"gaming":         "games",
	"games":          "games",
	"education":      "education",
	"business":       "business",
	"marketing":      "marketing",
	"music":          "music",
	"sport":          "sport",
	"sports":         "sport",
}

// CategoryAdapter maps a keyword to a fixed category slug and harvests one
// listing page. Cheapest and least detectable source, so it runs first.
type CategoryAdapter struct {
	client tgstat.Client
	slugs  map[string]string
}

// NewCategoryAdapter creates a CategoryAdapter. A nil slug table uses the
// built-in mapping.
func NewCategoryAdapter(client tgstat.Client, slugs map[string]string) *CategoryAdapter {
	if slugs == nil {
		slugs = defaultCategorySlugs
	}
	return &CategoryAdapter{client: client, slugs: slugs}
}

func (a *CategoryAdapter) Name() string { return "category" }

func (a *CategoryAdapter) Discover(ctx context.Context, keyword string, limit int) ([]model.Candidate, error) {
	slug, ok := a.slugs[strings.ToLower(strings.TrimSpace(keyword))]
	if !ok {
		zap.L().Debug("category: no slug mapping", zap.String("keyword", keyword))
		return nil, nil
	}

	links, err := a.client.CategoryPage(ctx, slug)
	if err != nil {
		return nil, err
	}
	return toCandidates(links, a.Name(), limit), nil
}

// toCandidates converts canonical URLs to Candidates, truncating at limit.
func toCandidates(links []string, source string, limit int) []model.Candidate {
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}
	out := make([]model.Candidate, 0, len(links))
	for _, l := range links {
		out = append(out, model.Candidate{Locator: l, Source: source})
	}
	return out
}
