package discover

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/pkg/ddg"
	"github.com/sells-group/leadscout/pkg/tgstat"
)

// defaultBroadThreshold is the narrow-query result count below which the
// broader fallback query is issued.
const defaultBroadThreshold = 5

// SearchAdapter discovers channels through a site-scoped web search. A
// narrow `site:` query runs first, widened only when it comes back sparse.
type SearchAdapter struct {
	search         ddg.Client
	host           string // listing-site host, e.g. tgstat.com
	broadThreshold int
}

// NewSearchAdapter creates a SearchAdapter scoped to the given listing-site
// base URL.
func NewSearchAdapter(search ddg.Client, siteBaseURL string) *SearchAdapter {
	host := siteBaseURL
	if u, err := url.Parse(siteBaseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return &SearchAdapter{
		search:         search,
		host:           host,
		broadThreshold: defaultBroadThreshold,
	}
}

// WithBroadThreshold overrides the sparse-result threshold.
func (a *SearchAdapter) WithBroadThreshold(n int) *SearchAdapter {
	if n > 0 {
		a.broadThreshold = n
	}
	return a
}

func (a *SearchAdapter) Name() string { return "search" }

func (a *SearchAdapter) Discover(ctx context.Context, keyword string, limit int) ([]model.Candidate, error) {
	narrow := fmt.Sprintf("site:%s/channel %q", a.host, keyword)
	links := a.query(ctx, narrow, limit)

	if len(links) < a.broadThreshold {
		siteName := strings.TrimSuffix(a.host, ".com")
		if i := strings.LastIndex(siteName, "."); i >= 0 {
			siteName = siteName[:i]
		}
		broad := fmt.Sprintf("%s %q channel", siteName, keyword)
		zap.L().Debug("search: narrow query sparse, widening",
			zap.Int("narrow_results", len(links)),
			zap.String("broad_query", broad),
		)
		for _, l := range a.query(ctx, broad, limit) {
			links = appendUnique(links, l)
		}
	}

	return toCandidates(links, a.Name(), limit), nil
}

// query runs one search, keeping only canonical channel detail URLs on the
// scoped host. Search failures are empty results, not errors.
func (a *SearchAdapter) query(ctx context.Context, q string, limit int) []string {
	results, err := a.search.Search(ctx, q, limit)
	if err != nil {
		zap.L().Warn("search: query failed", zap.String("query", q), zap.Error(err))
		return nil
	}

	var links []string
	for _, r := range results {
		u, err := url.Parse(r.URL)
		if err != nil || u.Host != a.host {
			continue
		}
		if !strings.Contains(u.Path, "/channel/") {
			continue
		}
		links = appendUnique(links, tgstat.CanonicalChannelURL(r.URL))
	}
	return links
}

func appendUnique(links []string, l string) []string {
	for _, have := range links {
		if have == l {
			return links
		}
	}
	return append(links, l)
}
