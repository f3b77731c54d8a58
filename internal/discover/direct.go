package discover

import (
	"context"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/pkg/tgstat"
)

// DirectAdapter is the last-resort strategy: it drives the listing site's
// own search form (token GET then keyword POST). Most visible to the
// upstream, so it only runs when earlier stages come back sparse.
type DirectAdapter struct {
	client tgstat.Client
}

// NewDirectAdapter creates a DirectAdapter.
func NewDirectAdapter(client tgstat.Client) *DirectAdapter {
	return &DirectAdapter{client: client}
}

func (a *DirectAdapter) Name() string { return "direct" }

func (a *DirectAdapter) Discover(ctx context.Context, keyword string, limit int) ([]model.Candidate, error) {
	links, err := a.client.SearchChannels(ctx, keyword, limit)
	if err != nil {
		return nil, err
	}
	return toCandidates(links, a.Name(), limit), nil
}
