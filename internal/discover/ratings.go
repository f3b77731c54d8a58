package discover

import (
	"context"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/pkg/tgstat"
)

// RatingsAdapter harvests the global top-channels listing. It is keyword
// independent and serves as a volume backstop when the category match is
// absent or sparse.
type RatingsAdapter struct {
	client tgstat.Client
}

// NewRatingsAdapter creates a RatingsAdapter.
func NewRatingsAdapter(client tgstat.Client) *RatingsAdapter {
	return &RatingsAdapter{client: client}
}

func (a *RatingsAdapter) Name() string { return "ratings" }

func (a *RatingsAdapter) Discover(ctx context.Context, _ string, limit int) ([]model.Candidate, error) {
	links, err := a.client.RatingsPage(ctx)
	if err != nil {
		return nil, err
	}
	return toCandidates(links, a.Name(), limit), nil
}
