// Package scout is the caller-facing surface of the engine: it chains
// discovery and extraction into one run and exposes read access to the
// collected leads.
package scout

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/discover"
	"github.com/sells-group/leadscout/internal/extract"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
)

// Scout wires the discovery orchestrator and the extractor over a shared
// store.
type Scout struct {
	orchestrator *discover.Orchestrator
	extractor    *extract.Extractor
	store        store.Store
	maxRequests  int
}

// Option configures a Scout.
type Option func(*Scout)

// WithMaxRequests caps the number of outbound requests per run. Zero or
// negative means unlimited.
func WithMaxRequests(n int) Option {
	return func(s *Scout) { s.maxRequests = n }
}

// New creates a Scout.
func New(orch *discover.Orchestrator, ex *extract.Extractor, st store.Store, opts ...Option) *Scout {
	s := &Scout{
		orchestrator: orch,
		extractor:    ex,
		store:        st,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one full discovery-and-extraction pass for the request. The
// returned channel is a finite one-shot sequence: it closes when the run is
// exhausted, and a new call starts a fresh pass. The Accumulator tracks run
// counters and may be read after the channel closes.
func (s *Scout) Run(ctx context.Context, req model.DiscoveryRequest, events discover.Events) (<-chan model.Lead, *discover.Accumulator) {
	acc := discover.NewAccumulator(s.maxRequests)
	out := make(chan model.Lead)

	go func() {
		defer close(out)

		candidates, err := s.orchestrator.Discover(ctx, req, events, acc)
		if err != nil {
			zap.L().Error("discovery failed",
				zap.String("keyword", req.Keyword),
				zap.Error(err),
			)
			return
		}
		if len(candidates) == 0 {
			return
		}

		for lead := range s.extractor.Run(ctx, req, candidates, events, acc) {
			select {
			case out <- lead:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, acc
}

// ListAll returns every stored lead, newest first.
func (s *Scout) ListAll(ctx context.Context) ([]model.Lead, error) {
	return s.store.ListLeads(ctx)
}

// Count returns the number of stored leads.
func (s *Scout) Count(ctx context.Context) (int, error) {
	return s.store.CountLeads(ctx)
}
