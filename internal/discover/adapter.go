// Package discover turns external data sources into candidate channel
// references and orchestrates them in a fixed priority order.
package discover

import (
	"context"

	"github.com/sells-group/leadscout/internal/model"
)

// Adapter is a single source-specific discovery strategy. Implementations
// must treat transient upstream failures as their own concern: the
// orchestrator logs a returned error and continues with the next stage, so
// an error never aborts a run.
type Adapter interface {
	Name() string
	Discover(ctx context.Context, keyword string, limit int) ([]model.Candidate, error)
}
