package discover

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/pacing"
	"github.com/sells-group/leadscout/internal/resilience"
)

// Default stage-skip thresholds: a later stage is skipped once this many
// candidates have accumulated. Cheaper, less detectable stages run first, so
// the thresholds directly bound externally visible request volume.
const (
	DefaultSkipRatingsAt = 5
	DefaultSkipSearchAt  = 5
	DefaultSkipDirectAt  = 3
)

// Stage pairs an adapter with its skip threshold. SkipAt <= 0 means the
// stage always runs.
type Stage struct {
	Adapter Adapter
	SkipAt  int
}

// Orchestrator runs discovery stages in fixed priority order, merging
// candidates into a single set keyed by canonical locator.
type Orchestrator struct {
	stages []Stage
	pacer  *pacing.Pacer
}

// NewOrchestrator creates an Orchestrator over the given stages.
func NewOrchestrator(pacer *pacing.Pacer, stages ...Stage) *Orchestrator {
	return &Orchestrator{stages: stages, pacer: pacer}
}

// Discover executes the stage chain for one request and returns the merged
// candidate set in first-seen order. An empty result is a normal terminal
// state, not a failure. Only context cancellation returns an error.
func (o *Orchestrator) Discover(ctx context.Context, req model.DiscoveryRequest, events Events, acc *Accumulator) ([]model.Candidate, error) {
	runID := uuid.New().String()
	log := zap.L().With(
		zap.String("run_id", runID),
		zap.String("keyword", req.Keyword),
	)

	var (
		merged []model.Candidate
		seen   = map[string]struct{}{}
	)

	for _, stage := range o.stages {
		if err := ctx.Err(); err != nil {
			return merged, err
		}

		name := stage.Adapter.Name()
		if stage.SkipAt > 0 && len(merged) >= stage.SkipAt {
			log.Debug("stage skipped, threshold met",
				zap.String("stage", name),
				zap.Int("candidates", len(merged)),
			)
			continue
		}
		if !acc.AllowRequest() {
			events.EmitStatus("Max requests limit reached. Stopping.")
			log.Warn("request budget exhausted", zap.String("stage", name))
			break
		}

		events.EmitStatus(fmt.Sprintf("Searching %q via %s...", req.Keyword, name))
		if err := o.pacer.Wait(ctx); err != nil {
			return merged, err
		}

		candidates, err := stage.Adapter.Discover(ctx, req.Keyword, req.Limit)
		if err != nil {
			// A failed adapter contributes nothing; the run continues.
			events.EmitStatus(fmt.Sprintf("Source %s unavailable, trying next", name))
			log.Warn("stage failed",
				zap.String("stage", name),
				zap.Bool("transient", resilience.IsTransient(err)),
				zap.Error(err),
			)
			continue
		}

		added := 0
		for _, c := range candidates {
			if _, dup := seen[c.Locator]; dup {
				continue
			}
			seen[c.Locator] = struct{}{}
			merged = append(merged, c)
			added++
		}
		log.Info("stage complete",
			zap.String("stage", name),
			zap.Int("added", added),
			zap.Int("total", len(merged)),
		)
	}

	if len(merged) == 0 {
		events.EmitStatus(fmt.Sprintf("No results found for %q via any strategy", req.Keyword))
	} else {
		events.EmitStatus(fmt.Sprintf("Found %d potential channels. Extracting details...", len(merged)))
	}
	return merged, nil
}
