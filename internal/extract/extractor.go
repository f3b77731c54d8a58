// Package extract fetches candidate detail pages and normalizes them into
// Lead records.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/contact"
	"github.com/sells-group/leadscout/internal/discover"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/pacing"
	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/internal/safety"
	"github.com/sells-group/leadscout/internal/store"
	"github.com/sells-group/leadscout/pkg/tgstat"
)

var subscribersRe = regexp.MustCompile(`(?i)([\d\s]+)\s+subscribers`)

// Extractor turns candidates into persisted Lead records.
type Extractor struct {
	client tgstat.Client
	store  store.Store
	pacer  *pacing.Pacer
	filter *safety.Filter
}

// New creates an Extractor.
func New(client tgstat.Client, st store.Store, pacer *pacing.Pacer, filter *safety.Filter) *Extractor {
	return &Extractor{
		client: client,
		store:  st,
		pacer:  pacer,
		filter: filter,
	}
}

// Run processes candidates sequentially, bounded by req.Limit, and returns a
// finite one-shot sequence of leads. The channel closes when the run ends; a
// fresh run must be started to re-discover. Persistence failures are logged
// and do not withhold the in-memory lead from the caller.
func (e *Extractor) Run(ctx context.Context, req model.DiscoveryRequest, candidates []model.Candidate, events discover.Events, acc *discover.Accumulator) <-chan model.Lead {
	out := make(chan model.Lead)
	go func() {
		defer close(out)
		produced := 0
		for _, cand := range candidates {
			// Cancellation is checked between candidates; a cancelled run
			// simply stops yielding.
			if ctx.Err() != nil {
				return
			}
			if req.Limit > 0 && produced >= req.Limit {
				return
			}
			if !acc.AllowRequest() {
				events.EmitStatus("Max requests limit reached. Stopping.")
				return
			}

			events.EmitStatus(fmt.Sprintf("Processing %s...", cand.Locator))
			if err := e.pacer.Wait(ctx); err != nil {
				return
			}

			lead, ok := e.extractOne(ctx, req, cand, events, acc)
			if !ok {
				continue
			}

			if err := e.store.UpsertLead(ctx, lead); err != nil {
				// Storage is a side effect, not a precondition of discovery.
				zap.L().Warn("persist lead failed",
					zap.Int64("channel_id", lead.ChannelID),
					zap.Error(err),
				)
				events.EmitStatus(fmt.Sprintf("Could not persist %s", lead.Title))
			}

			select {
			case out <- *lead:
				produced++
				acc.AddFound()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// extractOne fetches and normalizes a single candidate. A fetch failure or a
// missing mandatory field discards the candidate without retry.
func (e *Extractor) extractOne(ctx context.Context, req model.DiscoveryRequest, cand model.Candidate, events discover.Events, acc *discover.Accumulator) (*model.Lead, bool) {
	page, err := e.client.FetchChannel(ctx, cand.Locator)
	if err != nil {
		// Transient failures are expected noise; anything else deserves a
		// louder record even though the candidate is skipped either way.
		if resilience.IsTransient(err) {
			zap.L().Debug("candidate fetch failed",
				zap.String("locator", cand.Locator),
				zap.Error(err),
			)
		} else {
			zap.L().Warn("candidate fetch failed",
				zap.String("locator", cand.Locator),
				zap.Error(err),
			)
		}
		acc.AddSkipped()
		return nil, false
	}

	title := page.Heading
	if title == "" {
		title = page.MetaTitle
	}
	if title == "" {
		title = model.TitleUnknown
	}

	username := usernameFromLocator(cand.Locator)
	if username == "" {
		username = usernameFromTMeLink(page.TMeLink)
	}
	if username == "" {
		// Username is mandatory for identity; no username, no lead.
		acc.AddSkipped()
		return nil, false
	}

	bio := page.MetaDescription

	if req.SafeMode && !e.filter.IsSafe(title, bio) {
		events.EmitStatus(fmt.Sprintf("Skipping %s: flagged by safety filter", title))
		acc.AddUnsafe()
		return nil, false
	}

	lead := &model.Lead{
		ChannelID:    model.SyntheticChannelID(username),
		Username:     username,
		Title:        title,
		CategoryTag:  req.CategoryTag,
		MembersCount: parseMembersCount(page.BodyText),
		BioText:      bio,
	}
	if contacts, ok := contact.Extract(bio); ok {
		lead.AdminContact = contacts
	}
	return lead, true
}

// usernameFromLocator pulls the handle out of a /channel/@name locator.
func usernameFromLocator(locator string) string {
	i := strings.LastIndex(locator, "@")
	if i < 0 {
		return ""
	}
	name := locator[i+1:]
	if j := strings.IndexByte(name, '/'); j >= 0 {
		name = name[:j]
	}
	return name
}

// usernameFromTMeLink pulls the handle out of a t.me link.
func usernameFromTMeLink(href string) string {
	i := strings.Index(href, "t.me/")
	if i < 0 {
		return ""
	}
	name := strings.Trim(href[i+len("t.me/"):], "/")
	name = strings.TrimPrefix(name, "@")
	if j := strings.IndexAny(name, "/?#"); j >= 0 {
		name = name[:j]
	}
	return name
}

// parseMembersCount takes the first "<number> subscribers" match, with
// locale grouping spaces stripped. Unknown counts are 0, never negative.
func parseMembersCount(text string) int {
	m := subscribersRe.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	digits := strings.ReplaceAll(strings.TrimSpace(m[1]), " ", "")
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
