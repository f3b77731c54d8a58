// Package telegram defines the contract for a native Telegram search
// collaborator and the lead pipeline built on top of it.
//
// No concrete MTProto client ships here; callers wire one in through the
// Client interface.
package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/contact"
	"github.com/sells-group/leadscout/internal/discover"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/pacing"
	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/internal/safety"
	"github.com/sells-group/leadscout/internal/store"
)

// Entity describes a channel as reported by the Telegram API itself. IDs are
// native platform identifiers, not synthetic ones.
type Entity struct {
	ID                int64
	Username          string
	Title             string
	About             string
	ParticipantsCount int
}

// Client is the session-level Telegram contract.
type Client interface {
	// Connect establishes the session.
	Connect(ctx context.Context) error
	// SendCode requests a verification code for the phone number and returns
	// the code hash needed to complete sign-in.
	SendCode(ctx context.Context, phone string) (string, error)
	// SignIn completes authentication with the code the user received.
	SignIn(ctx context.Context, phone, codeHash, code string) error
	// SearchEntities searches channels by keyword. Implementations signal
	// server-imposed rate limits with resilience.RateLimitError.
	SearchEntities(ctx context.Context, keyword string, limit int) ([]Entity, error)
	// Close tears down the session.
	Close() error
}

// Searcher runs keyword searches against a Telegram client and persists the
// results as leads.
type Searcher struct {
	client Client
	store  store.Store
	pacer  *pacing.Pacer
	filter *safety.Filter
}

// NewSearcher creates a Searcher.
func NewSearcher(client Client, st store.Store, pacer *pacing.Pacer, filter *safety.Filter) *Searcher {
	return &Searcher{
		client: client,
		store:  st,
		pacer:  pacer,
		filter: filter,
	}
}

// Run searches for req.Keyword and returns a finite sequence of leads. The
// channel closes when the search is exhausted.
//
// A rate-limit signal suspends the run for exactly the server-stated
// duration and the search is retried exactly once. A second rate limit, or
// any other error, ends the run.
func (s *Searcher) Run(ctx context.Context, req model.DiscoveryRequest, events discover.Events, acc *discover.Accumulator) <-chan model.Lead {
	out := make(chan model.Lead)
	go func() {
		defer close(out)

		if err := s.client.Connect(ctx); err != nil {
			zap.L().Error("telegram connect failed", zap.Error(err))
			events.EmitStatus("Could not connect to Telegram")
			return
		}
		defer s.client.Close()

		entities, err := s.searchWithRetry(ctx, req, events, acc)
		if err != nil {
			zap.L().Warn("telegram search failed",
				zap.String("keyword", req.Keyword),
				zap.Error(err),
			)
			events.EmitStatus(fmt.Sprintf("Telegram search for %q failed", req.Keyword))
			return
		}

		for _, ent := range entities {
			if ctx.Err() != nil {
				return
			}
			lead, ok := s.toLead(req, ent, events, acc)
			if !ok {
				continue
			}
			if err := s.store.UpsertLead(ctx, lead); err != nil {
				zap.L().Warn("persist lead failed",
					zap.Int64("channel_id", lead.ChannelID),
					zap.Error(err),
				)
			}
			select {
			case out <- *lead:
				acc.AddFound()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// searchWithRetry issues the search, honoring the request budget. On a rate
// limit it sleeps the signaled duration and tries once more.
func (s *Searcher) searchWithRetry(ctx context.Context, req model.DiscoveryRequest, events discover.Events, acc *discover.Accumulator) ([]Entity, error) {
	if !acc.AllowRequest() {
		return nil, eris.New("telegram: request budget exhausted")
	}
	if err := s.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	entities, err := s.client.SearchEntities(ctx, req.Keyword, req.Limit)
	if err == nil {
		return entities, nil
	}

	rl, ok := resilience.AsRateLimit(err)
	if !ok {
		return nil, err
	}

	seconds := int(rl.RetryAfter / time.Second)
	zap.L().Info("rate limited, suspending",
		zap.Int("seconds", seconds),
		zap.String("keyword", req.Keyword),
	)
	events.EmitFloodWait(seconds)
	acc.AddFloodWait()
	if err := pacing.Sleep(ctx, rl.RetryAfter); err != nil {
		return nil, err
	}

	if !acc.AllowRequest() {
		return nil, eris.New("telegram: request budget exhausted")
	}
	return s.client.SearchEntities(ctx, req.Keyword, req.Limit)
}

// toLead converts an entity to a Lead. Entities without a username carry no
// stable public identity and are dropped.
func (s *Searcher) toLead(req model.DiscoveryRequest, ent Entity, events discover.Events, acc *discover.Accumulator) (*model.Lead, bool) {
	if ent.Username == "" {
		acc.AddSkipped()
		return nil, false
	}
	if req.SafeMode && !s.filter.IsSafe(ent.Title, ent.About) {
		events.EmitStatus(fmt.Sprintf("Skipping %s: flagged by safety filter", ent.Title))
		acc.AddUnsafe()
		return nil, false
	}

	title := ent.Title
	if title == "" {
		title = model.TitleUnknown
	}
	lead := &model.Lead{
		ChannelID:    ent.ID,
		Username:     ent.Username,
		Title:        title,
		CategoryTag:  req.CategoryTag,
		MembersCount: ent.ParticipantsCount,
		BioText:      ent.About,
	}
	if contacts, ok := contact.Extract(ent.About); ok {
		lead.AdminContact = contacts
	}
	return lead, true
}
