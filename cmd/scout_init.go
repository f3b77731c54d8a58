package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/config"
	"github.com/sells-group/leadscout/internal/discover"
	"github.com/sells-group/leadscout/internal/extract"
	"github.com/sells-group/leadscout/internal/pacing"
	"github.com/sells-group/leadscout/internal/safety"
	"github.com/sells-group/leadscout/internal/scout"
	"github.com/sells-group/leadscout/internal/store"
	"github.com/sells-group/leadscout/internal/telegram"
	"github.com/sells-group/leadscout/pkg/ddg"
	"github.com/sells-group/leadscout/pkg/tgstat"
)

// scoutEnv bundles the wired engine with its store for lifecycle handling.
type scoutEnv struct {
	Store store.Store
	Scout *scout.Scout
}

func (e *scoutEnv) Close() {
	_ = e.Store.Close()
}

// initScout wires clients, adapters, orchestrator, and extractor from config.
func initScout(ctx context.Context) (*scoutEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	siteOpts := []tgstat.Option{
		tgstat.WithRateLimit(cfg.Site.RequestsPerSecond),
	}
	if cfg.Site.BaseURL != "" {
		siteOpts = append(siteOpts, tgstat.WithBaseURL(cfg.Site.BaseURL))
	}
	if cfg.Site.Mirror != "" {
		siteOpts = append(siteOpts, tgstat.WithMirror(cfg.Site.Mirror))
	}
	site := tgstat.NewClient(siteOpts...)

	searchClient := ddg.NewClient(ddg.WithBaseURL(cfg.Search.BaseURL))

	slugs, err := config.LoadSlugOverrides(cfg.Site.SlugsPath)
	if err != nil {
		st.Close()
		return nil, err
	}
	terms, err := config.LoadBlocklistTerms(cfg.Safety.BlocklistPath)
	if err != nil {
		st.Close()
		return nil, err
	}
	filter := safety.New(
		safety.WithStrict(cfg.Safety.Strict),
		safety.WithExtraTerms(terms),
	)

	pacer := pacing.New(pacing.WithBounds(
		secsToDuration(cfg.Scrape.MinDelaySecs),
		secsToDuration(cfg.Scrape.MaxDelaySecs),
	))

	orch := discover.NewOrchestrator(pacer,
		discover.Stage{Adapter: discover.NewCategoryAdapter(site, slugs)},
		discover.Stage{Adapter: discover.NewRatingsAdapter(site), SkipAt: cfg.Scrape.SkipRatingsAt},
		discover.Stage{
			Adapter: discover.NewSearchAdapter(searchClient, site.BaseURL()).
				WithBroadThreshold(cfg.Search.BroadThreshold),
			SkipAt: cfg.Scrape.SkipSearchAt,
		},
		discover.Stage{Adapter: discover.NewDirectAdapter(site), SkipAt: cfg.Scrape.SkipDirectAt},
	)

	ex := extract.New(site, st, pacer, filter)
	sc := scout.New(orch, ex, st, scout.WithMaxRequests(cfg.Scrape.MaxRequests))

	return &scoutEnv{Store: st, Scout: sc}, nil
}

func secsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

// telegramEnv bundles the native-API searcher with its store.
type telegramEnv struct {
	Store    store.Store
	Searcher *telegram.Searcher
}

func (e *telegramEnv) Close() {
	_ = e.Store.Close()
}

// newTelegramClient builds the session client from credentials. The stock
// binary carries no MTProto implementation; builds that need the native
// source swap this constructor for one backed by a real session library.
var newTelegramClient = func(tc config.TelegramConfig) (telegram.Client, error) {
	return nil, eris.New("telegram: no MTProto client available in this build")
}

// initTelegramSearcher wires the native-API search path from config.
func initTelegramSearcher(ctx context.Context) (*telegramEnv, error) {
	tc := cfg.Telegram
	if tc.APIID == 0 || tc.APIHash == "" || tc.Phone == "" {
		return nil, eris.New("telegram source requires telegram.api_id, telegram.api_hash and telegram.phone")
	}

	client, err := newTelegramClient(tc)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	terms, err := config.LoadBlocklistTerms(cfg.Safety.BlocklistPath)
	if err != nil {
		st.Close()
		return nil, err
	}
	filter := safety.New(
		safety.WithStrict(cfg.Safety.Strict),
		safety.WithExtraTerms(terms),
	)
	pacer := pacing.New(pacing.WithBounds(
		secsToDuration(cfg.Scrape.MinDelaySecs),
		secsToDuration(cfg.Scrape.MaxDelaySecs),
	))

	return &telegramEnv{
		Store:    st,
		Searcher: telegram.NewSearcher(client, st, pacer, filter),
	}, nil
}
