package extract

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/discover"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/pacing"
	"github.com/sells-group/leadscout/internal/safety"
	"github.com/sells-group/leadscout/pkg/tgstat"
)

type fakeSite struct {
	pages   map[string]*tgstat.ChannelPage
	fetched []string
}

func (f *fakeSite) CategoryPage(ctx context.Context, slug string) ([]string, error) {
	return nil, nil
}

func (f *fakeSite) RatingsPage(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeSite) SearchChannels(ctx context.Context, keyword string, limit int) ([]string, error) {
	return nil, nil
}

func (f *fakeSite) FetchChannel(ctx context.Context, channelURL string) (*tgstat.ChannelPage, error) {
	f.fetched = append(f.fetched, channelURL)
	page, ok := f.pages[channelURL]
	if !ok {
		return nil, errors.New("fetch: not found")
	}
	return page, nil
}

func (f *fakeSite) BaseURL() string { return "https://tgstat.com" }

type memStore struct {
	mu      sync.Mutex
	leads   map[int64]model.Lead
	upserts int
	failAll bool
}

func newMemStore() *memStore {
	return &memStore{leads: make(map[int64]model.Lead)}
}

func (m *memStore) UpsertLead(ctx context.Context, lead *model.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.failAll {
		return errors.New("store: unavailable")
	}
	lead.ScrapedDate = time.Now().UTC()
	m.leads[lead.ChannelID] = *lead
	return nil
}

func (m *memStore) ListLeads(ctx context.Context) ([]model.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Lead, 0, len(m.leads))
	for _, l := range m.leads {
		out = append(out, l)
	}
	return out, nil
}

func (m *memStore) CountLeads(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.leads), nil
}

func (m *memStore) Migrate(ctx context.Context) error { return nil }

func (m *memStore) Close() error { return nil }

func newTestExtractor(site *fakeSite, st *memStore) *Extractor {
	pacer := pacing.New(pacing.WithBounds(0, time.Millisecond))
	return New(site, st, pacer, safety.New())
}

func collect(t *testing.T, ch <-chan model.Lead) []model.Lead {
	t.Helper()
	var out []model.Lead
	for lead := range ch {
		out = append(out, lead)
	}
	return out
}

func cryptoPage(url string) *tgstat.ChannelPage {
	return &tgstat.ChannelPage{
		URL:             url,
		Heading:         "Crypto Signals Daily",
		MetaTitle:       "Crypto Signals Daily on Telegram",
		MetaDescription: "Market analysis every morning. Ads: @cs_admin",
		TMeLink:         "https://t.me/crypto_signals",
		BodyText:        "Crypto Signals Daily 12 400 subscribers open in app",
	}
}

func TestRunExtractsNormalizedLead(t *testing.T) {
	url := "https://tgstat.com/channel/@crypto_signals"
	site := &fakeSite{pages: map[string]*tgstat.ChannelPage{url: cryptoPage(url)}}
	st := newMemStore()
	ex := newTestExtractor(site, st)

	req := model.DiscoveryRequest{Keyword: "crypto", Limit: 10, CategoryTag: "Crypto"}
	acc := discover.NewAccumulator(0)
	leads := collect(t, ex.Run(context.Background(), req, []model.Candidate{
		{Locator: url, Source: "category"},
	}, discover.Events{}, acc))

	require.Len(t, leads, 1)
	lead := leads[0]
	assert.Equal(t, "crypto_signals", lead.Username)
	assert.Equal(t, "Crypto Signals Daily", lead.Title)
	assert.Equal(t, "Crypto", lead.CategoryTag)
	assert.Equal(t, 12400, lead.MembersCount)
	assert.Equal(t, "Market analysis every morning. Ads: @cs_admin", lead.BioText)
	assert.Equal(t, "@cs_admin", lead.AdminContact)
	assert.Equal(t, model.SyntheticChannelID("crypto_signals"), lead.ChannelID)

	stored, err := st.ListLeads(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.False(t, stored[0].ScrapedDate.IsZero())
}

func TestRunTitleFallbackChain(t *testing.T) {
	url := "https://tgstat.com/channel/@quiet_channel"
	site := &fakeSite{pages: map[string]*tgstat.ChannelPage{url: {
		URL:       url,
		MetaTitle: "Quiet Channel",
	}}}
	ex := newTestExtractor(site, newMemStore())

	leads := collect(t, ex.Run(context.Background(), model.DiscoveryRequest{Limit: 5}, []model.Candidate{
		{Locator: url, Source: "search"},
	}, discover.Events{}, discover.NewAccumulator(0)))

	require.Len(t, leads, 1)
	assert.Equal(t, "Quiet Channel", leads[0].Title)

	url2 := "https://tgstat.com/channel/@nameless"
	site.pages[url2] = &tgstat.ChannelPage{URL: url2}
	leads = collect(t, ex.Run(context.Background(), model.DiscoveryRequest{Limit: 5}, []model.Candidate{
		{Locator: url2, Source: "search"},
	}, discover.Events{}, discover.NewAccumulator(0)))

	require.Len(t, leads, 1)
	assert.Equal(t, model.TitleUnknown, leads[0].Title)
}

func TestRunUsernameFromTMeLinkWhenLocatorHasNone(t *testing.T) {
	url := "https://tgstat.com/channel/crypto-signals-daily"
	site := &fakeSite{pages: map[string]*tgstat.ChannelPage{url: {
		URL:     url,
		Heading: "Crypto Signals Daily",
		TMeLink: "https://t.me/crypto_signals",
	}}}
	ex := newTestExtractor(site, newMemStore())

	leads := collect(t, ex.Run(context.Background(), model.DiscoveryRequest{Limit: 5}, []model.Candidate{
		{Locator: url, Source: "ratings"},
	}, discover.Events{}, discover.NewAccumulator(0)))

	require.Len(t, leads, 1)
	assert.Equal(t, "crypto_signals", leads[0].Username)
}

func TestRunDiscardsCandidateWithoutUsername(t *testing.T) {
	url := "https://tgstat.com/channel/mystery"
	site := &fakeSite{pages: map[string]*tgstat.ChannelPage{url: {
		URL:     url,
		Heading: "Mystery Channel",
	}}}
	st := newMemStore()
	ex := newTestExtractor(site, st)

	acc := discover.NewAccumulator(0)
	leads := collect(t, ex.Run(context.Background(), model.DiscoveryRequest{Limit: 5}, []model.Candidate{
		{Locator: url, Source: "ratings"},
	}, discover.Events{}, acc))

	assert.Empty(t, leads)
	assert.Zero(t, st.upserts)
	_, _, _, _, skipped := acc.Snapshot()
	assert.Equal(t, 1, skipped)
}

func TestRunSkipsFailedFetchWithoutRetry(t *testing.T) {
	good := "https://tgstat.com/channel/@good_one1"
	site := &fakeSite{pages: map[string]*tgstat.ChannelPage{good: cryptoPage(good)}}
	ex := newTestExtractor(site, newMemStore())

	leads := collect(t, ex.Run(context.Background(), model.DiscoveryRequest{Limit: 5}, []model.Candidate{
		{Locator: "https://tgstat.com/channel/@gone_now1", Source: "category"},
		{Locator: good, Source: "category"},
	}, discover.Events{}, discover.NewAccumulator(0)))

	require.Len(t, leads, 1)
	assert.Equal(t, model.SyntheticChannelID("crypto_signals"), leads[0].ChannelID)
	// One attempt per candidate, failures included.
	assert.Equal(t, []string{"https://tgstat.com/channel/@gone_now1", good}, site.fetched)
}

func TestRunSafeModeFiltersFlaggedChannels(t *testing.T) {
	flagged := "https://tgstat.com/channel/@casino_wins"
	clean := "https://tgstat.com/channel/@crypto_signals"
	site := &fakeSite{pages: map[string]*tgstat.ChannelPage{
		flagged: {
			URL:             flagged,
			Heading:         "Casino Wins",
			MetaDescription: "Best casino bonuses and betting tips",
		},
		clean: cryptoPage(clean),
	}}
	st := newMemStore()
	ex := newTestExtractor(site, st)

	acc := discover.NewAccumulator(0)
	leads := collect(t, ex.Run(context.Background(), model.DiscoveryRequest{Limit: 5, SafeMode: true}, []model.Candidate{
		{Locator: flagged, Source: "category"},
		{Locator: clean, Source: "category"},
	}, discover.Events{}, acc))

	require.Len(t, leads, 1)
	assert.Equal(t, "crypto_signals", leads[0].Username)
	_, _, found, unsafe, _ := acc.Snapshot()
	assert.Equal(t, 1, found)
	assert.Equal(t, 1, unsafe)
	assert.Equal(t, 1, st.upserts) // flagged channel never reaches the store
}

func TestRunSafeModeOffKeepsFlaggedChannels(t *testing.T) {
	flagged := "https://tgstat.com/channel/@casino_wins"
	site := &fakeSite{pages: map[string]*tgstat.ChannelPage{flagged: {
		URL:             flagged,
		Heading:         "Casino Wins",
		MetaDescription: "Best casino bonuses and betting tips",
	}}}
	ex := newTestExtractor(site, newMemStore())

	leads := collect(t, ex.Run(context.Background(), model.DiscoveryRequest{Limit: 5}, []model.Candidate{
		{Locator: flagged, Source: "category"},
	}, discover.Events{}, discover.NewAccumulator(0)))

	require.Len(t, leads, 1)
	assert.Equal(t, "Casino Wins", leads[0].Title)
}

func TestRunHonorsLimit(t *testing.T) {
	site := &fakeSite{pages: map[string]*tgstat.ChannelPage{}}
	var cands []model.Candidate
	for _, u := range []string{"@alpha_one", "@bravo_two", "@charlie_three"} {
		url := "https://tgstat.com/channel/" + u
		site.pages[url] = &tgstat.ChannelPage{URL: url, Heading: u}
		cands = append(cands, model.Candidate{Locator: url, Source: "category"})
	}
	ex := newTestExtractor(site, newMemStore())

	leads := collect(t, ex.Run(context.Background(), model.DiscoveryRequest{Limit: 2}, cands, discover.Events{}, discover.NewAccumulator(0)))

	assert.Len(t, leads, 2)
	assert.Len(t, site.fetched, 2)
}

func TestRunStopsAtRequestBudget(t *testing.T) {
	site := &fakeSite{pages: map[string]*tgstat.ChannelPage{}}
	var cands []model.Candidate
	for _, u := range []string{"@alpha_one", "@bravo_two", "@charlie_three"} {
		url := "https://tgstat.com/channel/" + u
		site.pages[url] = &tgstat.ChannelPage{URL: url, Heading: u}
		cands = append(cands, model.Candidate{Locator: url, Source: "category"})
	}
	ex := newTestExtractor(site, newMemStore())

	leads := collect(t, ex.Run(context.Background(), model.DiscoveryRequest{Limit: 10}, cands, discover.Events{}, discover.NewAccumulator(1)))

	assert.Len(t, leads, 1)
}

func TestRunYieldsLeadDespitePersistFailure(t *testing.T) {
	url := "https://tgstat.com/channel/@crypto_signals"
	site := &fakeSite{pages: map[string]*tgstat.ChannelPage{url: cryptoPage(url)}}
	st := newMemStore()
	st.failAll = true
	ex := newTestExtractor(site, st)

	leads := collect(t, ex.Run(context.Background(), model.DiscoveryRequest{Limit: 5}, []model.Candidate{
		{Locator: url, Source: "category"},
	}, discover.Events{}, discover.NewAccumulator(0)))

	require.Len(t, leads, 1)
	assert.Equal(t, 1, st.upserts)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	url := "https://tgstat.com/channel/@crypto_signals"
	site := &fakeSite{pages: map[string]*tgstat.ChannelPage{url: cryptoPage(url)}}
	ex := newTestExtractor(site, newMemStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	leads := collect(t, ex.Run(ctx, model.DiscoveryRequest{Limit: 5}, []model.Candidate{
		{Locator: url, Source: "category"},
	}, discover.Events{}, discover.NewAccumulator(0)))

	assert.Empty(t, leads)
	assert.Empty(t, site.fetched)
}

func TestParseMembersCount(t *testing.T) {
	assert.Equal(t, 12400, parseMembersCount("Crypto Signals 12 400 subscribers open"))
	assert.Equal(t, 980, parseMembersCount("small channel 980 Subscribers"))
	assert.Zero(t, parseMembersCount("no membership info here"))
	assert.Zero(t, parseMembersCount(""))
}
