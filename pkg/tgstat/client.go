// Package tgstat provides an HTTP client for the tgstat.com channel listing
// site: category and ratings listings, the channel search form, and channel
// detail pages. HTML structure is treated as best-effort; callers must
// tolerate empty results when the markup drifts.
package tgstat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscout/internal/resilience"
)

const (
	defaultBaseURL = "https://tgstat.com"
	euBaseURL      = "https://eu.tgstat.com"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// csrfField is the anti-forgery token input embedded in the search form.
	csrfField = "_tgstat_csrk"

	maxBodySize = 2 * 1024 * 1024
)

// Client defines the listing-site operations used by discovery.
type Client interface {
	// CategoryPage fetches a category listing and returns canonical channel
	// detail URLs found on it.
	CategoryPage(ctx context.Context, slug string) ([]string, error)
	// RatingsPage fetches the global top-channels listing.
	RatingsPage(ctx context.Context) ([]string, error)
	// SearchChannels performs the two-step form search: GET to obtain the
	// anti-forgery token, then POST the keyword with it. Returns up to limit
	// canonical channel detail URLs.
	SearchChannels(ctx context.Context, keyword string, limit int) ([]string, error)
	// FetchChannel fetches and parses a channel detail page.
	FetchChannel(ctx context.Context, channelURL string) (*ChannelPage, error)
	// BaseURL returns the resolved base URL of the active mirror.
	BaseURL() string
}

// ChannelPage holds the raw parsed fields of a channel detail page. Field
// normalization (fallbacks, defaults) is the caller's concern.
type ChannelPage struct {
	URL             string
	Heading         string // first <h1> text
	MetaTitle       string // og:title content
	MetaDescription string // meta name=description content
	TMeLink         string // first t.me link href, if any
	BodyText        string // whitespace-collapsed page text
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(base string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithMirror selects a regional mirror by name ("eu" or default).
func WithMirror(mirror string) Option {
	return func(c *httpClient) {
		if mirror == "eu" {
			c.baseURL = euBaseURL
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outbound requests per second to the site.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a tgstat client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(0.5), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) BaseURL() string {
	return c.baseURL
}

// statusError builds the error for a non-OK response, marking server-side
// and throttling statuses as transient so callers can skip past them.
func statusError(err error, status int) error {
	if resilience.IsTransientHTTPStatus(status) {
		return resilience.NewTransientError(err, status)
	}
	return err
}

// headers mimic a desktop browser. X-Requested-With makes the search form
// return its JSON-wrapped fragment instead of a redirect.
func (c *httpClient) setHeaders(req *http.Request, xhr bool) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Referer", c.baseURL+"/")
	if xhr {
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}
}

func (c *httpClient) get(ctx context.Context, path string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "tgstat: create request")
	}
	c.setHeaders(req, false)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, resilience.NewTransientError(eris.Wrap(err, "tgstat: fetch"), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "tgstat: read body")
	}
	return body, resp.StatusCode, nil
}

func (c *httpClient) CategoryPage(ctx context.Context, slug string) ([]string, error) {
	body, status, err := c.get(ctx, "/tag/"+url.PathEscape(slug))
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, statusError(eris.Errorf("tgstat: category %s: status %d", slug, status), status)
	}
	return extractChannelLinks(body, c.baseURL), nil
}

func (c *httpClient) RatingsPage(ctx context.Context) ([]string, error) {
	body, status, err := c.get(ctx, "/ratings")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, statusError(eris.Errorf("tgstat: ratings: status %d", status), status)
	}
	return extractChannelLinks(body, c.baseURL), nil
}

func (c *httpClient) SearchChannels(ctx context.Context, keyword string, limit int) ([]string, error) {
	// Step 1: GET the search form to obtain the one-time token.
	body, status, err := c.get(ctx, "/channels/search")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, statusError(eris.Errorf("tgstat: search form: status %d", status), status)
	}
	token, err := extractCSRFToken(body)
	if err != nil {
		return nil, err
	}

	// Step 2: POST the keyword with the token.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	form := url.Values{
		csrfField: {token},
		"q":       {keyword},
		"inAbout": {"1"},
		"page":    {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/channels/search", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "tgstat: create search request")
	}
	c.setHeaders(req, true)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "tgstat: search post"), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	postBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, eris.Wrap(err, "tgstat: read search response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(eris.Errorf("tgstat: search post: status %d", resp.StatusCode), resp.StatusCode)
	}

	// The response is a JSON-wrapped HTML fragment when the XHR header is
	// honored, raw HTML otherwise.
	html := postBody
	var wrapped struct {
		HTML string `json:"html"`
	}
	if err := json.Unmarshal(postBody, &wrapped); err == nil && wrapped.HTML != "" {
		html = []byte(wrapped.HTML)
	}

	links := extractChannelLinks(html, c.baseURL)
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}
	return links, nil
}

func (c *httpClient) FetchChannel(ctx context.Context, channelURL string) (*ChannelPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, channelURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "tgstat: create channel request")
	}
	c.setHeaders(req, false)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "tgstat: fetch channel"), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(eris.Errorf("tgstat: channel %s: status %d", channelURL, resp.StatusCode), resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, eris.Wrap(err, "tgstat: read channel body")
	}

	page, err := parseChannelPage(body)
	if err != nil {
		return nil, err
	}
	page.URL = channelURL
	return page, nil
}
