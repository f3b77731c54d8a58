// Package ddg provides a client for the DuckDuckGo HTML search endpoint.
package ddg

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/resilience"
)

const (
	defaultBaseURL = "https://html.duckduckgo.com/html/"
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	maxBodySize    = 2 * 1024 * 1024
)

// Client defines the search operations.
type Client interface {
	// Search runs a free-text query and returns up to max results.
	Search(ctx context.Context, query string, max int) ([]Result, error)
}

// Result is a single search result.
type Result struct {
	Title string
	URL   string
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom endpoint (for testing).
func WithBaseURL(base string) Option {
	return func(c *httpClient) {
		c.baseURL = base
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a DuckDuckGo HTML search client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query string, max int) ([]Result, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "ddg: create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "ddg: search"), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("ddg: status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, eris.Wrap(err, "ddg: read body")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, eris.Wrap(err, "ddg: parse results")
	}

	var results []Result
	doc.Find("a.result__a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if max > 0 && len(results) >= max {
			return false
		}
		href, _ := sel.Attr("href")
		target := decodeRedirect(href)
		if target == "" {
			return true
		}
		results = append(results, Result{
			Title: strings.TrimSpace(sel.Text()),
			URL:   target,
		})
		return true
	})
	return results, nil
}

// decodeRedirect unwraps the uddg redirect parameter DuckDuckGo wraps result
// links in. Plain links pass through unchanged.
func decodeRedirect(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if uddg := u.Query().Get("uddg"); uddg != "" {
		if target, err := url.QueryUnescape(uddg); err == nil {
			return target
		}
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return href
	}
	return ""
}
