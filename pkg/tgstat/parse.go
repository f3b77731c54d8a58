package tgstat

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// CanonicalChannelURL normalizes a channel detail link: strips the trailing
// /stat suffix and any query string or fragment.
func CanonicalChannelURL(href string) string {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	href = strings.TrimRight(href, "/")
	href = strings.TrimSuffix(href, "/stat")
	return href
}

// extractChannelLinks pulls channel detail URLs out of a listing fragment,
// canonicalized and deduplicated in document order. Relative links are
// resolved against base.
func extractChannelLinks(html []byte, base string) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil
	}

	var (
		links []string
		seen  = map[string]struct{}{}
	)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.Contains(href, "/channel/") {
			return
		}
		if strings.HasPrefix(href, "/") {
			href = base + href
		}
		href = CanonicalChannelURL(href)
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		links = append(links, href)
	})
	return links
}

// extractCSRFToken finds the anti-forgery token input in the search form page.
func extractCSRFToken(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", eris.Wrap(err, "tgstat: parse search form")
	}
	token, ok := doc.Find(`input[name="` + csrfField + `"]`).First().Attr("value")
	if !ok || token == "" {
		return "", eris.New("tgstat: search form token not found")
	}
	return token, nil
}

func parseChannelPage(html []byte) (*ChannelPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "tgstat: parse channel page")
	}

	page := &ChannelPage{}
	page.Heading = strings.TrimSpace(doc.Find("h1").First().Text())
	page.MetaTitle, _ = doc.Find(`meta[property="og:title"]`).First().Attr("content")
	page.MetaDescription, _ = doc.Find(`meta[name="description"]`).First().Attr("content")

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if strings.Contains(href, "t.me/") {
			page.TMeLink = href
			return false
		}
		return true
	})

	page.BodyText = strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	return page, nil
}
