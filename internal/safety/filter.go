// Package safety classifies extracted channel text against a disallowed-topics
// blocklist. The filter is advisory: substring matching is best-effort and
// false negatives are expected. It is not a legal or compliance control.
package safety

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// blocklist holds disallowed terms grouped by category. Each category carries
// English terms plus Russian and transliterated variants, since the primary
// listing source serves both audiences.
var blocklist = map[string][]string{
	"circumvention": {
		"vpn", "proxy", "bypass censorship", "впн", "прокси", "обход блокировок",
	},
	"adult": {
		"porn", "xxx", "18+", "onlyfans", "порно", "интим", "эротика",
	},
	"gambling": {
		"casino", "betting", "bookmaker", "казино", "ставки", "букмекер", "stavki",
	},
	"intrusion": {
		"hacking", "malware", "stealer", "взлом", "вирус", "брут", "vzlom",
	},
	"substances": {
		"narcotic", "mephedrone", "наркотик", "мефедрон", "закладк", "гашиш", "shishki",
	},
	"fraud": {
		"carding", "phishing", "ponzi", "кардинг", "фишинг", "обнал", "скам", "obnal",
	},
	"weapons": {
		"firearms", "ammunition", "оружие", "патроны", "травмат", "oruzhie",
	},
	"forgery": {
		"fake passport", "fake id", "diploma for sale", "поддельн", "купить паспорт", "купить диплом",
	},
}

var (
	handleRe = regexp.MustCompile(`@[a-zA-Z][a-zA-Z0-9_]{4,31}`)
	urlRe    = regexp.MustCompile(`https?://\S+|t\.me/\S+`)
)

// Filter checks channel text against the blocklist.
type Filter struct {
	terms  []string
	strict bool
	folder cases.Caser
}

// Option configures a Filter.
type Option func(*Filter)

// WithStrict controls matching strictness. Strict (the default) matches
// substrings anywhere in the text, including inside usernames and URLs.
// Non-strict masks handles and URLs before matching, trading false positives
// for false negatives.
func WithStrict(strict bool) Option {
	return func(f *Filter) {
		f.strict = strict
	}
}

// WithExtraTerms appends caller-supplied terms to the built-in blocklist.
func WithExtraTerms(terms []string) Option {
	return func(f *Filter) {
		f.terms = append(f.terms, terms...)
	}
}

// New creates a Filter with the built-in blocklist.
func New(opts ...Option) *Filter {
	f := &Filter{
		strict: true,
		folder: cases.Fold(),
	}
	for _, category := range []string{
		"circumvention", "adult", "gambling", "intrusion",
		"substances", "fraud", "weapons", "forgery",
	} {
		f.terms = append(f.terms, blocklist[category]...)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsSafe reports whether the concatenated title and bio contain no blocklisted
// term. A single substring match anywhere disqualifies the record.
func (f *Filter) IsSafe(title, bio string) bool {
	text := title + " " + bio
	if !f.strict {
		text = handleRe.ReplaceAllString(text, " ")
		text = urlRe.ReplaceAllString(text, " ")
	}
	folded := f.folder.String(text)
	for _, term := range f.terms {
		if strings.Contains(folded, f.folder.String(term)) {
			return false
		}
	}
	return true
}
