package model

import (
	"hash/fnv"
	"time"
)

// TitleUnknown is the sentinel title used when a source page carries no
// resolvable display name.
const TitleUnknown = "Unknown"

// channelIDRange bounds synthetic channel IDs to ten decimal digits so they
// stay well inside int64 and match the width of native Telegram IDs.
const channelIDRange = 10_000_000_000

// Lead is a normalized channel/group metadata record produced by discovery.
type Lead struct {
	ChannelID    int64     `json:"channel_id"`
	Username     string    `json:"username,omitempty"`
	Title        string    `json:"title"`
	CategoryTag  string    `json:"category_tag"`
	MembersCount int       `json:"members_count"`
	BioText      string    `json:"bio_text,omitempty"`
	AdminContact string    `json:"admin_contact,omitempty"`
	ScrapedDate  time.Time `json:"scraped_date"`
}

// Candidate is an unresolved reference to a possible lead, prior to detail
// extraction. Locator is a source-specific detail-page URL, canonicalized by
// the adapter that produced it. Candidates live only for one discovery run.
type Candidate struct {
	Locator string `json:"locator"`
	Source  string `json:"source"`
}

// DiscoveryRequest is the immutable input configuration for one discovery run.
type DiscoveryRequest struct {
	Keyword     string `json:"keyword"`
	Limit       int    `json:"limit"`
	CategoryTag string `json:"category_tag"`
	SafeMode    bool   `json:"safe_mode"`
	Mirror      string `json:"mirror,omitempty"`
}

// SyntheticChannelID derives a stable channel ID from a username for sources
// that expose no native numeric ID. FNV-64a reduced mod 1e10. This is a
// synthetic key: two distinct usernames may collide, and the value is not
// comparable with native IDs from the authenticated client. Callers must not
// assume global uniqueness across sources.
func SyntheticChannelID(username string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(username))
	return int64(h.Sum64() % channelIDRange)
}
