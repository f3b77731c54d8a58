// Package contact pulls structured contact handles out of free text.
package contact

import (
	"regexp"
	"strings"
)

// handleRe matches @-prefixed handles: first character alphabetic, remainder
// alphanumeric or underscore, 5-32 characters total after the marker. Tokens
// are extracted wherever they appear, including inside URLs; no attempt is
// made to tell an intended handle from an incidental @-prefixed substring.
var handleRe = regexp.MustCompile(`@([a-zA-Z][a-zA-Z0-9_]{4,31})`)

// Extract scans bio text for contact handles and returns them comma-and-space
// joined, re-prefixed with @, in first-seen order. A handle mentioned more
// than once is reported once. The second return is false when no handles were
// found.
func Extract(bioText string) (string, bool) {
	if bioText == "" {
		return "", false
	}
	matches := handleRe.FindAllStringSubmatch(bioText, -1)
	if len(matches) == 0 {
		return "", false
	}
	seen := make(map[string]struct{}, len(matches))
	handles := make([]string, 0, len(matches))
	for _, m := range matches {
		h := "@" + m[1]
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		handles = append(handles, h)
	}
	return strings.Join(handles, ", "), true
}
