// Package keywords implements the token policy shared by transcript
// chunking and query matching. Both sides must use the same policy for
// keyword matching to work symmetrically.
package keywords

import (
	"strings"
	"unicode"
)

// MaxPerChunk caps how many keywords a chunk carries
const MaxPerChunk = 10

// stopWords are dropped on both the chunk side and the query side
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "her": {}, "was": {}, "one": {},
	"our": {}, "out": {}, "his": {}, "has": {}, "have": {}, "had": {},
	"they": {}, "them": {}, "then": {}, "than": {}, "with": {}, "will": {},
	"would": {}, "could": {}, "should": {}, "there": {}, "their": {},
	"about": {}, "into": {}, "over": {}, "some": {}, "just": {}, "like": {},
	"been": {}, "being": {}, "were": {}, "from": {}, "also": {}, "your": {},
	"more": {}, "most": {}, "very": {}, "really": {}, "going": {},
	"because": {}, "thing": {}, "things": {}, "actually": {},
}

// queryStopWords extends stopWords with interrogatives for query-side
// extraction, so question scaffolding never drives keyword matches.
var queryStopWords = map[string]struct{}{
	"what": {}, "when": {}, "where": {}, "who": {}, "why": {},
	"how": {}, "which": {}, "that": {}, "this": {},
}

// Extract returns up to max deduplicated keywords from text: lowercase,
// non-alphanumeric stripped to spaces, tokens of length ≤ 3 or in the
// stop-word set dropped.
func Extract(text string, max int) []string {
	return extract(text, max, false)
}

// ExtractQuery returns query keywords using the extended stop-word set.
// The same set is used for both video and channel search.
func ExtractQuery(text string) []string {
	return extract(text, MaxPerChunk, true)
}

func extract(text string, max int, query bool) []string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte(' ')
		}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, tok := range strings.Fields(sb.String()) {
		if len(tok) <= 3 {
			continue
		}
		if _, ok := stopWords[tok]; ok {
			continue
		}
		if query {
			if _, ok := queryStopWords[tok]; ok {
				continue
			}
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// Matches reports whether any query keyword matches any chunk keyword as a
// case-insensitive substring in either direction, and how many matched.
func Matches(queryKeywords, chunkKeywords []string) int {
	hits := 0
	for _, q := range queryKeywords {
		for _, c := range chunkKeywords {
			if strings.Contains(c, q) || strings.Contains(q, c) {
				hits++
				break
			}
		}
	}
	return hits
}
