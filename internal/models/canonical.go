package models

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// Title and venue canonicalization. Implemented as a fixed ordered list of
// transformation rules so the result is a pure function of the input and
// re-canonicalizing an already canonical string is a no-op.

type foldRule struct {
	re   *regexp.Regexp
	repl string
}

var titleRules = []foldRule{
	// Bracketed annotations carry venue/category/status metadata, not identity.
	{regexp.MustCompile(`【[^】]*】`), ""},
	{regexp.MustCompile(`\[[^\]]*\]`), ""},
	{regexp.MustCompile(`（[^）]*）`), ""},
	{regexp.MustCompile(`\([^)]*\)`), ""},
	// Japanese quote marks stay, their content is part of the title.
	{regexp.MustCompile(`[「」『』]`), ""},

	// Event numbering and year prefixes/suffixes.
	{regexp.MustCompile(`^第\s*\d+\s*回\s*`), ""},
	{regexp.MustCompile(`\s*第\s*\d+\s*回$`), ""},
	{regexp.MustCompile(`^(?:令和|平成)\s*\d+\s*年?\s*`), ""},
	{regexp.MustCompile(`^\d{4}\s*年?\s*`), ""},
	{regexp.MustCompile(`\s*\d{4}\s*年?$`), ""},

	// Trailing time, date and venue tails.
	{regexp.MustCompile(`\s*\d{1,2}:\d{2}.*$`), ""},
	{regexp.MustCompile(`\s*午[前後]\d+時.*$`), ""},
	{regexp.MustCompile(`\s*\d{1,2}月\d{1,2}日.*$`), ""},
	{regexp.MustCompile(`\s*[@＠]\s*\S.*$`), ""},
	{regexp.MustCompile(`\s+at\s+.*$`), ""},
	{regexp.MustCompile(`\s*にて.*$`), ""},
	{regexp.MustCompile(`\s*会場.*$`), ""},
	{regexp.MustCompile(`※.*$`), ""},

	// Separators become spaces, punctuation disappears.
	{regexp.MustCompile(`[・·•\-–—〜~]`), " "},
	{regexp.MustCompile(`[！!？?。、，,：:；;"'＂＇]`), ""},
	{regexp.MustCompile(`[\s　]+`), " "},
}

var venueRules = []foldRule{
	{regexp.MustCompile(`富山県\s*`), ""},
	// Drop the administrative suffix so 高岡市民会館 and 高岡 市民会館 meet.
	{regexp.MustCompile(`(富山|高岡|魚津|氷見|黒部|砺波|小矢部|南砺|射水|滑川)市`), "$1"},
	// Replacement is in folded (hiragana) form so re-canonicalizing is a
	// no-op.
	{regexp.MustCompile(`会館`), "ほーる"},
	{regexp.MustCompile(`[・·•\-–—〜~]`), " "},
	{regexp.MustCompile(`[！!？?。、，,：:；;]`), ""},
	{regexp.MustCompile(`[\s　]+`), " "},
}

// noiseTokens are boilerplate words that show up in titles without carrying
// event identity (sponsor boilerplate, generic event words).
var noiseTokens = map[string]bool{
	"イベント": true,
	"event":    true,
	"開催":     true,
	"実施":     true,
	"終了":     true,
	"入場無料": true,
	"無料":     true,
	"有料":     true,
	"参加者募集": true,
}

// CanonicalTitle returns the normalized, noise-stripped form of an event
// title used for identity and comparison. Pure and idempotent.
func CanonicalTitle(title string) string {
	return canonicalize(title, titleRules)
}

// CanonicalVenue returns the folded form of a venue string used for venue
// comparison. Uses the same width/kana folding as titles.
func CanonicalVenue(venue string) string {
	return canonicalize(venue, venueRules)
}

func canonicalize(s string, rules []foldRule) string {
	out := strings.ToLower(strings.TrimSpace(s))
	out = width.Fold.String(out)
	out = kataToHira(out)
	// Anchored tail rules can expose new matches once an outer layer is
	// stripped ("まつり 2024 2025"), so run the rule list to a fixpoint.
	for {
		next := out
		for _, r := range rules {
			next = r.re.ReplaceAllString(next, r.repl)
		}
		if next == out {
			break
		}
		out = next
	}
	fields := strings.Fields(out)
	kept := fields[:0]
	for _, f := range fields {
		if !noiseTokens[f] {
			kept = append(kept, f)
		}
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

// kataToHira folds katakana to hiragana so マツリ and まつり compare equal.
func kataToHira(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'ァ' && r <= 'ヶ' {
			return r - 0x60
		}
		return r
	}, s)
}
