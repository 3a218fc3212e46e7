// Package anchor re-locates stored highlights inside the current
// flattened text of a page. Stored offsets go stale the moment content
// re-renders, so resolution works from the captured text and its
// surrounding context, falling back through progressively looser
// strategies until one matches.
package anchor

import (
	"strings"

	"github.com/sakif/reader-highlights/internal/model"
)

// Match is a resolved byte range in the current flattened text.
type Match struct {
	Start int
	End   int
}

// Strategy names which fallback step produced a match. Useful for
// debug logging; callers do not branch on it.
type Strategy string

const (
	StrategyFullContext   Strategy = "prefix+text+suffix"
	StrategyPrefix        Strategy = "prefix+text"
	StrategySuffix        Strategy = "text+suffix"
	StrategyStoredOffsets Strategy = "stored offsets"
	StrategyTextOnly      Strategy = "text only"
)

// Resolve finds the highlight's text in content, trying each strategy
// in order and returning the first hit:
//
//  1. prefix + text + suffix, the most specific form: survives offset
//     shifts and disambiguates repeated phrases by their surroundings
//  2. prefix + text
//  3. text + suffix
//  4. the stored offsets verbatim, when the text there still matches
//  5. the first occurrence of the text anywhere
//
// A step-5 match on a page where the phrase repeats can land on the
// wrong occurrence. That imprecision is accepted: a plausibly placed
// highlight beats a silently dropped one.
//
// The boolean is false when no strategy matches; the caller simply
// omits the highlight from this render pass.
func Resolve(h *model.Highlight, content string) (Match, Strategy, bool) {
	if h.Text == "" || content == "" {
		return Match{}, "", false
	}

	if h.PrefixContext != "" || h.SuffixContext != "" {
		if idx := strings.Index(content, h.PrefixContext+h.Text+h.SuffixContext); idx >= 0 {
			start := idx + len(h.PrefixContext)
			return Match{Start: start, End: start + len(h.Text)}, StrategyFullContext, true
		}
	}
	if h.PrefixContext != "" {
		if idx := strings.Index(content, h.PrefixContext+h.Text); idx >= 0 {
			start := idx + len(h.PrefixContext)
			return Match{Start: start, End: start + len(h.Text)}, StrategyPrefix, true
		}
	}
	if h.SuffixContext != "" {
		if idx := strings.Index(content, h.Text+h.SuffixContext); idx >= 0 {
			return Match{Start: idx, End: idx + len(h.Text)}, StrategySuffix, true
		}
	}
	if h.StartOffset >= 0 && h.EndOffset <= len(content) && h.StartOffset < h.EndOffset {
		if content[h.StartOffset:h.EndOffset] == h.Text {
			return Match{Start: h.StartOffset, End: h.EndOffset}, StrategyStoredOffsets, true
		}
	}
	if idx := strings.Index(content, h.Text); idx >= 0 {
		return Match{Start: idx, End: idx + len(h.Text)}, StrategyTextOnly, true
	}

	return Match{}, "", false
}
