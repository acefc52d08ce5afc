package reasoning

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// judgmentExcerptBudget is the largest document text, in runes, sent
	// whole to a judgment call.
	judgmentExcerptBudget = 18000

	// Window bounds around each keyword occurrence. The window reaches
	// further forward than back because evidence usually follows the
	// term that names it.
	excerptWindowBefore = 500
	excerptWindowAfter  = 1500

	excerptSeparator = "\n...\n"
	truncationMarker = "\n\n[content truncated]"
)

// window is a half-open rune span [start, end) of the source text.
type window struct {
	start int
	end   int
}

// selectExcerpt reduces an oversized document to the regions around the
// question's keywords. Text within budget passes through untouched. When
// no keyword occurs, or the stitched windows still blow the budget, the
// excerpt falls back to the leading slice of the document with a
// truncation marker appended.
func selectExcerpt(text string, keywords []string) string {
	runes := []rune(text)
	if len(runes) <= judgmentExcerptBudget {
		return text
	}

	// Lowercase rune by rune so offsets in the lowered text line up with
	// the original.
	lowered := make([]rune, len(runes))
	for i, r := range runes {
		lowered[i] = unicode.ToLower(r)
	}
	haystack := string(lowered)

	windows := keywordWindows(haystack, len(runes), keywords)
	if len(windows) == 0 {
		return string(runes[:judgmentExcerptBudget]) + truncationMarker
	}

	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].start != windows[j].start {
			return windows[i].start < windows[j].start
		}
		return windows[i].end < windows[j].end
	})

	var b strings.Builder
	total := 0
	for i, w := range windows {
		if i > 0 {
			b.WriteString(excerptSeparator)
			total += utf8.RuneCountInString(excerptSeparator)
		}
		b.WriteString(string(runes[w.start:w.end]))
		total += w.end - w.start
	}
	if total > judgmentExcerptBudget {
		return string(runes[:judgmentExcerptBudget]) + truncationMarker
	}
	return b.String()
}

// keywordWindows builds the deduplicated window set around every
// occurrence of every keyword. haystack is the lowered source text;
// textLen its rune length.
func keywordWindows(haystack string, textLen int, keywords []string) []window {
	var windows []window
	seen := make(map[window]bool)

	for _, kw := range keywords {
		needle := strings.ToLower(strings.TrimSpace(kw))
		if needle == "" {
			continue
		}
		needleRunes := utf8.RuneCountInString(needle)

		from := 0
		fromRunes := 0
		for {
			rel := strings.Index(haystack[from:], needle)
			if rel < 0 {
				break
			}
			occurrence := fromRunes + utf8.RuneCountInString(haystack[from:from+rel])

			w := window{start: occurrence - excerptWindowBefore, end: occurrence + excerptWindowAfter}
			if w.start < 0 {
				w.start = 0
			}
			if w.end > textLen {
				w.end = textLen
			}
			if !seen[w] {
				seen[w] = true
				windows = append(windows, w)
			}

			from += rel + len(needle)
			fromRunes = occurrence + needleRunes
		}
	}
	return windows
}
