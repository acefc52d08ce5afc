package reasoning

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectExcerptWithinBudgetPassesThrough(t *testing.T) {
	text := strings.Repeat("a", 1000)
	got := selectExcerpt(text, []string{"encryption"})

	assert.Equal(t, text, got)
}

func TestSelectExcerptNoKeywordsFallsBack(t *testing.T) {
	text := strings.Repeat("a", 20000)
	got := selectExcerpt(text, nil)

	assert.Equal(t, strings.Repeat("a", judgmentExcerptBudget)+truncationMarker, got)
}

func TestSelectExcerptKeywordMissingFallsBack(t *testing.T) {
	text := strings.Repeat("a", 20000)
	got := selectExcerpt(text, []string{"encryption"})

	assert.True(t, strings.HasSuffix(got, truncationMarker))
	assert.Equal(t, judgmentExcerptBudget+utf8.RuneCountInString(truncationMarker), utf8.RuneCountInString(got))
}

func TestSelectExcerptWindowAroundKeyword(t *testing.T) {
	keyword := "encryption"
	text := strings.Repeat("x", 20000) + keyword + strings.Repeat("y", 10000)
	got := selectExcerpt(text, []string{keyword})

	// Window spans [occurrence-500, occurrence+1500) around rune 20000.
	runes := []rune(text)
	want := string(runes[19500:21500])
	assert.Equal(t, want, got)
	assert.Contains(t, got, keyword)
}

func TestSelectExcerptWindowClampsAtEdges(t *testing.T) {
	keyword := "retention"
	text := strings.Repeat("x", 100) + keyword + strings.Repeat("y", 30000)
	got := selectExcerpt(text, []string{keyword})

	// The leading window clamps to the start of the document.
	runes := []rune(text)
	assert.Equal(t, string(runes[:1600]), got)
	assert.True(t, strings.HasPrefix(got, "x"))
}

func TestSelectExcerptMatchesCaseInsensitively(t *testing.T) {
	text := strings.Repeat("x", 20000) + "Data ENCRYPTION standard" + strings.Repeat("y", 10000)
	got := selectExcerpt(text, []string{"encryption"})

	assert.Contains(t, got, "ENCRYPTION")
	assert.NotContains(t, got, strings.Repeat("x", 1000))
}

func TestSelectExcerptDeduplicatesWindows(t *testing.T) {
	keyword := "audit"
	text := strings.Repeat("x", 20000) + keyword + strings.Repeat("y", 10000)

	// The same keyword listed twice yields one window, not two copies.
	got := selectExcerpt(text, []string{keyword, keyword})
	assert.Equal(t, 2000, utf8.RuneCountInString(got))
}

func TestSelectExcerptJoinsDistantWindows(t *testing.T) {
	text := strings.Repeat("x", 20000) +
		"encryption" + strings.Repeat("y", 10000) +
		"retention" + strings.Repeat("z", 5000)
	got := selectExcerpt(text, []string{"encryption", "retention"})

	assert.Contains(t, got, "encryption")
	assert.Contains(t, got, "retention")
	assert.Contains(t, got, excerptSeparator)
	assert.True(t, strings.Index(got, "encryption") < strings.Index(got, "retention"))
}

func TestSelectExcerptOversizedWindowsFallBack(t *testing.T) {
	// Keyword occurrences spread far apart produce distinct windows whose
	// concatenation blows the budget.
	var b strings.Builder
	for i := 0; i < 16; i++ {
		b.WriteString("firewall")
		b.WriteString(strings.Repeat("x", 2500))
	}
	text := b.String()
	require.True(t, utf8.RuneCountInString(text) > judgmentExcerptBudget)

	got := selectExcerpt(text, []string{"firewall"})
	assert.True(t, strings.HasSuffix(got, truncationMarker))
	assert.Equal(t, judgmentExcerptBudget+utf8.RuneCountInString(truncationMarker), utf8.RuneCountInString(got))
}

func TestSelectExcerptSkipsBlankKeywords(t *testing.T) {
	text := strings.Repeat("a", 20000)
	got := selectExcerpt(text, []string{"", "   "})

	assert.True(t, strings.HasSuffix(got, truncationMarker))
}
