package reasoning

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ternarybob/probo/internal/models"
)

// repairOutcome tags the result of one recovery step.
type repairOutcome int

const (
	repairOK repairOutcome = iota
	repairTryNext
	repairFatal
)

// rawQuestion mirrors one extraction entry as the reasoning capability
// emits it. RequiresEvidence is a pointer so an omitted field defaults to
// true instead of false.
type rawQuestion struct {
	ID               int      `json:"id"`
	Text             string   `json:"text"`
	Category         string   `json:"category"`
	Keywords         []string `json:"keywords"`
	Description      string   `json:"description"`
	RequiresEvidence *bool    `json:"requiresEvidence"`
}

// rawJudgment mirrors a judgment response. HasAnswer is a pointer so a
// missing field is distinguishable from an explicit false.
type rawJudgment struct {
	HasAnswer     *bool  `json:"hasAnswer"`
	Answer        string `json:"answer"`
	Evidence      string `json:"evidence"`
	PageReference string `json:"pageReference"`
	Confidence    string `json:"confidence"`
	Explanation   string `json:"explanation"`
}

var (
	fencePattern = regexp.MustCompile(`(?s)^\s*` + "```" + `(?:json|JSON)?\s*\n?(.*?)\n?\s*` + "```" + `\s*$`)
	// Question objects hold arrays but never nested objects, so a
	// brace-free body matches one complete entry.
	questionObjectPattern = regexp.MustCompile(`(?s)\{[^{}]*\}`)
)

// stripCodeFences removes surrounding markdown code-fence markers.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if matches := fencePattern.FindStringSubmatch(s); len(matches) > 1 {
		s = matches[1]
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// parseExtractionResponse turns a raw extraction response into questions,
// walking the recovery steps in order: direct parse, pattern recovery,
// character-scan recovery. Unrecoverable text raises a data integrity
// error carrying a bounded sample of the response.
func parseExtractionResponse(raw string) ([]models.Question, error) {
	text := stripCodeFences(raw)

	entries, outcome := parseExtractionDirect(text)
	if outcome == repairTryNext {
		entries, outcome = recoverExtractionByPattern(text)
	}
	if outcome == repairTryNext {
		entries, outcome = recoverExtractionByScan(text)
	}
	if outcome != repairOK {
		return nil, models.NewDataIntegrityError("extraction response unrecoverable after repair", raw)
	}
	return toQuestions(entries), nil
}

// parseExtractionDirect parses the whole text as a question array and
// silently drops entries missing a required field.
func parseExtractionDirect(text string) ([]rawQuestion, repairOutcome) {
	var entries []rawQuestion
	if err := json.Unmarshal([]byte(text), &entries); err != nil {
		return nil, repairTryNext
	}
	valid := make([]rawQuestion, 0, len(entries))
	for _, e := range entries {
		if validExtractionEntry(e) {
			valid = append(valid, e)
		}
	}
	return valid, repairOK
}

// recoverExtractionByPattern scans for self-contained question objects
// anywhere in the text and keeps the ones that independently re-parse
// with their required fields. A truncated trailing object never matches
// the pattern and is discarded.
func recoverExtractionByPattern(text string) ([]rawQuestion, repairOutcome) {
	matches := questionObjectPattern.FindAllString(text, -1)
	var entries []rawQuestion
	for _, m := range matches {
		var e rawQuestion
		if err := json.Unmarshal([]byte(m), &e); err != nil {
			continue
		}
		if validExtractionEntry(e) {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return nil, repairTryNext
	}
	return entries, repairOK
}

// recoverExtractionByScan walks the text tracking brace depth and
// string-literal state, collecting each top-level object as it closes.
// Objects that re-parse and carry at least an id and text survive.
// Handles brace characters inside string values, which defeat the
// pattern step.
func recoverExtractionByScan(text string) ([]rawQuestion, repairOutcome) {
	var entries []rawQuestion
	depth := 0
	inString := false
	escaped := false
	start := -1

	for i, r := range text {
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch r {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				var e rawQuestion
				if err := json.Unmarshal([]byte(text[start:i+1]), &e); err == nil && e.ID > 0 && e.Text != "" {
					entries = append(entries, e)
				}
				start = -1
			}
		}
	}

	if len(entries) == 0 {
		return nil, repairTryNext
	}
	return entries, repairOK
}

// validExtractionEntry reports whether an entry carries every required
// field. Keywords distinguishes an absent field (nil) from an empty list.
func validExtractionEntry(e rawQuestion) bool {
	return e.ID > 0 && e.Text != "" && e.Category != "" && e.Keywords != nil && e.Description != ""
}

func toQuestions(entries []rawQuestion) []models.Question {
	questions := make([]models.Question, 0, len(entries))
	for _, e := range entries {
		requiresEvidence := true
		if e.RequiresEvidence != nil {
			requiresEvidence = *e.RequiresEvidence
		}
		questions = append(questions, models.Question{
			ID:               e.ID,
			Text:             e.Text,
			Category:         e.Category,
			Keywords:         e.Keywords,
			Description:      e.Description,
			RequiresEvidence: requiresEvidence,
		})
	}
	return questions
}

// parseJudgmentResponse turns a raw judgment response into its parsed
// form. A response that fails a direct parse gets one depth-balancing
// retry; a parsed response missing hasAnswer or confidence is a hard
// error rather than a recovery candidate.
func parseJudgmentResponse(raw string) (*rawJudgment, error) {
	text := stripCodeFences(raw)

	judgment, outcome := parseJudgmentDirect(text)
	if outcome == repairTryNext {
		if balanced, ok := balanceDepth(text); ok {
			judgment, outcome = parseJudgmentDirect(balanced)
		}
	}
	switch outcome {
	case repairOK:
		return judgment, nil
	case repairFatal:
		return nil, models.NewDataIntegrityError("judgment response missing required fields", raw)
	default:
		return nil, models.NewDataIntegrityError("judgment response unrecoverable after repair", raw)
	}
}

func parseJudgmentDirect(text string) (*rawJudgment, repairOutcome) {
	var j rawJudgment
	if err := json.Unmarshal([]byte(text), &j); err != nil {
		return nil, repairTryNext
	}
	if j.HasAnswer == nil || j.Confidence == "" {
		return nil, repairFatal
	}
	return &j, repairOK
}

// balanceDepth counts unmatched opening braces outside string literals
// and appends exactly that many closers. Returns false when the text has
// nothing to balance.
func balanceDepth(text string) (string, bool) {
	opens := 0
	closes := 0
	inString := false
	escaped := false

	for _, r := range text {
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch r {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			opens++
		case '}':
			closes++
		}
	}

	if opens <= closes {
		return "", false
	}
	return text + strings.Repeat("}", opens-closes), true
}
