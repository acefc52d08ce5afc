package reasoning

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/probo/internal/models"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no fences",
			input:    `[{"id": 1}]`,
			expected: `[{"id": 1}]`,
		},
		{
			name:     "json fence",
			input:    "```json\n[1, 2]\n```",
			expected: "[1, 2]",
		},
		{
			name:     "bare fence",
			input:    "```\n{\"a\": 1}\n```",
			expected: "{\"a\": 1}",
		},
		{
			name:     "padded fence",
			input:    "  ```json\n{}\n```  ",
			expected: "{}",
		},
		{
			name:     "inner fences preserved",
			input:    "```json\n{\"code\": \"```inner```\"}\n```",
			expected: "{\"code\": \"```inner```\"}",
		},
		{
			name:     "unterminated fence",
			input:    "```json\n[1]",
			expected: "[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripCodeFences(tt.input))
		})
	}
}

func TestParseExtractionResponseDirect(t *testing.T) {
	raw := `[
	  {"id": 1, "text": "Do you encrypt data at rest?", "category": "encryption", "keywords": ["encryption", "at rest"], "description": "Encryption-at-rest statement", "requiresEvidence": true},
	  {"id": 2, "text": "What is your company name?", "category": "general", "keywords": ["company"], "description": "Company identity", "requiresEvidence": false}
	]`

	questions, err := parseExtractionResponse(raw)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	assert.Equal(t, 1, questions[0].ID)
	assert.Equal(t, "Do you encrypt data at rest?", questions[0].Text)
	assert.Equal(t, "encryption", questions[0].Category)
	assert.Equal(t, []string{"encryption", "at rest"}, questions[0].Keywords)
	assert.True(t, questions[0].RequiresEvidence)
	assert.False(t, questions[1].RequiresEvidence)
}

func TestParseExtractionResponseDefaultsRequiresEvidence(t *testing.T) {
	raw := `[{"id": 1, "text": "Q?", "category": "c", "keywords": ["k"], "description": "d"}]`

	questions, err := parseExtractionResponse(raw)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.True(t, questions[0].RequiresEvidence)
}

func TestParseExtractionResponseDropsIncompleteEntries(t *testing.T) {
	raw := `[
	  {"id": 1, "text": "Q1?", "category": "privacy", "keywords": ["gdpr"], "description": "d1"},
	  {"id": 2, "text": "Q2?", "keywords": ["soc2"], "description": "d2"},
	  {"id": 3, "text": "Q3?", "category": "security", "description": "d3"},
	  {"id": 4, "text": "Q4?", "category": "security", "keywords": [], "description": "d4"}
	]`

	questions, err := parseExtractionResponse(raw)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	// Entry 2 lacks a category, entry 3 lacks keywords entirely. An empty
	// keyword list is present, so entry 4 survives.
	assert.Equal(t, 1, questions[0].ID)
	assert.Equal(t, 4, questions[1].ID)
}

func TestParseExtractionResponseStripsFences(t *testing.T) {
	raw := "```json\n" + `[{"id": 1, "text": "Q?", "category": "c", "keywords": ["k"], "description": "d"}]` + "\n```"

	questions, err := parseExtractionResponse(raw)
	require.NoError(t, err)
	assert.Len(t, questions, 1)
}

func TestParseExtractionResponseTruncatedPayloadKeepsLeadingObjects(t *testing.T) {
	raw := `[{"id": 1, "text": "Q1?", "category": "privacy", "keywords": ["gdpr"], "description": "d1"}, {"id": 2, "text": "Q2?", "category": "security", "keywords": ["soc2"], "description": "d2"}, {"id": 3, "text": "Q3 trunc`

	questions, err := parseExtractionResponse(raw)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, 1, questions[0].ID)
	assert.Equal(t, 2, questions[1].ID)
}

func TestParseExtractionResponseProseWrappedObjects(t *testing.T) {
	raw := `Here are the extracted questions:

	{"id": 1, "text": "Q1?", "category": "privacy", "keywords": ["gdpr"], "description": "d1"}

	and one more:

	{"id": 2, "text": "Q2?", "category": "security", "keywords": ["soc2"], "description": "d2"}

	Let me know if you need anything else.`

	questions, err := parseExtractionResponse(raw)
	require.NoError(t, err)
	require.Len(t, questions, 2)
}

func TestParseExtractionResponseScanRecoversBracesInStrings(t *testing.T) {
	// Braces inside string values defeat the pattern step; the character
	// scanner tracks string state and recovers the complete object.
	raw := `[{"id": 1, "text": "What does {braces} mean?", "category": "misc", "keywords": ["notation"], "description": "d"}, {"id": 2, "text": "Also {this", "category": "misc"`

	questions, err := parseExtractionResponse(raw)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "What does {braces} mean?", questions[0].Text)
}

func TestParseExtractionResponseUnrecoverable(t *testing.T) {
	_, err := parseExtractionResponse("The document appears to contain no readable content.")
	require.Error(t, err)
	assert.Equal(t, models.ErrorKindDataIntegrity, models.KindOf(err))
}

func TestParseExtractionResponseBoundsRawSample(t *testing.T) {
	_, err := parseExtractionResponse(strings.Repeat("x", 600))
	require.Error(t, err)

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Len(t, appErr.Raw, 500)
}

func TestParseJudgmentResponseDirect(t *testing.T) {
	raw := `{"hasAnswer": true, "answer": "yes", "evidence": "All data is encrypted with AES-256.", "pageReference": "p. 4", "confidence": "high", "explanation": "Directly stated."}`

	judgment, err := parseJudgmentResponse(raw)
	require.NoError(t, err)
	require.NotNil(t, judgment.HasAnswer)
	assert.True(t, *judgment.HasAnswer)
	assert.Equal(t, "yes", judgment.Answer)
	assert.Equal(t, "All data is encrypted with AES-256.", judgment.Evidence)
	assert.Equal(t, "p. 4", judgment.PageReference)
	assert.Equal(t, "high", judgment.Confidence)
}

func TestParseJudgmentResponseNegativeVerdict(t *testing.T) {
	judgment, err := parseJudgmentResponse(`{"hasAnswer": false, "confidence": "high"}`)
	require.NoError(t, err)
	assert.False(t, *judgment.HasAnswer)
}

func TestParseJudgmentResponseMissingRequiredFieldsIsHardError(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "missing hasAnswer", raw: `{"answer": "yes", "confidence": "high"}`},
		{name: "missing confidence", raw: `{"hasAnswer": true, "answer": "yes"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseJudgmentResponse(tt.raw)
			require.Error(t, err)
			assert.Equal(t, models.ErrorKindDataIntegrity, models.KindOf(err))
			assert.Contains(t, err.Error(), "missing required fields")
		})
	}
}

func TestParseJudgmentResponseDepthBalancing(t *testing.T) {
	// Two unmatched opening braces: the outer object and the nested one.
	raw := `{"hasAnswer": true, "answer": "yes", "evidence": "e", "confidence": "high", "explanation": "ok", "meta": {"note": "x"`

	balanced, ok := balanceDepth(raw)
	require.True(t, ok)
	assert.Equal(t, raw+"}}", balanced)
	assert.True(t, json.Valid([]byte(balanced)))

	judgment, err := parseJudgmentResponse(raw)
	require.NoError(t, err)
	assert.True(t, *judgment.HasAnswer)
	assert.Equal(t, "high", judgment.Confidence)
}

func TestBalanceDepthIgnoresBracesInStrings(t *testing.T) {
	raw := `{"evidence": "brace { inside", "hasAnswer": true, "confidence": "low"`

	judgment, err := parseJudgmentResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, "low", judgment.Confidence)
}

func TestBalanceDepthHandlesEscapedQuotes(t *testing.T) {
	raw := `{"evidence": "she said \"stop{\" now", "hasAnswer": true, "confidence": "low"`

	judgment, err := parseJudgmentResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, `she said "stop{" now`, judgment.Evidence)
}

func TestParseJudgmentResponseBalancedButIncompleteIsHardError(t *testing.T) {
	_, err := parseJudgmentResponse(`{"answer": "yes"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required fields")
}

func TestParseJudgmentResponseUnrecoverable(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "no structure", raw: "I cannot answer that."},
		{name: "truncated mid-token", raw: `{"hasAnswer": tru`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseJudgmentResponse(tt.raw)
			require.Error(t, err)
			assert.Equal(t, models.ErrorKindDataIntegrity, models.KindOf(err))
		})
	}
}
