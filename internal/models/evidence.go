package models

// Answer is the judgment outcome for a (question, document) pair.
type Answer string

const (
	AnswerYes     Answer = "yes"
	AnswerNo      Answer = "no"
	AnswerPartial Answer = "partial"
)

// Rank returns the sort weight of an answer (yes > no > partial).
func (a Answer) Rank() int {
	switch a {
	case AnswerYes:
		return 3
	case AnswerNo:
		return 2
	case AnswerPartial:
		return 1
	default:
		return 0
	}
}

// Confidence expresses how certain the reasoning capability was about a
// judgment.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank returns the sort weight of a confidence level (high > medium > low).
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// EvidenceCandidate is a structured judgment that a document does or does
// not satisfy a question's requirement. Produced per (question, document)
// pair; a pair with no evidence produces no candidate at all.
type EvidenceCandidate struct {
	DocumentName  string     `json:"document_name"`
	Subfolder     string     `json:"subfolder"`
	Answer        Answer     `json:"answer"`                   // yes, no, or partial
	Evidence      string     `json:"evidence"`                 // Verbatim quote from the document
	PageReference string     `json:"page_reference,omitempty"` // Optional page or section reference
	Confidence    Confidence `json:"confidence"`               // high, medium, or low
	Explanation   string     `json:"explanation"`
	Relevance     int        `json:"relevance"` // Carried over from the ranking stage
}
