package models

// Question represents a single compliance question extracted from an
// uploaded questionnaire document. Immutable once extracted.
type Question struct {
	ID               int      `json:"id"`                // Unique within a processing run, renumbered across extraction chunks
	Text             string   `json:"text"`              // Full question text
	Category         string   `json:"category"`          // Open category string (e.g. "privacy", "access control")
	Keywords         []string `json:"keywords"`          // Search keywords for relevance ranking and excerpting
	Description      string   `json:"description"`       // Short summary of what the question asks for
	RequiresEvidence bool     `json:"requires_evidence"` // Whether documentary evidence is expected
}
