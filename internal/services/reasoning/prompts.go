package reasoning

import (
	"fmt"

	"github.com/ternarybob/probo/internal/models"
)

// buildExtractionPrompt renders the question-extraction instruction for
// one document chunk. The label names the source document so multi-chunk
// runs stay traceable in provider logs.
func buildExtractionPrompt(chunkText, label string) string {
	return fmt.Sprintf(`You are a compliance questionnaire analyst.

Task: Extract every distinct question or evidence request from the questionnaire document below.

Rules:
- One entry per question; never merge or split questions
- category is a short lowercase topic such as "access control", "privacy", "encryption"
- keywords are 3-6 search terms a policy document answering the question would contain
- description is one sentence stating what evidence would satisfy the question
- requiresEvidence is false only for purely informational prompts (company name, contact details)
- Number entries sequentially starting at 1

Output format (JSON array only, no markdown fences):
[
  {"id": 1, "text": "...", "category": "...", "keywords": ["...", "..."], "description": "...", "requiresEvidence": true}
]

Document (%s):
%s`, label, chunkText)
}

// buildJudgmentPrompt renders the evidence-judgment instruction for one
// question against one document excerpt.
func buildJudgmentPrompt(question models.Question, excerpt string, descriptor models.DocumentDescriptor) string {
	return fmt.Sprintf(`You are a compliance evidence auditor.

Task: Decide whether the policy document below answers the question, and quote the evidence.

Question: %s
Category: %s
Looking for: %s

Rules:
- hasAnswer is true only when the document actually addresses the question
- answer is "yes", "no", or "partial" describing what the document states
- evidence is a verbatim quote from the document, at most 80 words
- pageReference names the page or section the quote came from when identifiable, else empty
- confidence is "high", "medium", or "low"
- Always set confidence, even when hasAnswer is false

Output format (JSON object only, no markdown fences):
{"hasAnswer": true, "answer": "yes", "evidence": "...", "pageReference": "...", "confidence": "high", "explanation": "..."}

Document "%s" (folder: %s):
%s`, question.Text, question.Category, question.Description, descriptor.Name, descriptor.Subfolder, excerpt)
}
