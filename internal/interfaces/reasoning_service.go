package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/probo/internal/models"
)

// ReasoningService queues and executes calls against the text-reasoning
// capability: question extraction from questionnaire text and per-document
// evidence judgment. Calls are dispatched with bounded concurrency, retried
// with exponential backoff, and paced by an adaptive delay controller.
type ReasoningService interface {
	// ExtractQuestions pulls structured compliance questions out of the
	// uploaded document text. Long documents are split into chunks
	// processed in parallel pairs; question ids are renumbered
	// sequentially across chunks. The label names the source document in
	// prompts and logs.
	ExtractQuestions(ctx context.Context, documentText, label string) ([]models.Question, error)

	// Judge evaluates one question against one document's text and
	// returns an evidence candidate, or nil when the document holds no
	// evidence for the question. Oversized texts are reduced to keyword
	// windows before prompting. Verdicts are cached per question/content
	// pair; the bool reports whether this verdict came from cache.
	Judge(ctx context.Context, question models.Question, documentText string, descriptor models.DocumentDescriptor) (*models.EvidenceCandidate, bool, error)

	// QueueDepth returns the number of reasoning calls waiting for a
	// dispatch slot.
	QueueDepth() int

	// CurrentDelay returns the adaptive pause currently applied between
	// dispatch waves.
	CurrentDelay() time.Duration

	// CacheSize returns the number of live judgment-cache entries.
	CacheSize() int

	// ClearCache drops all cached judgments and returns how many were
	// removed.
	ClearCache() int
}
