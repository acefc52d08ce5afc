package interfaces

import (
	"context"

	"github.com/ternarybob/probo/internal/models"
)

// PipelineService runs the full question→evidence pipeline: ranking,
// existence filtering, content fetch, and judgment, with settle-all
// semantics at every fan-out.
type PipelineService interface {
	// Process evaluates every question against the document index and
	// returns evidence candidates keyed by question id, sorted by
	// confidence, answer, then relevance. Every question id appears in
	// the result, with an empty list when nothing matched. The returned
	// stats are final once Process returns.
	Process(ctx context.Context, questions []models.Question, index []models.DocumentDescriptor) (map[int][]models.EvidenceCandidate, *models.ProcessingStats, error)
}
