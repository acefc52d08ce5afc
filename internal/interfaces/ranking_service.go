package interfaces

import (
	"github.com/ternarybob/probo/internal/models"
)

// RankingService scores reference documents against a question and returns
// the best candidates in descending score order. Rankings are deterministic
// for identical normalized inputs and cached per normalized question.
type RankingService interface {
	// Rank scores every descriptor in the index against the question,
	// discards non-positive scores, and returns at most maxResults
	// documents ordered by descending score. An empty index yields an
	// empty result, not an error.
	Rank(question models.Question, index []models.DocumentDescriptor, maxResults int) []models.ScoredDocument

	// CacheSize returns the number of live entries in the ranking cache.
	CacheSize() int

	// ClearCache drops all cached rankings and returns how many were
	// removed.
	ClearCache() int
}
