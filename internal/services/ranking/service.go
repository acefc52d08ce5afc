package ranking

import (
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
	"github.com/ternarybob/probo/internal/services/cache"
)

const (
	// rankCacheTTL bounds how long a ranked result is reused for an
	// identical normalized question.
	rankCacheTTL = 30 * time.Minute

	categoryScore    = 50 // question and document category match exactly
	containScore     = 20 // keyword pair contains one another
	exactScore       = 30 // keyword pair is identical, on top of containScore
	fuzzyScore       = 15 // keyword pair similar but not containing
	descriptionScore = 10 // question keyword appears in the description
	nameOrDescScore  = 5  // question keyword appears in description or name
	textWordScore    = 3  // question-text word appears in the description

	// fuzzyThreshold is the normalized-similarity floor for a fuzzy
	// keyword match. Applies only when neither keyword contains the
	// other; identical keywords already scored the containment path.
	fuzzyThreshold = 0.7

	// minWordLength filters short question-text words out of the
	// description bonus.
	minWordLength = 3
)

// Service ranks reference documents against a question with a
// deterministic additive score. Rankings for an identical normalized
// question are served from cache inside the TTL without rescoring.
type Service struct {
	logger arbor.ILogger
	cache  *cache.Store
}

// NewService creates a ranking service with its own ranking cache.
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
		cache:  cache.NewStore("rankings"),
	}
}

// Ensure Service implements the RankingService interface
var _ interfaces.RankingService = (*Service)(nil)

// normalizedQuestion carries the lower-cased question fields used for
// scoring and cache keying.
type normalizedQuestion struct {
	text        string
	category    string
	keywords    []string
	description string
	words       []string
}

// Rank scores every descriptor against the question and returns at most
// maxResults documents in descending score order. Zero and negative
// scores are discarded. An empty index yields an empty result.
func (s *Service) Rank(question models.Question, index []models.DocumentDescriptor, maxResults int) []models.ScoredDocument {
	if len(index) == 0 {
		return []models.ScoredDocument{}
	}

	nq := normalizeQuestion(question)
	key := s.cacheKey(nq)

	if cached, ok := s.cache.Get(key); ok {
		ranked := cached.([]models.ScoredDocument)
		s.logger.Debug().
			Int("question_id", question.ID).
			Int("candidates", len(ranked)).
			Msg("Ranking served from cache")
		return truncate(ranked, maxResults)
	}

	ranked := make([]models.ScoredDocument, 0, len(index))
	for _, descriptor := range index {
		score := s.score(nq, descriptor)
		if score <= 0 {
			continue
		}
		ranked = append(ranked, models.ScoredDocument{
			Descriptor: descriptor,
			Score:      score,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	// The full ranking is cached; truncation happens per call so a later
	// caller with a larger maxResults still hits.
	s.cache.Set(key, ranked, rankCacheTTL)

	s.logger.Debug().
		Int("question_id", question.ID).
		Int("index_size", len(index)).
		Int("candidates", len(ranked)).
		Msg("Ranked document index for question")

	return truncate(ranked, maxResults)
}

// CacheSize returns the number of live ranking-cache entries.
func (s *Service) CacheSize() int {
	return s.cache.Size()
}

// ClearCache drops all cached rankings.
func (s *Service) ClearCache() int {
	return s.cache.Clear()
}

// RankingCache exposes the cache store for sweeper registration.
func (s *Service) RankingCache() *cache.Store {
	return s.cache
}

// score computes the additive relevance score of one document for one
// question. All comparisons run on lower-cased text.
func (s *Service) score(nq normalizedQuestion, descriptor models.DocumentDescriptor) int {
	name := strings.ToLower(strings.TrimSpace(descriptor.Name))
	category := strings.ToLower(strings.TrimSpace(descriptor.Category))
	description := strings.ToLower(strings.TrimSpace(descriptor.Description))

	docKeywords := make([]string, 0, len(descriptor.Keywords))
	for _, k := range descriptor.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			docKeywords = append(docKeywords, k)
		}
	}

	score := 0

	if nq.category != "" && nq.category == category {
		score += categoryScore
	}

	for _, qk := range nq.keywords {
		for _, dk := range docKeywords {
			if strings.Contains(qk, dk) || strings.Contains(dk, qk) {
				score += containScore
				if qk == dk {
					score += exactScore
				}
			} else if similarity(qk, dk) >= fuzzyThreshold {
				score += fuzzyScore
			}
		}

		if description != "" && strings.Contains(description, qk) {
			score += descriptionScore
		}
		// Intentionally overlaps with the bonus above: a keyword found in
		// the description earns both.
		if (description != "" && strings.Contains(description, qk)) ||
			(name != "" && strings.Contains(name, qk)) {
			score += nameOrDescScore
		}
	}

	if description != "" {
		for _, word := range nq.words {
			if strings.Contains(description, word) {
				score += textWordScore
			}
		}
	}

	return score
}

// cacheKey hashes the normalized question fields, with keywords sorted so
// keyword order never splits the cache.
func (s *Service) cacheKey(nq normalizedQuestion) string {
	sorted := make([]string, len(nq.keywords))
	copy(sorted, nq.keywords)
	sort.Strings(sorted)
	return common.HashKey(nq.text, nq.category, strings.Join(sorted, ","), nq.description)
}

func normalizeQuestion(question models.Question) normalizedQuestion {
	nq := normalizedQuestion{
		text:        strings.ToLower(strings.TrimSpace(question.Text)),
		category:    strings.ToLower(strings.TrimSpace(question.Category)),
		description: strings.ToLower(strings.TrimSpace(question.Description)),
	}

	nq.keywords = make([]string, 0, len(question.Keywords))
	for _, k := range question.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			nq.keywords = append(nq.keywords, k)
		}
	}

	for _, word := range strings.Fields(nq.text) {
		if len(word) > minWordLength {
			nq.words = append(nq.words, word)
		}
	}

	return nq
}

func truncate(ranked []models.ScoredDocument, maxResults int) []models.ScoredDocument {
	limit := len(ranked)
	if maxResults > 0 && maxResults < limit {
		limit = maxResults
	}
	out := make([]models.ScoredDocument, limit)
	copy(out, ranked[:limit])
	return out
}
