// -----------------------------------------------------------------------
// Batch Orchestrator - Question batches, evidence fan-out, aggregation
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

const (
	defaultQuestionBatchSize = 3
	defaultMaxCandidates     = 10
	defaultFetchConcurrency  = 8
	defaultJudgeConcurrency  = 5

	// Fixed pauses between sequential groups. The reasoning dispatcher
	// adds its own adaptive pacing on top.
	questionBatchPause = 1000 * time.Millisecond
	fetchChunkPause    = 300 * time.Millisecond
	judgeChunkPause    = 500 * time.Millisecond
)

// Service drives the question→evidence pipeline. Questions run in
// sequential batches with every question inside a batch processed
// concurrently; per question, candidates are ranked, resolved, existence
// checked, fetched, and judged, with settle-all semantics at every
// fan-out: one candidate's failure never aborts its siblings.
type Service struct {
	logger    arbor.ILogger
	ranking   interfaces.RankingService
	content   interfaces.ContentStore
	reasoning interfaces.ReasoningService
	events    interfaces.EventService

	batchSize        int
	maxCandidates    int
	fetchConcurrency int
	judgeConcurrency int
}

var _ interfaces.PipelineService = (*Service)(nil)

// NewService wires the orchestrator. A nil events service disables
// progress publishing.
func NewService(ranking interfaces.RankingService, content interfaces.ContentStore, reasoning interfaces.ReasoningService, events interfaces.EventService, cfg *common.PipelineConfig, logger arbor.ILogger) *Service {
	s := &Service{
		logger:           logger,
		ranking:          ranking,
		content:          content,
		reasoning:        reasoning,
		events:           events,
		batchSize:        defaultQuestionBatchSize,
		maxCandidates:    defaultMaxCandidates,
		fetchConcurrency: defaultFetchConcurrency,
		judgeConcurrency: defaultJudgeConcurrency,
	}
	if cfg != nil {
		if cfg.QuestionBatchSize > 0 {
			s.batchSize = cfg.QuestionBatchSize
		}
		if cfg.MaxCandidates > 0 {
			s.maxCandidates = cfg.MaxCandidates
		}
		if cfg.FetchConcurrency > 0 {
			s.fetchConcurrency = cfg.FetchConcurrency
		}
		if cfg.JudgeConcurrency > 0 {
			s.judgeConcurrency = cfg.JudgeConcurrency
		}
	}
	return s
}

// Process evaluates every question against the document index. The result
// holds every question id, with an empty candidate list when nothing
// matched. Stats are final once Process returns.
func (s *Service) Process(ctx context.Context, questions []models.Question, index []models.DocumentDescriptor) (map[int][]models.EvidenceCandidate, *models.ProcessingStats, error) {
	stats := models.NewProcessingStats()
	evidence := make(map[int][]models.EvidenceCandidate, len(questions))
	if len(questions) == 0 {
		return evidence, stats, nil
	}

	runID := common.NewRunID()
	started := time.Now()
	s.logger.Info().
		Str("run_id", runID).
		Int("questions", len(questions)).
		Int("index_size", len(index)).
		Msg("Pipeline run started")
	s.publish(ctx, interfaces.EventRunStarted, map[string]interface{}{
		"run_id":    runID,
		"questions": len(questions),
	})

	batches := batchQuestions(questions, s.batchSize)
	var mu sync.Mutex

	for b, batch := range batches {
		s.publish(ctx, interfaces.EventBatchStarted, map[string]interface{}{
			"run_id": runID,
			"batch":  b + 1,
			"of":     len(batches),
			"size":   len(batch),
		})

		var wg sync.WaitGroup
		for _, q := range batch {
			wg.Add(1)
			go func(question models.Question) {
				defer wg.Done()
				candidates := s.processQuestion(ctx, question, index, stats)
				mu.Lock()
				evidence[question.ID] = candidates
				mu.Unlock()
				stats.AddQuestionProcessed()
				s.publish(ctx, interfaces.EventQuestionCompleted, map[string]interface{}{
					"run_id":      runID,
					"question_id": question.ID,
					"evidence":    len(candidates),
				})
			}(q)
		}
		wg.Wait()

		if b < len(batches)-1 {
			select {
			case <-ctx.Done():
				return evidence, stats, ctx.Err()
			case <-time.After(questionBatchPause):
			}
		}
	}

	snapshot := stats.Snapshot()
	s.logger.Info().
		Str("run_id", runID).
		Int("questions", snapshot.QuestionsProcessed).
		Int("evidence", snapshot.EvidenceFound).
		Dur("elapsed", time.Since(started)).
		Msg("Pipeline run complete")
	s.publish(ctx, interfaces.EventRunCompleted, map[string]interface{}{
		"run_id":      runID,
		"questions":   snapshot.QuestionsProcessed,
		"evidence":    snapshot.EvidenceFound,
		"duration_ms": time.Since(started).Milliseconds(),
	})

	return evidence, stats, nil
}

// candidateDoc tracks one ranked document through resolution, fetch, and
// judgment for a single question.
type candidateDoc struct {
	descriptor models.DocumentDescriptor
	fileID     string
	score      int
	text       string
}

func (s *Service) processQuestion(ctx context.Context, question models.Question, index []models.DocumentDescriptor, stats *models.ProcessingStats) []models.EvidenceCandidate {
	ranked := s.ranking.Rank(question, index, s.maxCandidates)
	if len(ranked) == 0 {
		s.logger.Debug().Int("question_id", question.ID).Msg("No candidate documents for question")
		return []models.EvidenceCandidate{}
	}
	stats.AddDocumentsChecked(len(ranked))

	descriptors := make([]models.DocumentDescriptor, len(ranked))
	for i, sd := range ranked {
		descriptors[i] = sd.Descriptor
	}
	resolved := s.content.ResolveAll(ctx, descriptors)

	ids := make([]string, 0, len(resolved))
	for _, r := range resolved {
		if r.FileID != "" {
			ids = append(ids, r.FileID)
		}
	}
	if len(ids) == 0 {
		return []models.EvidenceCandidate{}
	}
	exists := s.content.ExistAll(ctx, ids)

	var docs []candidateDoc
	for i, r := range resolved {
		if r.FileID == "" || !exists[r.FileID] {
			continue
		}
		docs = append(docs, candidateDoc{
			descriptor: r.Descriptor,
			fileID:     r.FileID,
			score:      ranked[i].Score,
		})
	}
	if len(docs) == 0 {
		return []models.EvidenceCandidate{}
	}

	s.fetchContent(ctx, question.ID, docs, stats)
	return s.judgeCandidates(ctx, question, docs, stats)
}

// fetchContent materializes text for each candidate in concurrent chunks
// with a pause between chunks. A failed fetch or extraction leaves the
// candidate's text empty and is recorded in stats.
func (s *Service) fetchContent(ctx context.Context, questionID int, docs []candidateDoc, stats *models.ProcessingStats) {
	for start := 0; start < len(docs); start += s.fetchConcurrency {
		end := start + s.fetchConcurrency
		if end > len(docs) {
			end = len(docs)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(doc *candidateDoc) {
				defer wg.Done()
				began := time.Now()
				data, err := s.content.Fetch(ctx, doc.fileID)
				stats.AddDownloadTime(time.Since(began))
				if err != nil {
					stats.AddFailedDownload()
					s.logger.Warn().
						Err(err).
						Int("question_id", questionID).
						Str("document", doc.descriptor.Name).
						Msg("Content fetch failed")
					return
				}
				text, err := s.content.ExtractText(data)
				if err != nil {
					stats.AddFailedDownload()
					s.logger.Warn().
						Err(err).
						Int("question_id", questionID).
						Str("document", doc.descriptor.Name).
						Msg("Text extraction failed")
					return
				}
				doc.text = text
			}(&docs[i])
		}
		wg.Wait()

		if end < len(docs) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(fetchChunkPause):
			}
		}
	}
}

// judgeCandidates runs judgment sub-batches and aggregates the verdicts.
// Results land in a slice indexed by candidate position, so completion
// order never affects the aggregated ordering.
func (s *Service) judgeCandidates(ctx context.Context, question models.Question, docs []candidateDoc, stats *models.ProcessingStats) []models.EvidenceCandidate {
	judged := make([]*models.EvidenceCandidate, len(docs))

judging:
	for start := 0; start < len(docs); start += s.judgeConcurrency {
		end := start + s.judgeConcurrency
		if end > len(docs) {
			end = len(docs)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				doc := docs[idx]
				if doc.text == "" {
					return
				}
				began := time.Now()
				candidate, cached, err := s.reasoning.Judge(ctx, question, doc.text, doc.descriptor)
				stats.AddAnalysisTime(time.Since(began))
				if cached {
					stats.AddCacheHit()
				}
				if err != nil {
					stats.AddFailedJudgment()
					s.logger.Warn().
						Err(err).
						Int("question_id", question.ID).
						Str("document", doc.descriptor.Name).
						Msg("Judgment failed")
					return
				}
				if candidate == nil {
					return
				}
				candidate.Relevance = doc.score
				judged[idx] = candidate
				stats.AddEvidence(candidate.Answer)
			}(i)
		}
		wg.Wait()

		if end < len(docs) {
			select {
			case <-ctx.Done():
				break judging
			case <-time.After(judgeChunkPause):
			}
		}
	}

	candidates := make([]models.EvidenceCandidate, 0, len(docs))
	for _, c := range judged {
		if c != nil {
			candidates = append(candidates, *c)
		}
	}
	sortCandidates(candidates)
	return candidates
}

// batchQuestions partitions questions into groups of at most size,
// preserving input order.
func batchQuestions(questions []models.Question, size int) [][]models.Question {
	if size <= 0 {
		size = defaultQuestionBatchSize
	}
	var batches [][]models.Question
	for start := 0; start < len(questions); start += size {
		end := start + size
		if end > len(questions) {
			end = len(questions)
		}
		batches = append(batches, questions[start:end])
	}
	return batches
}

// sortCandidates orders evidence by confidence, then answer, then
// relevance, all descending. The sort is stable so equally ranked
// candidates keep the order they were judged in.
func sortCandidates(candidates []models.EvidenceCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence.Rank() != candidates[j].Confidence.Rank() {
			return candidates[i].Confidence.Rank() > candidates[j].Confidence.Rank()
		}
		if candidates[i].Answer.Rank() != candidates[j].Answer.Rank() {
			return candidates[i].Answer.Rank() > candidates[j].Answer.Rank()
		}
		return candidates[i].Relevance > candidates[j].Relevance
	})
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		s.logger.Debug().Err(err).Str("event", string(eventType)).Msg("Event publish failed")
	}
}
