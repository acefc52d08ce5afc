// -----------------------------------------------------------------------
// Reasoning Dispatcher - Queued model calls, adaptive pacing, response repair
// -----------------------------------------------------------------------

package reasoning

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
	"github.com/ternarybob/probo/internal/services/cache"
)

const (
	defaultWaveSize   = 3
	defaultMaxRetries = 3

	// retryInitialBackoff doubles per retry: 1000, 2000, 4000ms.
	retryInitialBackoff = 1000 * time.Millisecond

	judgmentCacheTTL = 30 * time.Minute

	// judgmentKeyPrefixLen is how much document text feeds the judgment
	// cache key alongside the question text.
	judgmentKeyPrefixLen = 1000

	requestQueueCapacity = 128
)

// dispatchResult carries one completed model call back to its caller.
type dispatchResult struct {
	text string
	err  error
}

// dispatchRequest is one pending model call in the queue.
type dispatchRequest struct {
	ctx    context.Context
	prompt string
	done   chan dispatchResult
}

// Service dispatches extraction and judgment calls against the configured
// language model. Pending calls queue behind a drain loop that runs them
// in waves of bounded concurrency, adjusting the pause between waves from
// recent call outcomes. Responses pass through the repair pipeline before
// reaching callers.
type Service struct {
	logger arbor.ILogger
	llm    interfaces.LLMService

	judgments *cache.Store
	delay     *delayController

	requests chan *dispatchRequest
	pending  atomic.Int32

	waveSize   int
	maxRetries int

	stop     chan struct{}
	stopOnce sync.Once
	stopped  sync.WaitGroup
}

var _ interfaces.ReasoningService = (*Service)(nil)

// NewService creates the dispatcher and starts its drain loop. Stop must
// be called on shutdown to release the loop.
func NewService(llm interfaces.LLMService, cfg *common.ReasoningConfig, logger arbor.ILogger) *Service {
	waveSize := defaultWaveSize
	maxRetries := defaultMaxRetries
	if cfg != nil {
		if cfg.Concurrency > 0 {
			waveSize = cfg.Concurrency
		}
		if cfg.MaxRetries >= 0 {
			maxRetries = cfg.MaxRetries
		}
	}

	s := &Service{
		logger:     logger,
		llm:        llm,
		judgments:  cache.NewStore("judgments"),
		delay:      newDelayController(),
		requests:   make(chan *dispatchRequest, requestQueueCapacity),
		waveSize:   waveSize,
		maxRetries: maxRetries,
		stop:       make(chan struct{}),
	}

	s.stopped.Add(1)
	go s.run()

	return s
}

// Stop shuts down the drain loop. Queued calls that have not started fail
// with an internal error. Safe to call more than once.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.stopped.Wait()
}

// ExtractQuestions pulls structured questions out of questionnaire text.
// Oversized documents are split into chunks extracted in parallel pairs
// with the adaptive pause between pairs; ids are renumbered sequentially
// across the merged result. A failed chunk drops its questions and the
// rest survive; extraction fails outright only when nothing was
// recovered.
func (s *Service) ExtractQuestions(ctx context.Context, documentText, label string) ([]models.Question, error) {
	if strings.TrimSpace(documentText) == "" {
		return nil, models.NewValidationError("document text is empty")
	}

	chunks := splitDocument(documentText)
	s.logger.Info().
		Str("label", label).
		Int("chunks", len(chunks)).
		Msg("Extracting questions")

	results := make([][]models.Question, len(chunks))
	errs := make([]error, len(chunks))

	for group := 0; group < len(chunks); group += extractionGroupSize {
		end := group + extractionGroupSize
		if end > len(chunks) {
			end = len(chunks)
		}

		var wg sync.WaitGroup
		for i := group; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				results[idx], errs[idx] = s.extractChunk(ctx, chunks[idx], label)
			}(i)
		}
		wg.Wait()

		if end < len(chunks) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.delay.Current()):
			}
		}
	}

	var questions []models.Question
	var firstErr error
	for i := range chunks {
		if errs[i] != nil {
			s.logger.Warn().
				Err(errs[i]).
				Str("label", label).
				Int("chunk", i+1).
				Msg("Chunk extraction failed")
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		questions = append(questions, results[i]...)
	}

	if len(questions) == 0 && firstErr != nil {
		return nil, firstErr
	}

	for i := range questions {
		questions[i].ID = i + 1
	}

	s.logger.Info().
		Str("label", label).
		Int("questions", len(questions)).
		Msg("Question extraction complete")
	return questions, nil
}

func (s *Service) extractChunk(ctx context.Context, chunkText, label string) ([]models.Question, error) {
	raw, err := s.dispatch(ctx, buildExtractionPrompt(chunkText, label))
	if err != nil {
		return nil, err
	}
	return parseExtractionResponse(raw)
}

// Judge evaluates one question against one document's text. Returns nil
// without error when the document holds no evidence. Verdicts, including
// negative ones, are cached per question/content pair so re-processing
// the same question against the same content skips the model entirely;
// the bool reports whether this verdict came from cache.
func (s *Service) Judge(ctx context.Context, question models.Question, documentText string, descriptor models.DocumentDescriptor) (*models.EvidenceCandidate, bool, error) {
	if strings.TrimSpace(documentText) == "" {
		return nil, false, nil
	}

	key := judgmentCacheKey(question.Text, documentText)
	if cached, ok := s.judgments.Get(key); ok {
		cand, _ := cached.(*models.EvidenceCandidate)
		if cand == nil {
			return nil, true, nil
		}
		copied := *cand
		return &copied, true, nil
	}

	excerpt := selectExcerpt(documentText, question.Keywords)
	raw, err := s.dispatch(ctx, buildJudgmentPrompt(question, excerpt, descriptor))
	if err != nil {
		return nil, false, err
	}

	judgment, err := parseJudgmentResponse(raw)
	if err != nil {
		return nil, false, err
	}

	if !*judgment.HasAnswer {
		s.judgments.Set(key, (*models.EvidenceCandidate)(nil), judgmentCacheTTL)
		return nil, false, nil
	}

	candidate := &models.EvidenceCandidate{
		DocumentName:  descriptor.Name,
		Subfolder:     descriptor.Subfolder,
		Answer:        models.Answer(strings.ToLower(strings.TrimSpace(judgment.Answer))),
		Evidence:      judgment.Evidence,
		PageReference: judgment.PageReference,
		Confidence:    models.Confidence(strings.ToLower(strings.TrimSpace(judgment.Confidence))),
		Explanation:   judgment.Explanation,
	}
	s.judgments.Set(key, candidate, judgmentCacheTTL)

	copied := *candidate
	return &copied, false, nil
}

// QueueDepth returns the number of calls waiting for a dispatch slot.
func (s *Service) QueueDepth() int {
	return int(s.pending.Load())
}

// CurrentDelay returns the pause currently applied between dispatch
// waves.
func (s *Service) CurrentDelay() time.Duration {
	return s.delay.Current()
}

// CacheSize returns the number of live judgment-cache entries.
func (s *Service) CacheSize() int {
	return s.judgments.Size()
}

// ClearCache drops all cached judgments and returns how many were
// removed.
func (s *Service) ClearCache() int {
	return s.judgments.Clear()
}

// Caches exposes the judgment cache for sweeper registration.
func (s *Service) Caches() []*cache.Store {
	return []*cache.Store{s.judgments}
}

// dispatch queues one model call and waits for its result.
func (s *Service) dispatch(ctx context.Context, prompt string) (string, error) {
	req := &dispatchRequest{
		ctx:    ctx,
		prompt: prompt,
		done:   make(chan dispatchResult, 1),
	}

	s.pending.Add(1)
	select {
	case s.requests <- req:
	case <-ctx.Done():
		s.pending.Add(-1)
		return "", ctx.Err()
	case <-s.stop:
		s.pending.Add(-1)
		return "", models.NewInternalError("reasoning dispatcher stopped", nil)
	}

	select {
	case res := <-req.done:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.stop:
		return "", models.NewInternalError("reasoning dispatcher stopped", nil)
	}
}

// run is the drain loop. It gathers up to waveSize pending requests, runs
// them concurrently, adjusts the adaptive pause from the wave's outcomes,
// and sleeps that pause before the next wave when more work is queued.
func (s *Service) run() {
	defer s.stopped.Done()

	for {
		var first *dispatchRequest
		select {
		case <-s.stop:
			return
		case first = <-s.requests:
		}

		wave := []*dispatchRequest{first}
	gather:
		for len(wave) < s.waveSize {
			select {
			case req := <-s.requests:
				wave = append(wave, req)
			default:
				break gather
			}
		}
		s.pending.Add(-int32(len(wave)))

		var wg sync.WaitGroup
		for _, req := range wave {
			wg.Add(1)
			go func(r *dispatchRequest) {
				defer wg.Done()
				text, err := s.callWithRetry(r.ctx, r.prompt)
				r.done <- dispatchResult{text: text, err: err}
			}(req)
		}
		wg.Wait()

		pause := s.delay.Adjust()
		if len(s.requests) > 0 {
			select {
			case <-s.stop:
				return
			case <-time.After(pause):
			}
		}
	}
}

// callWithRetry runs one model call with exponential backoff. Every
// attempt's duration and outcome feed the delay controller. Exhausted
// retries surface as an upstream service error.
func (s *Service) callWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	backoff := retryInitialBackoff

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		start := time.Now()
		text, err := s.llm.Generate(ctx, prompt)
		s.delay.Record(time.Since(start), err == nil)

		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt == s.maxRetries {
			break
		}
		s.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Reasoning call failed, retrying")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return "", models.NewUpstreamError(fmt.Sprintf("reasoning call failed after %d attempts", s.maxRetries+1), lastErr)
}

func judgmentCacheKey(questionText, documentText string) string {
	runes := []rune(documentText)
	if len(runes) > judgmentKeyPrefixLen {
		runes = runes[:judgmentKeyPrefixLen]
	}
	return common.HashKey(questionText, string(runes))
}
