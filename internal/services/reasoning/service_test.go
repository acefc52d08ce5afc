package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

// fakeLLM scripts model responses per call. A non-nil gate blocks every
// call until the gate closes, which lets tests observe queue state.
type fakeLLM struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	respond func(call int, prompt string) (string, error)
	gate    chan struct{}
}

var _ interfaces.LLMService = (*fakeLLM)(nil)

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	respond := f.respond
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if respond == nil {
		return "[]", nil
	}
	return respond(call, prompt)
}

func (f *fakeLLM) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeLLM) GetProvider() string                   { return "fake" }
func (f *fakeLLM) Close() error                          { return nil }

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeLLM) promptAt(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.prompts) {
		return ""
	}
	return f.prompts[i]
}

// newTestService builds a dispatcher with retries disabled so scripted
// failures stay fast. Retry tests pass their own config.
func newTestService(t *testing.T, llm interfaces.LLMService, cfg *common.ReasoningConfig) *Service {
	t.Helper()
	if cfg == nil {
		cfg = &common.ReasoningConfig{Concurrency: 3, MaxRetries: 0}
	}
	s := NewService(llm, cfg, common.GetLogger())
	t.Cleanup(s.Stop)
	return s
}

func questionJSON(id int, text string) string {
	return fmt.Sprintf(`{"id": %d, "text": %q, "category": "security", "keywords": ["k"], "description": "d"}`, id, text)
}

func TestExtractQuestionsSingleChunk(t *testing.T) {
	llm := &fakeLLM{
		respond: func(_ int, _ string) (string, error) {
			return `[` + questionJSON(9, "Do you encrypt backups?") + `, ` + questionJSON(2, "Who owns key rotation?") + `]`, nil
		},
	}
	s := newTestService(t, llm, nil)

	questions, err := s.ExtractQuestions(context.Background(), "Do you encrypt backups? Who owns key rotation?", "vendor-questionnaire.pdf")
	require.NoError(t, err)
	require.Len(t, questions, 2)

	// Ids renumber sequentially regardless of what the model assigned.
	assert.Equal(t, 1, questions[0].ID)
	assert.Equal(t, 2, questions[1].ID)
	assert.Equal(t, "Do you encrypt backups?", questions[0].Text)
	assert.Equal(t, 1, llm.callCount())
	assert.Contains(t, llm.promptAt(0), "vendor-questionnaire.pdf")
	assert.Contains(t, llm.promptAt(0), "Do you encrypt backups?")
}

func TestExtractQuestionsEmptyTextRejected(t *testing.T) {
	llm := &fakeLLM{}
	s := newTestService(t, llm, nil)

	_, err := s.ExtractQuestions(context.Background(), "   \n", "empty.pdf")
	require.Error(t, err)
	assert.Equal(t, models.ErrorKindValidation, models.KindOf(err))
	assert.Equal(t, 0, llm.callCount())
}

func TestExtractQuestionsRenumbersAcrossChunks(t *testing.T) {
	text := strings.Repeat("a", extractionChunkSize) +
		strings.Repeat("b", extractionChunkSize) +
		strings.Repeat("c", 10001)

	llm := &fakeLLM{
		respond: func(_ int, prompt string) (string, error) {
			switch {
			case strings.Contains(prompt, "aaaa"):
				return `[` + questionJSON(1, "QA?") + `, ` + questionJSON(2, "QB?") + `]`, nil
			case strings.Contains(prompt, "bbbb"):
				return `[` + questionJSON(1, "QC?") + `]`, nil
			default:
				return `[` + questionJSON(9, "QD?") + `]`, nil
			}
		},
	}
	s := newTestService(t, llm, nil)

	questions, err := s.ExtractQuestions(context.Background(), text, "big.pdf")
	require.NoError(t, err)
	require.Len(t, questions, 4)

	assert.Equal(t, 3, llm.callCount())
	for i, q := range questions {
		assert.Equal(t, i+1, q.ID)
	}
	assert.Equal(t, []string{"QA?", "QB?", "QC?", "QD?"}, []string{
		questions[0].Text, questions[1].Text, questions[2].Text, questions[3].Text,
	})
}

func TestExtractQuestionsSurvivesFailedChunk(t *testing.T) {
	text := strings.Repeat("a", extractionChunkSize) +
		strings.Repeat("b", extractionChunkSize) +
		strings.Repeat("c", 10001)

	llm := &fakeLLM{
		respond: func(_ int, prompt string) (string, error) {
			if strings.Contains(prompt, "bbbb") {
				return "", errors.New("model overloaded")
			}
			if strings.Contains(prompt, "aaaa") {
				return `[` + questionJSON(1, "QA?") + `]`, nil
			}
			return `[` + questionJSON(1, "QD?") + `]`, nil
		},
	}
	s := newTestService(t, llm, nil)

	questions, err := s.ExtractQuestions(context.Background(), text, "big.pdf")
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, 1, questions[0].ID)
	assert.Equal(t, 2, questions[1].ID)
	assert.Equal(t, []string{"QA?", "QD?"}, []string{questions[0].Text, questions[1].Text})
}

func TestExtractQuestionsAllChunksFailedSurfacesError(t *testing.T) {
	llm := &fakeLLM{
		respond: func(_ int, _ string) (string, error) {
			return "", errors.New("model unavailable")
		},
	}
	s := newTestService(t, llm, nil)

	_, err := s.ExtractQuestions(context.Background(), "Is there a DR plan?", "dr.pdf")
	require.Error(t, err)
	assert.Equal(t, models.ErrorKindUpstream, models.KindOf(err))
	assert.Equal(t, 1, llm.callCount())
}

func TestDispatchRetriesAfterFailure(t *testing.T) {
	llm := &fakeLLM{
		respond: func(call int, _ string) (string, error) {
			if call == 0 {
				return "", errors.New("transient")
			}
			return `[` + questionJSON(1, "Q?") + `]`, nil
		},
	}
	s := newTestService(t, llm, &common.ReasoningConfig{Concurrency: 3, MaxRetries: 1})

	start := time.Now()
	questions, err := s.ExtractQuestions(context.Background(), "Q?", "retry.pdf")
	require.NoError(t, err)
	assert.Len(t, questions, 1)
	assert.Equal(t, 2, llm.callCount())
	// One backoff interval of 1000ms separates the attempts.
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}

func TestDispatchRetryExhaustionSurfacesUpstreamError(t *testing.T) {
	llm := &fakeLLM{
		respond: func(_ int, _ string) (string, error) {
			return "", errors.New("hard down")
		},
	}
	s := newTestService(t, llm, &common.ReasoningConfig{Concurrency: 3, MaxRetries: 1})

	_, err := s.ExtractQuestions(context.Background(), "Q?", "down.pdf")
	require.Error(t, err)
	assert.Equal(t, models.ErrorKindUpstream, models.KindOf(err))
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, 2, llm.callCount())
}

func judgmentYes() string {
	return `{"hasAnswer": true, "answer": "yes", "evidence": "Data is encrypted at rest.", "pageReference": "p. 2", "confidence": "high", "explanation": "Stated in section 4."}`
}

func testQuestion() models.Question {
	return models.Question{
		ID:               1,
		Text:             "Do you encrypt data at rest?",
		Category:         "encryption",
		Keywords:         []string{"encryption", "at rest"},
		Description:      "Encryption-at-rest statement",
		RequiresEvidence: true,
	}
}

func testDescriptor() models.DocumentDescriptor {
	return models.DocumentDescriptor{
		Subfolder: "Policies",
		Name:      "Information Security Policy",
		Category:  "security",
	}
}

func TestJudgeReturnsCandidate(t *testing.T) {
	llm := &fakeLLM{
		respond: func(_ int, _ string) (string, error) { return judgmentYes(), nil },
	}
	s := newTestService(t, llm, nil)

	cand, cached, err := s.Judge(context.Background(), testQuestion(), "All customer data is encrypted at rest using AES-256.", testDescriptor())
	require.NoError(t, err)
	require.NotNil(t, cand)
	assert.False(t, cached)

	assert.Equal(t, "Information Security Policy", cand.DocumentName)
	assert.Equal(t, "Policies", cand.Subfolder)
	assert.Equal(t, models.AnswerYes, cand.Answer)
	assert.Equal(t, models.ConfidenceHigh, cand.Confidence)
	assert.Equal(t, "Data is encrypted at rest.", cand.Evidence)
	assert.Equal(t, "p. 2", cand.PageReference)
	assert.Equal(t, 0, cand.Relevance)

	assert.Contains(t, llm.promptAt(0), "Do you encrypt data at rest?")
	assert.Contains(t, llm.promptAt(0), "Information Security Policy")
}

func TestJudgeNoEvidenceReturnsNilAndCaches(t *testing.T) {
	llm := &fakeLLM{
		respond: func(_ int, _ string) (string, error) {
			return `{"hasAnswer": false, "confidence": "high"}`, nil
		},
	}
	s := newTestService(t, llm, nil)

	cand, cached, err := s.Judge(context.Background(), testQuestion(), "This document covers office seating.", testDescriptor())
	require.NoError(t, err)
	assert.Nil(t, cand)
	assert.False(t, cached)
	assert.Equal(t, 1, s.CacheSize())

	// The negative verdict is served from cache.
	cand, cached, err = s.Judge(context.Background(), testQuestion(), "This document covers office seating.", testDescriptor())
	require.NoError(t, err)
	assert.Nil(t, cand)
	assert.True(t, cached)
	assert.Equal(t, 1, llm.callCount())
}

func TestJudgeServesRepeatsFromCache(t *testing.T) {
	llm := &fakeLLM{
		respond: func(_ int, _ string) (string, error) { return judgmentYes(), nil },
	}
	s := newTestService(t, llm, nil)

	first, cached, err := s.Judge(context.Background(), testQuestion(), "Data is encrypted at rest.", testDescriptor())
	require.NoError(t, err)
	require.NotNil(t, first)
	require.False(t, cached)

	// Callers receive copies: mutating a result must not poison the cache.
	first.Relevance = 99

	second, cached, err := s.Judge(context.Background(), testQuestion(), "Data is encrypted at rest.", testDescriptor())
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.True(t, cached)
	assert.Equal(t, 0, second.Relevance)
	assert.Equal(t, first.Evidence, second.Evidence)
	assert.Equal(t, 1, llm.callCount())
}

func TestJudgeCacheKeyedByLeadingContent(t *testing.T) {
	llm := &fakeLLM{
		respond: func(_ int, _ string) (string, error) { return judgmentYes(), nil },
	}
	s := newTestService(t, llm, nil)

	prefix := strings.Repeat("p", judgmentKeyPrefixLen)
	_, cached, err := s.Judge(context.Background(), testQuestion(), prefix+" tail one", testDescriptor())
	require.NoError(t, err)
	assert.False(t, cached)

	// Same first 1000 runes, different tail: served from cache.
	_, cached, err = s.Judge(context.Background(), testQuestion(), prefix+" a very different tail", testDescriptor())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, llm.callCount())

	// Different leading content: a fresh call.
	_, cached, err = s.Judge(context.Background(), testQuestion(), "q"+prefix, testDescriptor())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, llm.callCount())
}

func TestJudgeEmptyDocumentTextSkipsModel(t *testing.T) {
	llm := &fakeLLM{}
	s := newTestService(t, llm, nil)

	cand, _, err := s.Judge(context.Background(), testQuestion(), "   ", testDescriptor())
	require.NoError(t, err)
	assert.Nil(t, cand)
	assert.Equal(t, 0, llm.callCount())
}

func TestJudgeNormalizesVerdictCase(t *testing.T) {
	llm := &fakeLLM{
		respond: func(_ int, _ string) (string, error) {
			return `{"hasAnswer": true, "answer": " Yes ", "evidence": "e", "confidence": "HIGH", "explanation": "x"}`, nil
		},
	}
	s := newTestService(t, llm, nil)

	cand, _, err := s.Judge(context.Background(), testQuestion(), "Encrypted.", testDescriptor())
	require.NoError(t, err)
	require.NotNil(t, cand)
	assert.Equal(t, models.AnswerYes, cand.Answer)
	assert.Equal(t, models.ConfidenceHigh, cand.Confidence)
}

func TestJudgeUpstreamFailureNotCached(t *testing.T) {
	llm := &fakeLLM{
		respond: func(_ int, _ string) (string, error) {
			return "", errors.New("provider down")
		},
	}
	s := newTestService(t, llm, nil)

	_, _, err := s.Judge(context.Background(), testQuestion(), "Some text.", testDescriptor())
	require.Error(t, err)
	assert.Equal(t, models.ErrorKindUpstream, models.KindOf(err))
	assert.Equal(t, 0, s.CacheSize())

	_, _, err = s.Judge(context.Background(), testQuestion(), "Some text.", testDescriptor())
	require.Error(t, err)
	assert.Equal(t, 2, llm.callCount())
}

func TestJudgeMalformedResponseDataIntegrity(t *testing.T) {
	llm := &fakeLLM{
		respond: func(_ int, _ string) (string, error) {
			return "I am unable to evaluate this document.", nil
		},
	}
	s := newTestService(t, llm, nil)

	_, _, err := s.Judge(context.Background(), testQuestion(), "Some text.", testDescriptor())
	require.Error(t, err)
	assert.Equal(t, models.ErrorKindDataIntegrity, models.KindOf(err))
}

func TestJudgeExcerptsOversizedDocuments(t *testing.T) {
	text := "EARLYSENTINEL " + strings.Repeat("x", 25000) +
		" encryption standard applies " + strings.Repeat("y", 10000)

	llm := &fakeLLM{
		respond: func(_ int, _ string) (string, error) { return judgmentYes(), nil },
	}
	s := newTestService(t, llm, nil)

	_, _, err := s.Judge(context.Background(), testQuestion(), text, testDescriptor())
	require.NoError(t, err)

	prompt := llm.promptAt(0)
	assert.Contains(t, prompt, "encryption standard applies")
	assert.NotContains(t, prompt, "EARLYSENTINEL")
}

func TestQueueDepthReflectsWaitingCalls(t *testing.T) {
	gate := make(chan struct{})
	llm := &fakeLLM{
		gate: gate,
		respond: func(_ int, _ string) (string, error) {
			return `{"hasAnswer": false, "confidence": "low"}`, nil
		},
	}
	s := newTestService(t, llm, &common.ReasoningConfig{Concurrency: 1, MaxRetries: 0})

	var wg sync.WaitGroup
	for _, text := range []string{"doc one text", "doc two text", "doc three text"} {
		wg.Add(1)
		go func(docText string) {
			defer wg.Done()
			_, _, err := s.Judge(context.Background(), testQuestion(), docText, testDescriptor())
			assert.NoError(t, err)
		}(text)
	}

	// One call occupies the single slot; the other two wait.
	assert.Eventually(t, func() bool { return s.QueueDepth() == 2 }, 2*time.Second, 10*time.Millisecond)

	close(gate)
	wg.Wait()
	assert.Equal(t, 0, s.QueueDepth())
	assert.Equal(t, 3, llm.callCount())
}

func TestCurrentDelayStartsAtInitialPause(t *testing.T) {
	s := newTestService(t, &fakeLLM{}, nil)
	assert.Equal(t, 1000*time.Millisecond, s.CurrentDelay())
}

func TestClearCacheDropsJudgments(t *testing.T) {
	llm := &fakeLLM{
		respond: func(_ int, _ string) (string, error) { return judgmentYes(), nil },
	}
	s := newTestService(t, llm, nil)

	_, _, err := s.Judge(context.Background(), testQuestion(), "Encrypted.", testDescriptor())
	require.NoError(t, err)
	require.Equal(t, 1, s.CacheSize())

	assert.Equal(t, 1, s.ClearCache())
	assert.Equal(t, 0, s.CacheSize())
}

func TestCachesExposesJudgmentStore(t *testing.T) {
	s := newTestService(t, &fakeLLM{}, nil)

	caches := s.Caches()
	require.Len(t, caches, 1)
	assert.Equal(t, "judgments", caches[0].Name())
}

func TestStopTerminatesDrainLoop(t *testing.T) {
	s := NewService(&fakeLLM{}, &common.ReasoningConfig{Concurrency: 3, MaxRetries: 0}, common.GetLogger())

	done := make(chan struct{})
	go func() {
		s.Stop()
		s.Stop() // idempotent
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
