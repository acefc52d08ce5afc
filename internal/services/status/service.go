// -----------------------------------------------------------------------
// Status - Application state and live gauge snapshot
// -----------------------------------------------------------------------

package status

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/interfaces"
)

// AppState says what the application is doing right now.
type AppState string

const (
	StateIdle       AppState = "idle"
	StateProcessing AppState = "processing"
)

// Service tracks the application state from pipeline events and snapshots
// live gauges (cache sizes, queue depths, dispatch pacing) on demand.
type Service struct {
	mu       sync.RWMutex
	state    AppState
	metadata map[string]interface{}
	started  time.Time

	logger    arbor.ILogger
	events    interfaces.EventService
	ranking   interfaces.RankingService
	content   interfaces.ContentStore
	reasoning interfaces.ReasoningService
	catalog   interfaces.CatalogService
	provider  string
}

// NewService creates a status service reading gauges from the given
// collaborators. Call SubscribeToPipelineEvents to track run state.
func NewService(events interfaces.EventService, ranking interfaces.RankingService, content interfaces.ContentStore, reasoning interfaces.ReasoningService, catalog interfaces.CatalogService, provider string, logger arbor.ILogger) *Service {
	return &Service{
		state:     StateIdle,
		metadata:  make(map[string]interface{}),
		started:   time.Now(),
		logger:    logger,
		events:    events,
		ranking:   ranking,
		content:   content,
		reasoning: reasoning,
		catalog:   catalog,
		provider:  provider,
	}
}

// GetState returns the current application state.
func (s *Service) GetState() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState updates the application state, replacing run metadata.
func (s *Service) SetState(state AppState, metadata map[string]interface{}) {
	s.mu.Lock()
	oldState := s.state
	s.state = state
	if metadata != nil {
		s.metadata = metadata
	} else {
		s.metadata = make(map[string]interface{})
	}
	s.mu.Unlock()

	if oldState != state {
		s.logger.Info().
			Str("old_state", string(oldState)).
			Str("new_state", string(state)).
			Msg("Application state changed")
	}
}

// Snapshot assembles the full status payload served by the status endpoint.
func (s *Service) Snapshot() map[string]interface{} {
	s.mu.RLock()
	state := s.state
	metadataCopy := make(map[string]interface{}, len(s.metadata))
	for k, v := range s.metadata {
		metadataCopy[k] = v
	}
	s.mu.RUnlock()

	caches := map[string]int{
		"ranking":   s.ranking.CacheSize(),
		"judgments": s.reasoning.CacheSize(),
	}
	for name, size := range s.content.CacheSizes() {
		caches[name] = size
	}

	return map[string]interface{}{
		"state":             string(state),
		"metadata":          metadataCopy,
		"version":           common.GetVersion(),
		"provider":          s.provider,
		"uptime_seconds":    int(time.Since(s.started).Seconds()),
		"catalog_documents": s.catalog.Count(),
		"caches":            caches,
		"queues": map[string]int{
			"downloads": s.content.QueueDepth(),
			"reasoning": s.reasoning.QueueDepth(),
		},
		"dispatch_delay_ms": s.reasoning.CurrentDelay().Milliseconds(),
		"goroutines":        common.GetGoroutineCount(),
		"timestamp":         time.Now().UTC(),
	}
}

// SubscribeToPipelineEvents wires run lifecycle events into the state
// machine: a starting run flips to processing, completion back to idle,
// batch progress lands in metadata.
func (s *Service) SubscribeToPipelineEvents() {
	s.events.Subscribe(interfaces.EventRunStarted, func(_ context.Context, event interfaces.Event) error {
		metadata := map[string]interface{}{}
		if payload, ok := event.Payload.(map[string]interface{}); ok {
			if runID, ok := payload["run_id"].(string); ok {
				metadata["run_id"] = runID
			}
			if questions, ok := payload["questions"].(int); ok {
				metadata["questions"] = questions
			}
		}
		s.SetState(StateProcessing, metadata)
		return nil
	})

	s.events.Subscribe(interfaces.EventBatchStarted, func(_ context.Context, event interfaces.Event) error {
		payload, ok := event.Payload.(map[string]interface{})
		if !ok {
			return nil
		}
		update := map[string]interface{}{}
		if batch, ok := payload["batch"].(int); ok {
			update["batch"] = batch
		}
		if of, ok := payload["of"].(int); ok {
			update["batches"] = of
		}
		s.mergeMetadata(update)
		return nil
	})

	s.events.Subscribe(interfaces.EventRunCompleted, func(_ context.Context, _ interfaces.Event) error {
		s.SetState(StateIdle, nil)
		return nil
	})

	s.logger.Info().Msg("Status service subscribed to pipeline events")
}

func (s *Service) mergeMetadata(update map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range update {
		s.metadata[k] = v
	}
}
