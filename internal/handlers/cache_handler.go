// -----------------------------------------------------------------------
// Cache Handler - On-demand cache clearing across pipeline services
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/interfaces"
)

// CacheHandler drops every pipeline cache on demand: rankings, content
// store listings and payloads, and reasoning judgments.
type CacheHandler struct {
	logger    arbor.ILogger
	ranking   interfaces.RankingService
	content   interfaces.ContentStore
	reasoning interfaces.ReasoningService
	events    interfaces.EventService
}

func NewCacheHandler(ranking interfaces.RankingService, content interfaces.ContentStore, reasoning interfaces.ReasoningService, events interfaces.EventService, logger arbor.ILogger) *CacheHandler {
	return &CacheHandler{
		logger:    logger,
		ranking:   ranking,
		content:   content,
		reasoning: reasoning,
		events:    events,
	}
}

// ClearCachesHandler handles POST /api/cache/clear.
func (h *CacheHandler) ClearCachesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	cleared := map[string]int{
		"ranking":   h.ranking.ClearCache(),
		"content":   h.content.ClearCaches(),
		"judgments": h.reasoning.ClearCache(),
	}

	total := 0
	for _, n := range cleared {
		total += n
	}

	h.logger.Info().Int("entries", total).Msg("Caches cleared")

	if h.events != nil {
		event := interfaces.Event{
			Type: interfaces.EventCachesCleared,
			Payload: map[string]interface{}{
				"cleared": cleared,
				"total":   total,
			},
		}
		if err := h.events.Publish(r.Context(), event); err != nil {
			h.logger.Debug().Err(err).Msg("Event publish failed")
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"cleared": cleared,
		"total":   total,
	})
}
