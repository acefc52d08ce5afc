package events

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/interfaces"
)

// NewLoggerSubscriber creates an event handler that logs run progress
// events with their common payload fields.
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		var runID, status string
		questionID := -1
		if payload, ok := event.Payload.(map[string]interface{}); ok {
			if id, ok := payload["run_id"].(string); ok {
				runID = id
			}
			if st, ok := payload["status"].(string); ok {
				status = st
			}
			if qid, ok := payload["question_id"].(int); ok {
				questionID = qid
			}
		}

		logEvent := logger.Debug().Str("event_type", string(event.Type))
		if runID != "" {
			logEvent = logEvent.Str("run_id", runID)
		}
		if status != "" {
			logEvent = logEvent.Str("status", status)
		}
		if questionID >= 0 {
			logEvent = logEvent.Int("question_id", questionID)
		}
		logEvent.Msg("Pipeline event")

		return nil
	}
}
