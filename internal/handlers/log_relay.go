// -----------------------------------------------------------------------
// Log Relay - Arbor log batches republished as progress stream events
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	arborlevels "github.com/ternarybob/arbor/levels"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/interfaces"
)

// relayChannelCapacity bounds the arbor batch channel. Arbor drops batches
// when the channel is full rather than blocking the logger.
const relayChannelCapacity = 100

// excludedLogPatterns keeps connection and bus chatter out of the stream.
// A log line about broadcasting would otherwise trigger another broadcast.
var excludedLogPatterns = []string{
	"WebSocket client connected",
	"WebSocket client disconnected",
	"Failed to write to WebSocket client",
	"HTTP request",
	"HTTP response",
	"Publishing event",
	"Event handler subscribed",
}

// LogRelay consumes log batches from arbor's channel and republishes lines
// at or above the configured level as log_entry events. The WebSocket
// handler subscribes to those and pushes them to clients.
type LogRelay struct {
	logger   arbor.ILogger
	events   interfaces.EventService
	channel  chan []arbormodels.LogEvent
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	minLevel arborlevels.LogLevel
}

func NewLogRelay(events interfaces.EventService, wsConfig *common.WebSocketConfig, logger arbor.ILogger) *LogRelay {
	minLevel := arborlevels.InfoLevel
	if wsConfig != nil && wsConfig.MinLevel != "" {
		minLevel = parseLogLevel(wsConfig.MinLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &LogRelay{
		logger:   logger,
		events:   events,
		channel:  make(chan []arbormodels.LogEvent, relayChannelCapacity),
		ctx:      ctx,
		cancel:   cancel,
		minLevel: minLevel,
	}
}

// GetChannel returns the channel to hand to arbor's SetChannel.
func (r *LogRelay) GetChannel() chan []arbormodels.LogEvent {
	return r.channel
}

// Start launches the relay goroutine.
func (r *LogRelay) Start() {
	r.wg.Add(1)
	go r.consume()
}

// Stop shuts the relay down and waits for the in-flight batch.
func (r *LogRelay) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *LogRelay) consume() {
	defer r.wg.Done()

	for {
		select {
		case batch, ok := <-r.channel:
			if !ok {
				return
			}
			for _, event := range batch {
				r.relay(event)
			}
		case <-r.ctx.Done():
			return
		}
	}
}

// relay republishes one log event when it clears the level and pattern
// filters. Publish errors are swallowed: a log line must never fail a
// caller.
func (r *LogRelay) relay(event arbormodels.LogEvent) {
	level := arborlevels.FromLogLevel(event.Level)
	if level < r.minLevel {
		return
	}

	for _, pattern := range excludedLogPatterns {
		if strings.Contains(event.Message, pattern) {
			return
		}
	}

	r.events.Publish(r.ctx, interfaces.Event{
		Type: interfaces.EventLogEntry,
		Payload: LogEntry{
			Timestamp: event.Timestamp.Format("15:04:05"),
			Level:     mapLevel(level),
			Message:   event.Message,
		},
	})
}

// parseLogLevel converts a configured level name to an arbor level.
func parseLogLevel(level string) arborlevels.LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return arborlevels.ErrorLevel
	case "warn", "warning":
		return arborlevels.WarnLevel
	case "info":
		return arborlevels.InfoLevel
	case "debug":
		return arborlevels.DebugLevel
	default:
		return arborlevels.InfoLevel
	}
}

// mapLevel maps arbor log levels to stream strings.
func mapLevel(level arborlevels.LogLevel) string {
	switch level {
	case arborlevels.ErrorLevel:
		return "error"
	case arborlevels.WarnLevel:
		return "warn"
	case arborlevels.InfoLevel:
		return "info"
	case arborlevels.DebugLevel:
		return "debug"
	default:
		return "info"
	}
}
