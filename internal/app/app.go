// -----------------------------------------------------------------------
// Application Wiring - Service construction in dependency order
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/handlers"
	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/services/cache"
	"github.com/ternarybob/probo/internal/services/catalog"
	"github.com/ternarybob/probo/internal/services/content"
	"github.com/ternarybob/probo/internal/services/events"
	"github.com/ternarybob/probo/internal/services/extract"
	"github.com/ternarybob/probo/internal/services/llm"
	"github.com/ternarybob/probo/internal/services/pipeline"
	"github.com/ternarybob/probo/internal/services/ranking"
	"github.com/ternarybob/probo/internal/services/reasoning"
	"github.com/ternarybob/probo/internal/services/report"
	"github.com/ternarybob/probo/internal/services/status"
	"github.com/ternarybob/probo/internal/services/store"
)

// App holds all application components and dependencies
type App struct {
	Config    *common.Config
	Logger    arbor.ILogger
	ctx       context.Context
	cancelCtx context.CancelFunc

	// Event-driven services
	EventService interfaces.EventService
	LogRelay     *handlers.LogRelay

	// Evidence sources
	StoreService   *store.Service
	ExtractService *extract.Service
	CatalogService *catalog.Service
	ContentService *content.Service

	// Question processing
	LLMService       interfaces.LLMService
	RankingService   *ranking.Service
	ReasoningService *reasoning.Service
	PipelineService  *pipeline.Service

	// Reporting and status
	ReportService *report.Service
	StatusService *status.Service

	// Cache maintenance
	Sweeper *cache.Sweeper

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	ProcessHandler *handlers.ProcessHandler
	StatusHandler  *handlers.StatusHandler
	CacheHandler   *handlers.CacheHandler
	ReportHandler  *handlers.ReportHandler
	WSHandler      *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}
	app.ctx, app.cancelCtx = context.WithCancel(context.Background())

	// Event bus first: every later component either publishes or subscribes.
	app.EventService = events.NewService(app.Logger)

	// Progress events land in the service log regardless of connected clients.
	logSubscriber := events.NewLoggerSubscriber(app.Logger)
	for _, eventType := range []interfaces.EventType{
		interfaces.EventRunStarted,
		interfaces.EventQuestionsExtracted,
		interfaces.EventBatchStarted,
		interfaces.EventQuestionCompleted,
		interfaces.EventRunCompleted,
		interfaces.EventCachesCleared,
	} {
		if err := app.EventService.Subscribe(eventType, logSubscriber); err != nil {
			app.Logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to subscribe logger to event")
		}
	}

	// WebSocket handler subscribes before any publisher exists, so no
	// event falls between startup and the first connected client.
	app.WSHandler = handlers.NewWebSocketHandler(app.EventService, &app.Config.WebSocket, app.Logger)

	// Log relay: arbor log batches become log_entry events on the bus.
	app.LogRelay = handlers.NewLogRelay(app.EventService, &app.Config.WebSocket, app.Logger)
	app.LogRelay.Start()
	app.Logger.SetChannel("websocket", app.LogRelay.GetChannel())
	app.Logger.Debug().
		Int("channel_capacity", cap(app.LogRelay.GetChannel())).
		Msg("Log relay attached to arbor channel")

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().
		Str("provider", string(cfg.LLM.DefaultProvider)).
		Int("catalog_documents", app.CatalogService.Count()).
		Msg("Application initialization complete")

	return app, nil
}

// initServices initializes all business services in dependency order.
//
// Construction follows the data path: the document store and catalog feed
// content resolution, ranking selects candidate documents, reasoning judges
// them against questions, and the pipeline orchestrates the whole run.
func (a *App) initServices() error {
	var err error

	// LLM provider per config (Gemini or Claude)
	a.LLMService, err = llm.NewLLMService(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	a.Logger.Debug().Str("provider", a.LLMService.GetProvider()).Msg("LLM service initialized")

	// Document store (Google Drive)
	a.StoreService, err = store.NewService(a.ctx, &a.Config.Store, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store service: %w", err)
	}

	// Text extraction from stored document bytes
	a.ExtractService = extract.NewService(a.Logger)

	// Catalog of evidence descriptors
	a.CatalogService, err = catalog.NewService(&a.Config.Catalog, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	a.Logger.Debug().Int("documents", a.CatalogService.Count()).Msg("Catalog loaded")

	// Keyword ranking over catalog descriptors
	a.RankingService = ranking.NewService(a.Logger)

	// Content resolution and caching over the document store
	a.ContentService = content.NewService(
		a.StoreService,
		a.ExtractService,
		a.Config.Store.RootFolderID,
		a.Config.Content.DownloadConcurrency,
		a.Logger,
	)

	// Reasoning dispatcher owns the LLM request queue
	a.ReasoningService = reasoning.NewService(a.LLMService, &a.Config.Reasoning, a.Logger)

	// Pipeline orchestrator
	a.PipelineService = pipeline.NewService(
		a.RankingService,
		a.ContentService,
		a.ReasoningService,
		a.EventService,
		&a.Config.Pipeline,
		a.Logger,
	)

	// PDF report rendering
	a.ReportService = report.NewService(a.Logger)

	// Status service derives run state from bus events
	a.StatusService = status.NewService(
		a.EventService,
		a.RankingService,
		a.ContentService,
		a.ReasoningService,
		a.CatalogService,
		string(a.Config.LLM.DefaultProvider),
		a.Logger,
	)
	a.StatusService.SubscribeToPipelineEvents()
	a.Logger.Debug().Msg("Status service initialized")

	// Cache sweeper evicts expired entries on a cron schedule
	a.Sweeper, err = cache.NewSweeper(a.Config.Cache.SweepSchedule, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cache sweeper: %w", err)
	}
	a.Sweeper.Register(a.RankingService.RankingCache())
	a.Sweeper.Register(a.ContentService.Caches()...)
	a.Sweeper.Register(a.ReasoningService.Caches()...)
	a.Sweeper.Start()

	return nil
}

// initHandlers constructs the HTTP surface over the services.
func (a *App) initHandlers() {
	production := a.Config.IsProduction()

	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.ProcessHandler = handlers.NewProcessHandler(
		a.ReasoningService,
		a.PipelineService,
		a.CatalogService,
		a.ExtractService,
		production,
		a.Logger,
	)
	a.StatusHandler = handlers.NewStatusHandler(a.StatusService, a.Logger)
	a.CacheHandler = handlers.NewCacheHandler(
		a.RankingService,
		a.ContentService,
		a.ReasoningService,
		a.EventService,
		a.Logger,
	)
	a.ReportHandler = handlers.NewReportHandler(a.ReportService, production, a.Logger)
}

// Close closes all application resources
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application")

	// Cancel in-flight store calls
	if a.cancelCtx != nil {
		a.cancelCtx()
	}

	// Stop the sweeper before the caches it sweeps
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}

	// Reasoning drains its queue; stop it before the LLM client closes
	if a.ReasoningService != nil {
		a.ReasoningService.Stop()
		a.Logger.Info().Msg("Reasoning service stopped")
	}

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}

	// The relay publishes to the bus, so it stops first
	if a.LogRelay != nil {
		a.LogRelay.Stop()
		a.Logger.Info().Msg("Log relay stopped")
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}
