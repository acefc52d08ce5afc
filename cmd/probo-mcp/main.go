package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/services/catalog"
	"github.com/ternarybob/probo/internal/services/content"
	"github.com/ternarybob/probo/internal/services/events"
	"github.com/ternarybob/probo/internal/services/extract"
	"github.com/ternarybob/probo/internal/services/llm"
	"github.com/ternarybob/probo/internal/services/pipeline"
	"github.com/ternarybob/probo/internal/services/ranking"
	"github.com/ternarybob/probo/internal/services/reasoning"
	"github.com/ternarybob/probo/internal/services/store"
)

func main() {
	configPath := os.Getenv("PROBO_CONFIG")
	if configPath == "" {
		configPath = "probo.toml"
	}

	config, err := common.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Minimal logging to avoid cluttering MCP stdio
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn")

	// Catalog and ranker serve list_policies and rank_evidence
	catalogService, err := catalog.NewService(&config.Catalog, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load catalog")
	}

	rankingService := ranking.NewService(logger)

	// evaluate_question runs the full pipeline, so the whole stack comes up
	llmService, err := llm.NewLLMService(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize LLM service")
	}

	storeService, err := store.NewService(context.Background(), &config.Store, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize store service")
	}

	extractService := extract.NewService(logger)
	contentService := content.NewService(
		storeService,
		extractService,
		config.Store.RootFolderID,
		config.Content.DownloadConcurrency,
		logger,
	)

	reasoningService := reasoning.NewService(llmService, &config.Reasoning, logger)
	defer reasoningService.Stop()

	eventService := events.NewService(logger)
	defer eventService.Close()

	pipelineService := pipeline.NewService(
		rankingService,
		contentService,
		reasoningService,
		eventService,
		&config.Pipeline,
		logger,
	)

	// Create MCP server
	mcpServer := server.NewMCPServer(
		"probo",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createListPoliciesTool(), handleListPolicies(catalogService, logger))
	mcpServer.AddTool(createRankEvidenceTool(), handleRankEvidence(rankingService, catalogService, config.Pipeline.MaxCandidates, logger))
	mcpServer.AddTool(createEvaluateQuestionTool(), handleEvaluateQuestion(pipelineService, catalogService, logger))

	// Start server (blocks on stdio)
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
