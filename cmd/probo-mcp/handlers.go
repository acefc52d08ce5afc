package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

// handleListPolicies implements the list_policies tool
func handleListPolicies(catalogService interfaces.CatalogService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		category := request.GetString("category", "")

		docs := catalogService.Documents()
		if category != "" {
			filtered := make([]models.DocumentDescriptor, 0, len(docs))
			for _, doc := range docs {
				if strings.EqualFold(doc.Category, category) {
					filtered = append(filtered, doc)
				}
			}
			docs = filtered
		}

		markdown := formatPolicies(category, docs)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(markdown),
			},
		}, nil
	}
}

// handleRankEvidence implements the rank_evidence tool
func handleRankEvidence(rankingService interfaces.RankingService, catalogService interfaces.CatalogService, defaultLimit int, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		questionText, err := request.RequireString("question")
		if err != nil || questionText == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: question parameter is required"),
				},
			}, nil
		}

		limit := request.GetInt("limit", defaultLimit)

		question := models.Question{ID: 1, Text: questionText}
		ranked := rankingService.Rank(question, catalogService.Documents(), limit)

		markdown := formatRankedDocuments(questionText, ranked)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(markdown),
			},
		}, nil
	}
}

// handleEvaluateQuestion implements the evaluate_question tool
func handleEvaluateQuestion(pipelineService interfaces.PipelineService, catalogService interfaces.CatalogService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		questionText, err := request.RequireString("question")
		if err != nil || questionText == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: question parameter is required"),
				},
			}, nil
		}

		question := models.Question{
			ID:               1,
			Text:             questionText,
			Keywords:         request.GetStringSlice("keywords", nil),
			RequiresEvidence: true,
		}

		evidence, stats, err := pipelineService.Process(ctx, []models.Question{question}, catalogService.Documents())
		if err != nil {
			logger.Error().Err(err).Msg("Pipeline run failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Pipeline error: %v", err)),
				},
			}, nil
		}

		markdown := formatEvaluation(questionText, evidence[question.ID], stats.Snapshot())
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(markdown),
			},
		}, nil
	}
}
