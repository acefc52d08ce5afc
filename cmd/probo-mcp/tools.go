package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createListPoliciesTool returns the list_policies tool definition
func createListPoliciesTool() mcp.Tool {
	return mcp.NewTool("list_policies",
		mcp.WithDescription("List the policy catalog: every reference document the evidence pipeline can draw on"),
		mcp.WithString("category",
			mcp.Description("Filter by compliance category (e.g. encryption, access control)"),
		),
	)
}

// createRankEvidenceTool returns the rank_evidence tool definition
func createRankEvidenceTool() mcp.Tool {
	return mcp.NewTool("rank_evidence",
		mcp.WithDescription("Rank catalog documents by relevance to a compliance question without fetching any content"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Compliance question text"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum documents to return (default: configured max candidates)"),
		),
	)
}

// createEvaluateQuestionTool returns the evaluate_question tool definition
func createEvaluateQuestionTool() mcp.Tool {
	return mcp.NewTool("evaluate_question",
		mcp.WithDescription("Run the full evidence pipeline for one question and return judged evidence candidates with quotes"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Compliance question text"),
		),
		mcp.WithArray("keywords",
			mcp.WithStringItems(),
			mcp.Description("Optional keywords guiding ranking and excerpt selection"),
		),
	)
}
