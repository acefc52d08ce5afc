package main

import (
	"fmt"
	"strings"

	"github.com/ternarybob/probo/internal/models"
)

// formatPolicies formats the catalog listing as markdown
func formatPolicies(category string, docs []models.DocumentDescriptor) string {
	var sb strings.Builder
	if category != "" {
		sb.WriteString(fmt.Sprintf("## Policy Catalog - %s (%d documents)\n\n", category, len(docs)))
	} else {
		sb.WriteString(fmt.Sprintf("## Policy Catalog (%d documents)\n\n", len(docs)))
	}

	if len(docs) == 0 {
		sb.WriteString("No documents found.\n")
		return sb.String()
	}

	for i, doc := range docs {
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, doc.Name))
		sb.WriteString(fmt.Sprintf("**Folder:** %s\n", doc.Subfolder))
		sb.WriteString(fmt.Sprintf("**Category:** %s\n", doc.Category))
		if len(doc.Keywords) > 0 {
			sb.WriteString(fmt.Sprintf("**Keywords:** %s\n", strings.Join(doc.Keywords, ", ")))
		}
		if doc.Description != "" {
			sb.WriteString(fmt.Sprintf("\n%s\n", doc.Description))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatRankedDocuments formats ranking results as markdown
func formatRankedDocuments(question string, ranked []models.ScoredDocument) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Ranked Evidence for \"%s\" (%d candidates)\n\n", question, len(ranked)))

	if len(ranked) == 0 {
		sb.WriteString("No catalog document scored above zero for this question.\n")
		return sb.String()
	}

	for i, doc := range ranked {
		sb.WriteString(fmt.Sprintf("%d. **%s** (%s) - score %d\n", i+1, doc.Descriptor.Name, doc.Descriptor.Subfolder, doc.Score))
		if doc.Descriptor.Description != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", doc.Descriptor.Description))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatEvaluation formats a single-question pipeline result as markdown
func formatEvaluation(question string, candidates []models.EvidenceCandidate, stats models.StatsSnapshot) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Evaluation of \"%s\"\n\n", question))

	if len(candidates) == 0 {
		sb.WriteString("No supporting evidence found in the document corpus.\n\n")
	}

	for i, candidate := range candidates {
		sb.WriteString(fmt.Sprintf("### %d. %s (%s)\n", i+1, candidate.DocumentName, candidate.Subfolder))
		sb.WriteString(fmt.Sprintf("**Answer:** %s | **Confidence:** %s | **Relevance:** %d\n\n",
			candidate.Answer, candidate.Confidence, candidate.Relevance))
		if candidate.Evidence != "" {
			sb.WriteString(fmt.Sprintf("> %s\n\n", candidate.Evidence))
		}
		if candidate.PageReference != "" {
			sb.WriteString(fmt.Sprintf("**Page:** %s\n\n", candidate.PageReference))
		}
		if candidate.Explanation != "" {
			sb.WriteString(candidate.Explanation)
			sb.WriteString("\n\n")
		}
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("**Stats:** %d documents checked, %d cache hits, %d failed downloads, %d failed judgments\n",
		stats.DocumentsChecked, stats.CacheHits, stats.FailedDownloads, stats.FailedJudgments))

	return sb.String()
}
