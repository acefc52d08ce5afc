// -----------------------------------------------------------------------
// Report Markdown - Evidence run results composed as a markdown document
// -----------------------------------------------------------------------

package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/probo/internal/models"
)

const defaultReportTitle = "Evidence Assessment Report"

// buildMarkdown composes the report document. The PDF writer consumes the
// result, so table cells must stay single-line with pipes escaped.
func buildMarkdown(report models.EvidenceReport, now time.Time) string {
	var b strings.Builder

	title := strings.TrimSpace(report.Title)
	if title == "" {
		title = defaultReportTitle
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Generated %s\n\n", now.UTC().Format("2 January 2006 15:04 UTC"))

	if report.Stats != nil {
		writeSummary(&b, report.Stats)
	}

	answered := 0
	for _, q := range report.Questions {
		if len(report.Evidence[q.ID]) > 0 {
			answered++
		}
	}
	fmt.Fprintf(&b, "%d of %d questions matched supporting evidence.\n\n", answered, len(report.Questions))
	b.WriteString("---\n\n")

	for _, q := range report.Questions {
		writeQuestion(&b, q, report.Evidence[q.ID])
	}

	return b.String()
}

func writeSummary(b *strings.Builder, stats *models.StatsSnapshot) {
	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	fmt.Fprintf(b, "| Questions processed | %d |\n", stats.QuestionsProcessed)
	fmt.Fprintf(b, "| Documents checked | %d |\n", stats.DocumentsChecked)
	fmt.Fprintf(b, "| Evidence found | %d |\n", stats.EvidenceFound)
	fmt.Fprintf(b, "| Compliant answers | %d |\n", stats.CompliantCount)
	fmt.Fprintf(b, "| Non-compliant answers | %d |\n", stats.NonCompliantCount)
	fmt.Fprintf(b, "| Cache hits | %d |\n", stats.CacheHits)
	fmt.Fprintf(b, "| Failed downloads | %d |\n", stats.FailedDownloads)
	fmt.Fprintf(b, "| Failed judgments | %d |\n", stats.FailedJudgments)
	b.WriteString("\n")
}

func writeQuestion(b *strings.Builder, q models.Question, candidates []models.EvidenceCandidate) {
	fmt.Fprintf(b, "## %d. %s\n\n", q.ID, strings.TrimSpace(q.Text))
	if q.Category != "" {
		fmt.Fprintf(b, "Category: %s\n\n", q.Category)
	}

	if len(candidates) == 0 {
		b.WriteString("No supporting evidence found.\n\n")
		return
	}

	b.WriteString("| Document | Answer | Confidence | Evidence | Page |\n")
	b.WriteString("| --- | --- | --- | --- | --- |\n")
	for _, c := range candidates {
		name := c.DocumentName
		if c.Subfolder != "" {
			name = c.DocumentName + " (" + c.Subfolder + ")"
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n",
			cell(name), cell(string(c.Answer)), cell(string(c.Confidence)), cell(c.Evidence), cell(c.PageReference))
	}
	b.WriteString("\n")
}

// cell flattens a value for use inside a markdown table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "-"
	}
	return s
}
