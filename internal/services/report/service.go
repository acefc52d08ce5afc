// -----------------------------------------------------------------------
// Evidence Report - Run results rendered to PDF
// -----------------------------------------------------------------------

package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

// Service renders evidence result sets to PDF by composing markdown and
// walking it onto the page.
type Service struct {
	logger arbor.ILogger
	md     goldmark.Markdown
}

var _ interfaces.ReportService = (*Service)(nil)

func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
		md:     goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

// RenderPDF builds the report document and returns the PDF bytes.
func (s *Service) RenderPDF(report models.EvidenceReport) ([]byte, error) {
	markdown := buildMarkdown(report, time.Now())

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(leftMargin, 10, leftMargin)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()
	pdf.SetFont("Arial", "", bodyFontSize)

	source := []byte(markdown)
	doc := s.md.Parser().Parse(text.NewReader(source))

	writer := &pdfWriter{pdf: pdf, source: source}
	if err := writer.render(doc); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write report output: %w", err)
	}

	s.logger.Debug().
		Int("questions", len(report.Questions)).
		Int("pdf_bytes", buf.Len()).
		Msg("Evidence report rendered")
	return buf.Bytes(), nil
}
