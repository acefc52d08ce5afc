// -----------------------------------------------------------------------
// Text Extraction Service - Convert document payloads to plain text
// Supports PDF (pdfcpu), HTML (goquery + markdown conversion), plain text
// -----------------------------------------------------------------------

package extract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/interfaces"
)

// Service converts document payloads into normalized plain text. The
// payload format is sniffed from the bytes; callers never tell the
// extractor what they fetched.
type Service struct {
	logger  arbor.ILogger
	tempDir string
}

// Compile-time interface assertion
var _ interfaces.TextExtractor = (*Service)(nil)

// NewService creates a new text extraction service
func NewService(logger arbor.ILogger) *Service {
	// pdfcpu works on files, so extractions round-trip through a temp dir
	tempDir := filepath.Join(os.TempDir(), "probo-extract")
	os.MkdirAll(tempDir, 0755)

	return &Service{
		logger:  logger,
		tempDir: tempDir,
	}
}

// ExtractText returns the normalized plain text content of the payload.
func (s *Service) ExtractText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	var text string
	switch {
	case isPDF(data):
		extracted, err := s.extractPDF(data)
		if err != nil {
			return "", fmt.Errorf("failed to extract PDF text: %w", err)
		}
		text = extracted
	case isHTML(data):
		text = s.extractHTML(string(data))
	default:
		text = string(data)
	}

	return NormalizeText(text), nil
}

// NormalizeText strips non-whitespace control characters and collapses all
// whitespace runs to single spaces. Text is never truncated here; length
// limits belong to the reasoning dispatcher.
func NormalizeText(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' && r != '\r' {
			return -1
		}
		if r == 0x7F {
			return -1
		}
		return r
	}, text)

	return strings.Join(strings.Fields(cleaned), " ")
}

func isPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF"))
}

func isHTML(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	lowered := strings.ToLower(string(head))
	return strings.Contains(lowered, "<html") ||
		strings.Contains(lowered, "<!doctype html") ||
		strings.Contains(lowered, "<body")
}

// extractPDF extracts page text via pdfcpu. Pages are joined with page
// markers so judgments can cite a page reference.
func (s *Service) extractPDF(data []byte) (string, error) {
	// Write to temp file for pdfcpu processing
	token := uuid.New().String()[:8]
	tempFile := filepath.Join(s.tempDir, fmt.Sprintf("extract_%s.pdf", token))
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	defer os.Remove(tempFile)

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF context: %w", err)
	}
	pageCount := pdfCtx.PageCount

	outDir := filepath.Join(s.tempDir, fmt.Sprintf("pages_%s", token))
	os.MkdirAll(outDir, 0755)
	defer os.RemoveAll(outDir)

	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to extract PDF content")
		return "", fmt.Errorf("failed to extract PDF content: %w", err)
	}

	// Read extracted content files keyed by page number
	files, _ := os.ReadDir(outDir)
	pageTexts := make(map[int]string)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(file.Name(), "page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
		} else if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
		}
	}

	var builder strings.Builder
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		if pageNum > 1 {
			builder.WriteString(fmt.Sprintf("\n\n--- Page %d ---\n\n", pageNum))
		}
		builder.WriteString(pageTexts[pageNum])
	}

	s.logger.Debug().
		Int("pages", pageCount).
		Int("bytes", len(data)).
		Msg("Extracted PDF text")

	return builder.String(), nil
}

// extractHTML converts HTML to markdown, which keeps headings and list
// structure the reasoning capability can quote. Falls back to tag
// stripping when conversion fails or produces nothing.
func (s *Service) extractHTML(html string) string {
	content := html

	// Drop chrome elements before conversion when the document parses
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		doc.Find("script, style, nav, footer, header").Remove()
		if body, err := doc.Find("body").Html(); err == nil && strings.TrimSpace(body) != "" {
			content = body
		}
	}

	converter := md.NewConverter("", true, nil)
	converted, err := converter.ConvertString(content)
	if err != nil || strings.TrimSpace(converted) == "" {
		if err != nil {
			s.logger.Warn().Err(err).Msg("HTML to markdown conversion failed, stripping tags")
		}
		return stripHTMLTags(content)
	}

	return converted
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTMLTags removes tags and decodes a basic entity set for fallback
// cases.
func stripHTMLTags(htmlStr string) string {
	cleaned := htmlTagPattern.ReplaceAllString(htmlStr, " ")

	cleaned = strings.ReplaceAll(cleaned, "&amp;", "&")
	cleaned = strings.ReplaceAll(cleaned, "&lt;", "<")
	cleaned = strings.ReplaceAll(cleaned, "&gt;", ">")
	cleaned = strings.ReplaceAll(cleaned, "&quot;", "\"")
	cleaned = strings.ReplaceAll(cleaned, "&#39;", "'")
	cleaned = strings.ReplaceAll(cleaned, "&nbsp;", " ")

	return strings.TrimSpace(cleaned)
}
