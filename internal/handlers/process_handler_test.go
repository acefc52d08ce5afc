package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

// mockReasoningService implements interfaces.ReasoningService for testing
type mockReasoningService struct {
	extractFunc func(ctx context.Context, documentText, label string) ([]models.Question, error)
	judgeFunc   func(ctx context.Context, question models.Question, documentText string, descriptor models.DocumentDescriptor) (*models.EvidenceCandidate, bool, error)
	cleared     int
}

func (m *mockReasoningService) ExtractQuestions(ctx context.Context, documentText, label string) ([]models.Question, error) {
	if m.extractFunc != nil {
		return m.extractFunc(ctx, documentText, label)
	}
	return nil, nil
}

func (m *mockReasoningService) Judge(ctx context.Context, question models.Question, documentText string, descriptor models.DocumentDescriptor) (*models.EvidenceCandidate, bool, error) {
	if m.judgeFunc != nil {
		return m.judgeFunc(ctx, question, documentText, descriptor)
	}
	return nil, false, nil
}

func (m *mockReasoningService) QueueDepth() int { return 0 }

func (m *mockReasoningService) CurrentDelay() time.Duration { return 0 }

func (m *mockReasoningService) CacheSize() int { return 0 }

func (m *mockReasoningService) ClearCache() int { return m.cleared }

// mockPipelineService implements interfaces.PipelineService for testing
type mockPipelineService struct {
	processFunc func(ctx context.Context, questions []models.Question, index []models.DocumentDescriptor) (map[int][]models.EvidenceCandidate, *models.ProcessingStats, error)
}

func (m *mockPipelineService) Process(ctx context.Context, questions []models.Question, index []models.DocumentDescriptor) (map[int][]models.EvidenceCandidate, *models.ProcessingStats, error) {
	if m.processFunc != nil {
		return m.processFunc(ctx, questions, index)
	}
	return map[int][]models.EvidenceCandidate{}, models.NewProcessingStats(), nil
}

// mockCatalogService implements interfaces.CatalogService for testing
type mockCatalogService struct {
	docs []models.DocumentDescriptor
}

func (m *mockCatalogService) Documents() []models.DocumentDescriptor { return m.docs }

func (m *mockCatalogService) Count() int { return len(m.docs) }

// mockExtractor implements interfaces.TextExtractor for testing
type mockExtractor struct {
	extractFunc func(data []byte) (string, error)
	received    []byte
}

func (m *mockExtractor) ExtractText(data []byte) (string, error) {
	m.received = data
	if m.extractFunc != nil {
		return m.extractFunc(data)
	}
	return string(data), nil
}

var (
	_ interfaces.ReasoningService = (*mockReasoningService)(nil)
	_ interfaces.PipelineService  = (*mockPipelineService)(nil)
	_ interfaces.CatalogService   = (*mockCatalogService)(nil)
	_ interfaces.TextExtractor    = (*mockExtractor)(nil)
)

func testQuestions() []models.Question {
	return []models.Question{
		{ID: 1, Text: "Is customer data encrypted at rest?", Category: "security", Keywords: []string{"encryption"}, RequiresEvidence: true},
		{ID: 2, Text: "Are backups tested quarterly?", Category: "resilience", Keywords: []string{"backup"}, RequiresEvidence: true},
	}
}

func testEvidence() map[int][]models.EvidenceCandidate {
	return map[int][]models.EvidenceCandidate{
		1: {{
			DocumentName: "crypto-policy.pdf",
			Subfolder:    "Policies",
			Answer:       models.AnswerYes,
			Evidence:     "All customer data is encrypted with AES-256.",
			Confidence:   models.ConfidenceHigh,
			Relevance:    8,
		}},
		2: {},
	}
}

func newProcessHandler(reasoning *mockReasoningService, pipeline *mockPipelineService, production bool) (*ProcessHandler, *mockExtractor) {
	extractor := &mockExtractor{}
	catalog := &mockCatalogService{docs: []models.DocumentDescriptor{
		{Subfolder: "Policies", Name: "crypto-policy.pdf", Category: "security"},
	}}
	handler := NewProcessHandler(reasoning, pipeline, catalog, extractor, production, common.GetLogger())
	return handler, extractor
}

func postProcess(handler *ProcessHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/process", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.HandleProcess(rec, req)
	return rec
}

func TestProcessHandler_Success(t *testing.T) {
	reasoning := &mockReasoningService{
		extractFunc: func(ctx context.Context, documentText, label string) ([]models.Question, error) {
			return testQuestions(), nil
		},
	}

	var capturedIndex []models.DocumentDescriptor
	pipeline := &mockPipelineService{
		processFunc: func(ctx context.Context, questions []models.Question, index []models.DocumentDescriptor) (map[int][]models.EvidenceCandidate, *models.ProcessingStats, error) {
			capturedIndex = index
			stats := models.NewProcessingStats()
			stats.AddQuestionProcessed()
			stats.AddQuestionProcessed()
			stats.AddEvidence(models.AnswerYes)
			return testEvidence(), stats, nil
		},
	}

	handler, _ := newProcessHandler(reasoning, pipeline, false)
	rec := postProcess(handler, `{"filename":"vendor-questionnaire.pdf","text":"1. Is customer data encrypted at rest?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if len(capturedIndex) != 1 {
		t.Errorf("Expected catalog index with 1 descriptor, got %d", len(capturedIndex))
	}

	var response map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["status"] != "success" {
		t.Errorf("Expected status 'success', got %v", response["status"])
	}
	if response["filename"] != "vendor-questionnaire.pdf" {
		t.Errorf("Expected filename echoed back, got %v", response["filename"])
	}

	questions := response["questions"].([]interface{})
	if len(questions) != 2 {
		t.Errorf("Expected 2 questions, got %d", len(questions))
	}

	evidence := response["evidence"].(map[string]interface{})
	if len(evidence["1"].([]interface{})) != 1 {
		t.Errorf("Expected 1 candidate for question 1, got %v", evidence["1"])
	}

	meta := response["meta"].(map[string]interface{})
	stats := meta["stats"].(map[string]interface{})
	if int(stats["questions_processed"].(float64)) != 2 {
		t.Errorf("Expected questions_processed 2, got %v", stats["questions_processed"])
	}
	if int(stats["evidence_found"].(float64)) != 1 {
		t.Errorf("Expected evidence_found 1, got %v", stats["evidence_found"])
	}
	if _, ok := meta["elapsed_ms"]; !ok {
		t.Error("Expected elapsed_ms in meta")
	}
}

func TestProcessHandler_EmptyTextRejected(t *testing.T) {
	handler, _ := newProcessHandler(&mockReasoningService{}, &mockPipelineService{}, false)
	rec := postProcess(handler, `{"filename":"q.pdf","text":"   "}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rec.Code)
	}

	var response map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&response)
	if response["kind"] != "validation" {
		t.Errorf("Expected kind 'validation', got %v", response["kind"])
	}
}

func TestProcessHandler_InvalidJSONRejected(t *testing.T) {
	handler, _ := newProcessHandler(&mockReasoningService{}, &mockPipelineService{}, false)
	rec := postProcess(handler, `{"filename":`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestProcessHandler_NoQuestionsExtracted(t *testing.T) {
	reasoning := &mockReasoningService{
		extractFunc: func(ctx context.Context, documentText, label string) ([]models.Question, error) {
			return []models.Question{}, nil
		},
	}

	handler, _ := newProcessHandler(reasoning, &mockPipelineService{}, false)
	rec := postProcess(handler, `{"text":"nothing that looks like a question"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rec.Code)
	}

	var response map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&response)
	if !strings.Contains(response["error"].(string), "no questions") {
		t.Errorf("Expected 'no questions' in error, got %v", response["error"])
	}
}

func TestProcessHandler_UpstreamErrorMapsTo502(t *testing.T) {
	reasoning := &mockReasoningService{
		extractFunc: func(ctx context.Context, documentText, label string) ([]models.Question, error) {
			return nil, models.NewUpstreamError("question extraction failed after retries", &mockError{msg: "429 too many requests"})
		},
	}

	handler, _ := newProcessHandler(reasoning, &mockPipelineService{}, false)
	rec := postProcess(handler, `{"text":"Is data encrypted?"}`)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Expected status 502, got %d", rec.Code)
	}

	var response map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&response)
	if response["kind"] != "upstream_service" {
		t.Errorf("Expected kind 'upstream_service', got %v", response["kind"])
	}
	if response["detail"] != "429 too many requests" {
		t.Errorf("Expected cause detail outside production, got %v", response["detail"])
	}
}

func TestProcessHandler_ProductionHidesCause(t *testing.T) {
	reasoning := &mockReasoningService{
		extractFunc: func(ctx context.Context, documentText, label string) ([]models.Question, error) {
			return nil, models.NewUpstreamError("question extraction failed after retries", &mockError{msg: "429 too many requests"})
		},
	}

	handler, _ := newProcessHandler(reasoning, &mockPipelineService{}, true)
	rec := postProcess(handler, `{"text":"Is data encrypted?"}`)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Expected status 502, got %d", rec.Code)
	}

	var response map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&response)
	if _, ok := response["detail"]; ok {
		t.Error("Expected cause detail suppressed in production")
	}
}

func TestProcessHandler_MethodNotAllowed(t *testing.T) {
	handler, _ := newProcessHandler(&mockReasoningService{}, &mockPipelineService{}, false)
	req := httptest.NewRequest("GET", "/api/process", nil)
	rec := httptest.NewRecorder()

	handler.HandleProcess(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rec.Code)
	}
}

func TestProcessHandler_UploadExtractsText(t *testing.T) {
	var extractedLabel string
	reasoning := &mockReasoningService{
		extractFunc: func(ctx context.Context, documentText, label string) ([]models.Question, error) {
			extractedLabel = label
			if !strings.Contains(documentText, "encrypted") {
				t.Errorf("Expected extracted text to reach question extraction, got %q", documentText)
			}
			return testQuestions()[:1], nil
		},
	}
	pipeline := &mockPipelineService{
		processFunc: func(ctx context.Context, questions []models.Question, index []models.DocumentDescriptor) (map[int][]models.EvidenceCandidate, *models.ProcessingStats, error) {
			return map[int][]models.EvidenceCandidate{1: {}}, models.NewProcessingStats(), nil
		},
	}

	handler, extractor := newProcessHandler(reasoning, pipeline, false)
	extractor.extractFunc = func(data []byte) (string, error) {
		return "Is customer data encrypted at rest?", nil
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "vendor-questionnaire.pdf")
	if err != nil {
		t.Fatalf("Failed to build multipart body: %v", err)
	}
	part.Write([]byte("%PDF-1.4 fake payload"))
	writer.Close()

	req := httptest.NewRequest("POST", "/api/process/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.HandleUpload(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if string(extractor.received) != "%PDF-1.4 fake payload" {
		t.Errorf("Expected raw upload bytes to reach the extractor, got %q", extractor.received)
	}
	if extractedLabel != "vendor-questionnaire.pdf" {
		t.Errorf("Expected upload filename as label, got %q", extractedLabel)
	}
}

func TestProcessHandler_UploadWithoutFilePart(t *testing.T) {
	handler, _ := newProcessHandler(&mockReasoningService{}, &mockPipelineService{}, false)

	req := httptest.NewRequest("POST", "/api/process/upload", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()

	handler.HandleUpload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestProcessHandler_UploadExtractionFailure(t *testing.T) {
	handler, extractor := newProcessHandler(&mockReasoningService{}, &mockPipelineService{}, false)
	extractor.extractFunc = func(data []byte) (string, error) {
		return "", &mockError{msg: "encrypted PDF"}
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("file", "locked.pdf")
	part.Write([]byte("%PDF-1.4"))
	writer.Close()

	req := httptest.NewRequest("POST", "/api/process/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.HandleUpload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

// mockError implements error for testing
type mockError struct {
	msg string
}

func (e *mockError) Error() string {
	return e.msg
}
