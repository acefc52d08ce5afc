package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

// mockReportService implements interfaces.ReportService for testing
type mockReportService struct {
	renderFunc func(report models.EvidenceReport) ([]byte, error)
	captured   *models.EvidenceReport
}

func (m *mockReportService) RenderPDF(report models.EvidenceReport) ([]byte, error) {
	m.captured = &report
	if m.renderFunc != nil {
		return m.renderFunc(report)
	}
	return []byte("%PDF-1.4 rendered"), nil
}

var _ interfaces.ReportService = (*mockReportService)(nil)

func postReport(handler *ReportHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/report", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.GenerateReportHandler(rec, req)
	return rec
}

func TestReportHandler_ReturnsPDF(t *testing.T) {
	service := &mockReportService{}
	handler := NewReportHandler(service, false, common.GetLogger())

	rec := postReport(handler, `{"title":"Q2 Vendor Review","questions":[{"id":1,"text":"Is data encrypted?"}],"evidence":{"1":[]}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Expected Content-Type application/pdf, got %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "evidence-report.pdf") {
		t.Errorf("Expected attachment disposition, got %q", got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("Expected response body to start with %PDF")
	}

	if service.captured == nil {
		t.Fatal("Expected report to reach the render service")
	}
	if service.captured.Title != "Q2 Vendor Review" {
		t.Errorf("Expected title carried through, got %q", service.captured.Title)
	}
	if len(service.captured.Questions) != 1 {
		t.Errorf("Expected 1 question carried through, got %d", len(service.captured.Questions))
	}
}

func TestReportHandler_InvalidJSONRejected(t *testing.T) {
	handler := NewReportHandler(&mockReportService{}, false, common.GetLogger())

	rec := postReport(handler, `{"title":`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rec.Code)
	}

	var response map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&response)
	if response["kind"] != "validation" {
		t.Errorf("Expected kind 'validation', got %v", response["kind"])
	}
}

func TestReportHandler_RenderFailure(t *testing.T) {
	service := &mockReportService{
		renderFunc: func(report models.EvidenceReport) ([]byte, error) {
			return nil, &mockError{msg: "font metrics unavailable"}
		},
	}
	handler := NewReportHandler(service, false, common.GetLogger())

	rec := postReport(handler, `{"title":"Broken"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rec.Code)
	}

	var response map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&response)
	if response["kind"] != "internal" {
		t.Errorf("Expected kind 'internal', got %v", response["kind"])
	}
	if response["detail"] != "font metrics unavailable" {
		t.Errorf("Expected cause detail outside production, got %v", response["detail"])
	}
}

func TestReportHandler_MethodNotAllowed(t *testing.T) {
	handler := NewReportHandler(&mockReportService{}, false, common.GetLogger())

	req := httptest.NewRequest("GET", "/api/report", nil)
	rec := httptest.NewRecorder()
	handler.GenerateReportHandler(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rec.Code)
	}
}
