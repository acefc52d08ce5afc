// -----------------------------------------------------------------------
// Process Handler - Questionnaire intake and pipeline execution
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

// maxUploadBytes bounds questionnaire uploads. Larger payloads are
// rejected before extraction.
const maxUploadBytes = 32 << 20

// ProcessRequest is the JSON body for direct text processing.
type ProcessRequest struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// ProcessHandler runs questionnaire text through question extraction and
// the evidence pipeline.
type ProcessHandler struct {
	logger     arbor.ILogger
	reasoning  interfaces.ReasoningService
	pipeline   interfaces.PipelineService
	catalog    interfaces.CatalogService
	extractor  interfaces.TextExtractor
	production bool
}

func NewProcessHandler(reasoning interfaces.ReasoningService, pipeline interfaces.PipelineService, catalog interfaces.CatalogService, extractor interfaces.TextExtractor, production bool, logger arbor.ILogger) *ProcessHandler {
	return &ProcessHandler{
		logger:     logger,
		reasoning:  reasoning,
		pipeline:   pipeline,
		catalog:    catalog,
		extractor:  extractor,
		production: production,
	}
}

// HandleProcess accepts questionnaire text as JSON and answers with
// questions, evidence per question, and run statistics.
func (h *ProcessHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAppError(w, models.NewValidationError("request body must be JSON with filename and text"), h.production)
		return
	}

	h.run(w, r, req.Filename, req.Text)
}

// HandleUpload accepts a questionnaire document as a multipart upload,
// extracts its text, then runs the same pipeline as HandleProcess.
func (h *ProcessHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteAppError(w, models.NewValidationError("multipart form must carry a file part"), h.production)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteAppError(w, models.NewValidationError("failed to read uploaded file"), h.production)
		return
	}

	text, err := h.extractor.ExtractText(data)
	if err != nil {
		h.logger.Warn().Err(err).Str("filename", header.Filename).Msg("Upload text extraction failed")
		WriteAppError(w, models.NewValidationError("could not extract text from the uploaded document"), h.production)
		return
	}

	h.run(w, r, header.Filename, text)
}

// run executes extraction and the pipeline, sharing the response shape
// between the JSON and upload entry points.
func (h *ProcessHandler) run(w http.ResponseWriter, r *http.Request, filename, text string) {
	label := strings.TrimSpace(filename)
	if label == "" {
		label = "questionnaire"
	}

	if strings.TrimSpace(text) == "" {
		WriteAppError(w, models.NewValidationError("questionnaire text is empty"), h.production)
		return
	}

	started := time.Now()
	h.logger.Info().
		Str("filename", label).
		Int("chars", len(text)).
		Msg("Processing questionnaire")

	questions, err := h.reasoning.ExtractQuestions(r.Context(), text, label)
	if err != nil {
		h.logger.Error().Err(err).Str("filename", label).Msg("Question extraction failed")
		WriteAppError(w, err, h.production)
		return
	}
	if len(questions) == 0 {
		WriteAppError(w, models.NewValidationError("no questions could be extracted from the document"), h.production)
		return
	}

	evidence, stats, err := h.pipeline.Process(r.Context(), questions, h.catalog.Documents())
	if err != nil {
		h.logger.Error().Err(err).Str("filename", label).Msg("Pipeline run failed")
		WriteAppError(w, err, h.production)
		return
	}

	snapshot := stats.Snapshot()
	h.logger.Info().
		Str("filename", label).
		Int("questions", len(questions)).
		Int("evidence", snapshot.EvidenceFound).
		Dur("elapsed", time.Since(started)).
		Msg("Questionnaire processed")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "success",
		"filename":  label,
		"questions": questions,
		"evidence":  evidence,
		"meta": map[string]interface{}{
			"stats":      snapshot,
			"elapsed_ms": time.Since(started).Milliseconds(),
		},
	})
}
