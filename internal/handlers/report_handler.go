// -----------------------------------------------------------------------
// Report Handler - Evidence run results rendered to a PDF download
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

// ReportHandler turns submitted run results into a PDF document.
type ReportHandler struct {
	logger     arbor.ILogger
	report     interfaces.ReportService
	production bool
}

func NewReportHandler(report interfaces.ReportService, production bool, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{
		logger:     logger,
		report:     report,
		production: production,
	}
}

// GenerateReportHandler handles POST /api/report. The body is the JSON
// evidence report; the response is the rendered PDF.
func (h *ReportHandler) GenerateReportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var report models.EvidenceReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		WriteAppError(w, models.NewValidationError("request body must be a JSON evidence report"), h.production)
		return
	}

	pdf, err := h.report.RenderPDF(report)
	if err != nil {
		h.logger.Error().Err(err).Msg("Report rendering failed")
		WriteAppError(w, models.NewInternalError("failed to render report", err), h.production)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="evidence-report.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to stream report to client")
	}
}
