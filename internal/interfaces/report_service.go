package interfaces

import "github.com/ternarybob/probo/internal/models"

// ReportService renders completed evidence runs into portable documents.
type ReportService interface {
	// RenderPDF builds the evidence report and returns the PDF bytes.
	RenderPDF(report models.EvidenceReport) ([]byte, error)
}
