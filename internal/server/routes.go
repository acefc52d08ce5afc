package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket progress stream
	mux.HandleFunc("/ws/progress", s.app.WSHandler.HandleWebSocket)

	// Questionnaire processing: JSON text body, multipart document upload,
	// and evidence report rendering
	mux.HandleFunc("/api/process", s.app.ProcessHandler.HandleProcess)
	mux.HandleFunc("/api/process/upload", s.app.ProcessHandler.HandleUpload)
	mux.HandleFunc("/api/report", s.app.ReportHandler.GenerateReportHandler)

	// Operations
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/cache/clear", s.app.CacheHandler.ClearCachesHandler)

	// System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}
