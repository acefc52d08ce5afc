// -----------------------------------------------------------------------
// Status Handler - Application state and gauge snapshot endpoint
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/services/status"
)

// StatusHandler serves the live application snapshot.
type StatusHandler struct {
	statusService *status.Service
	logger        arbor.ILogger
}

func NewStatusHandler(statusService *status.Service, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		statusService: statusService,
		logger:        logger,
	}
}

// GetStatusHandler handles GET /api/status.
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, h.statusService.Snapshot())
}
