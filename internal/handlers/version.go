package handlers

import (
	"net/http"

	"media-catalog/internal/startup"
)

// GetVersion handles GET /api/version with build information.
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, startup.GetBuildInfo())
}
