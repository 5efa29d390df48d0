package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-catalog/internal/indexer"
	"media-catalog/internal/startup"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Uptime       string `json:"uptime"`
	Scanning     bool   `json:"scanning"`
	LastScanned  string `json:"lastScanned,omitempty"`
	TotalAssets  int    `json:"totalAssets"`
	TotalTags    int    `json:"totalTags"`
	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck handles GET /healthz.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	stats := h.db.GetStats()
	status := h.scanner.Status()

	response := HealthResponse{
		Status:       "healthy",
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Scanning:     status.Status == indexer.StatusScanning,
		TotalAssets:  stats.TotalAssets,
		TotalTags:    stats.TotalTags,
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	if !stats.LastScanned.IsZero() {
		response.LastScanned = stats.LastScanned.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// LivenessCheck handles GET /livez; it answers as long as the process runs.
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck handles GET /readyz; the service is ready once the
// database answers.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := h.db.CountAssets(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, map[string]string{"status": "ready"})
}
