package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"media-catalog/internal/indexer"
	"media-catalog/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is same-origin behind the session cookie; progress events
	// carry no secrets.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TriggerScan handles POST /api/scan. It starts a background scan and
// returns 202 with the scan id, or 409 if one is already running.
func (h *Handlers) TriggerScan(w http.ResponseWriter, _ *http.Request) {
	scanID, err := h.scanner.TriggerScan()
	if err != nil {
		if errors.Is(err, indexer.ErrScanInFlight) {
			writeJSONError(w, "a scan is already in progress", http.StatusConflict)
			return
		}
		logging.Error("failed to start scan: %v", err)
		writeJSONError(w, "failed to start scan", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"scanId": scanID})
}

// ScanStatus handles GET /api/scan/status with the current progress snapshot.
func (h *Handlers) ScanStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.scanner.Status())
}

// ScanEvents handles GET /api/scan/events. It upgrades to a WebSocket and
// streams progress snapshots until the client disconnects.
func (h *Handlers) ScanEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("websocket upgrade failed: %v", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logging.Debug("websocket close: %v", err)
		}
	}()

	events, cancel := h.scanner.Subscribe()
	defer cancel()

	// Drain client frames so pings and close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// The current snapshot goes out first so a client connecting mid-scan
	// is immediately up to date.
	if err := conn.WriteJSON(h.scanner.Status()); err != nil {
		return
	}

	for {
		select {
		case progress, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(progress); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// ResetCatalog handles POST /api/reset. It wipes all indexed assets and
// tags and clears the thumbnail cache; accounts survive.
func (h *Handlers) ResetCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.db.WipeAll(r.Context()); err != nil {
		logging.Error("catalog reset failed: %v", err)
		writeJSONError(w, "catalog reset failed", http.StatusInternalServerError)
		return
	}

	if h.thumbGen != nil {
		if err := h.thumbGen.ClearCache(); err != nil {
			logging.Warn("failed to clear thumbnail cache: %v", err)
		}
	}

	logging.Info("Catalog reset: all assets and tags removed")
	writeJSONStatus(w, "reset")
}
