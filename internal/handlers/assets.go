package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"media-catalog/internal/logging"
)

// GetAsset handles GET /api/asset/{id} with the full asset record including
// tags and, for stories, the ordered page list.
func (h *Handlers) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "invalid asset id", http.StatusBadRequest)
		return
	}

	asset, err := h.db.GetAssetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, "asset not found", http.StatusNotFound)
			return
		}
		logging.Error("failed to load asset %d: %v", id, err)
		writeJSONError(w, "failed to load asset", http.StatusInternalServerError)
		return
	}
	asset.ThumbnailURL = "/api/thumbnail/" + strconv.FormatInt(asset.ID, 10)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, asset)
}

// GetThumbnail handles GET /api/thumbnail/{id}.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "invalid asset id", http.StatusBadRequest)
		return
	}

	asset, err := h.db.GetAssetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, "asset not found", http.StatusNotFound)
			return
		}
		logging.Error("failed to load asset %d: %v", id, err)
		writeJSONError(w, "failed to load asset", http.StatusInternalServerError)
		return
	}

	data, err := h.thumbGen.ForAsset(asset)
	if err != nil {
		logging.Warn("thumbnail generation failed for asset %d: %v", id, err)
		writeJSONError(w, "thumbnail unavailable", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := w.Write(data); err != nil {
		logging.Debug("thumbnail write failed: %v", err)
	}
}

// ServeFile handles GET /api/file/{path}. The path is relative to the media
// directory; anything resolving outside it is rejected.
func (h *Handlers) ServeFile(w http.ResponseWriter, r *http.Request) {
	relPath := mux.Vars(r)["path"]

	full, ok := h.resolveMediaPath(relPath)
	if !ok {
		writeJSONError(w, "invalid path", http.StatusBadRequest)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, full)
}

// resolveMediaPath joins a request path onto the media directory and
// verifies the result stays inside it.
func (h *Handlers) resolveMediaPath(relPath string) (string, bool) {
	if relPath == "" || strings.Contains(relPath, "\x00") {
		return "", false
	}

	full := filepath.Join(h.mediaDir, filepath.FromSlash(relPath))

	rel, err := filepath.Rel(h.mediaDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}
