package handlers

import (
	"net/http"
	"strconv"

	"media-catalog/internal/database"
	"media-catalog/internal/logging"
	"media-catalog/internal/search"
)

// Search handles GET /api/search. Query parameters:
//
//	tags     tag expression ("SFW,CG|Sketch,-Monochrome")
//	text     case-insensitive substring filter on artist and name
//	page     1-indexed result page
//	pageSize items per page
//
// A malformed tag expression cannot happen; the grammar accepts anything.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := search.Options{
		TagQuery:  q.Get("tags"),
		TextQuery: q.Get("text"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		opts.Page = page
	}
	if pageSize, err := strconv.Atoi(q.Get("pageSize")); err == nil {
		opts.PageSize = pageSize
	}

	result, err := h.engine.Search(r.Context(), opts)
	if err != nil {
		logging.Error("search failed: %v", err)
		writeJSONError(w, "search failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

// GetTags handles GET /api/tags and returns every tag with its asset count.
func (h *Handlers) GetTags(w http.ResponseWriter, r *http.Request) {
	counts, err := h.db.TagCounts(r.Context())
	if err != nil {
		logging.Error("failed to list tags: %v", err)
		writeJSONError(w, "failed to list tags", http.StatusInternalServerError)
		return
	}
	if counts == nil {
		counts = []database.TagCount{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, counts)
}

// GetStats handles GET /api/stats with the cached catalog statistics.
func (h *Handlers) GetStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.db.GetStats())
}
