package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"media-catalog/internal/database"
	"media-catalog/internal/metrics"
	"media-catalog/internal/natsort"
)

// DefaultPageSize is the page size used when a request does not set one.
const DefaultPageSize = 60

// Options describes one search request.
type Options struct {
	// TagQuery is the raw tag expression, parsed with Parse.
	TagQuery string
	// TextQuery is a case-insensitive substring filter on artist and name.
	TextQuery string
	// Page is 1-indexed. Values below 1 are treated as 1.
	Page int
	// PageSize falls back to the engine default when zero or negative.
	PageSize int
}

// Engine executes searches against the asset repository. Matching happens in
// SQL; ordering and pagination happen here so that results follow natural
// sort order rather than SQLite collation.
type Engine struct {
	db       *database.Database
	pageSize int
}

// NewEngine creates a search engine with the given default page size. A
// non-positive pageSize falls back to DefaultPageSize.
func NewEngine(db *database.Database, pageSize int) *Engine {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Engine{db: db, pageSize: pageSize}
}

// Search returns one page of assets matching the query, ordered naturally by
// artist then name. The total count reflects all matches, not just the
// returned page; a page past the end yields an empty item list with the
// counts intact.
func (e *Engine) Search(ctx context.Context, opts Options) (*database.SearchResult, error) {
	start := time.Now()

	pred := Parse(opts.TagQuery)

	assets, err := e.db.QueryAssets(ctx, pred, opts.TextQuery)
	if err != nil {
		metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("search failed: %w", err)
	}

	sort.SliceStable(assets, func(i, j int) bool {
		if c := natsort.Compare(assets[i].Artist, assets[j].Artist); c != 0 {
			return c < 0
		}
		return natsort.Less(assets[i].Name, assets[j].Name)
	})

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = e.pageSize
	}

	total := len(assets)
	totalPages := (total + pageSize - 1) / pageSize

	var items []database.Asset
	if offset := (page - 1) * pageSize; offset < total {
		end := offset + pageSize
		if end > total {
			end = total
		}
		items = assets[offset:end]
	}

	if err := e.db.AttachDetails(ctx, items); err != nil {
		metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load asset details: %w", err)
	}

	for i := range items {
		items[i].ThumbnailURL = fmt.Sprintf("/api/thumbnail/%d", items[i].ID)
	}

	metrics.SearchQueriesTotal.WithLabelValues("success").Inc()
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	metrics.SearchResultsTotal.Observe(float64(total))

	if items == nil {
		items = []database.Asset{}
	}

	return &database.SearchResult{
		Items:      items,
		TagQuery:   opts.TagQuery,
		TextQuery:  opts.TextQuery,
		TotalItems: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}
