package database

import "time"

// AssetType distinguishes standalone images from multi-page stories.
type AssetType string

const (
	// AssetTypeImage is a single standalone image or video file.
	AssetTypeImage AssetType = "image"
	// AssetTypeStory is a directory of pages indexed as one unit.
	AssetTypeStory AssetType = "story"
)

// Asset is one indexed unit of content.
type Asset struct {
	ID           int64     `json:"id"`
	Path         string    `json:"path"`
	Type         AssetType `json:"type"`
	Artist       string    `json:"artist"`
	Name         string    `json:"name"`
	Tags         []string  `json:"tags,omitempty"`
	Pages        []string  `json:"pages,omitempty"`
	PageCount    int       `json:"pageCount,omitempty"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
}

// Predicate is the parsed tag-matching structure of a query string. An asset
// satisfies a predicate iff it holds every tag in And, at least one tag in Or
// (vacuously true when Or is empty), and none of the tags in Not.
type Predicate struct {
	And []string
	Or  []string
	Not []string
}

// IsEmpty reports whether the predicate imposes no tag restrictions.
func (p Predicate) IsEmpty() bool {
	return len(p.And) == 0 && len(p.Or) == 0 && len(p.Not) == 0
}

// SearchResult is a page of assets matching a search request.
type SearchResult struct {
	Items      []Asset `json:"items"`
	TagQuery   string  `json:"tagQuery"`
	TextQuery  string  `json:"textQuery"`
	TotalItems int     `json:"totalItems"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	TotalPages int     `json:"totalPages"`
}

// TagCount is a tag name with the number of assets carrying it.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CatalogStats summarizes the indexed catalog.
type CatalogStats struct {
	TotalAssets  int       `json:"totalAssets"`
	TotalImages  int       `json:"totalImages"`
	TotalStories int       `json:"totalStories"`
	TotalTags    int       `json:"totalTags"`
	LastScanned  time.Time `json:"lastScanned"`
	ScanDuration string    `json:"scanDuration"`
}

// User represents the single account in the system.
type User struct {
	ID           int64     `json:"id"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Session represents an authenticated session.
type Session struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}
