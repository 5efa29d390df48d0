package handlers

import (
	"time"

	"media-catalog/internal/database"
	"media-catalog/internal/indexer"
	"media-catalog/internal/media"
	"media-catalog/internal/search"
	"media-catalog/internal/startup"
)

// Handlers carries the shared dependencies of every HTTP handler.
type Handlers struct {
	db        *database.Database
	scanner   *indexer.Scanner
	engine    *search.Engine
	thumbGen  *media.ThumbnailGenerator
	mediaDir  string
	startTime time.Time
}

// New creates the handler set.
func New(db *database.Database, scanner *indexer.Scanner, engine *search.Engine, thumbGen *media.ThumbnailGenerator, config *startup.Config) *Handlers {
	return &Handlers{
		db:        db,
		scanner:   scanner,
		engine:    engine,
		thumbGen:  thumbGen,
		mediaDir:  config.MediaDir,
		startTime: time.Now(),
	}
}
