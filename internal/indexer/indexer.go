package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"media-catalog/internal/classify"
	"media-catalog/internal/database"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// ErrScanInFlight is returned when a scan is requested while another is
// still running.
var ErrScanInFlight = errors.New("a scan is already in progress")

// Outcome summarizes a completed scan.
type Outcome struct {
	ScanID   string        `json:"scanId"`
	Indexed  int           `json:"indexed"`
	Artists  int           `json:"artists"`
	Duration time.Duration `json:"-"`
}

// Scanner walks the media directory, classifies its contents and writes the
// results to the catalog. At most one scan runs at a time; each artist
// subtree is committed in its own transaction so a failure late in a scan
// keeps earlier artists indexed.
type Scanner struct {
	db         *database.Database
	classifier *classify.Classifier
	mediaDir   string

	mu      sync.Mutex
	running bool

	statusMu sync.RWMutex
	status   Progress

	events *broadcaster
}

// NewScanner creates a Scanner over mediaDir.
func NewScanner(db *database.Database, classifier *classify.Classifier, mediaDir string) *Scanner {
	return &Scanner{
		db:         db,
		classifier: classifier,
		mediaDir:   mediaDir,
		status:     Progress{Status: StatusIdle},
		events:     newBroadcaster(),
	}
}

// Status returns the current scan progress snapshot.
func (s *Scanner) Status() Progress {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// Subscribe registers a listener for progress snapshots. The cancel func
// must be called when the listener goes away.
func (s *Scanner) Subscribe() (<-chan Progress, func()) {
	return s.events.subscribe()
}

// TriggerScan starts a scan in the background and returns its id, or
// ErrScanInFlight if one is already running.
func (s *Scanner) TriggerScan() (string, error) {
	if !s.tryStart() {
		return "", ErrScanInFlight
	}

	scanID := uuid.NewString()
	go func() {
		defer s.finish()
		if _, err := s.run(context.Background(), scanID); err != nil {
			logging.Error("scan %s failed: %v", scanID, err)
		}
	}()
	return scanID, nil
}

// Scan runs a full scan synchronously and returns its outcome, or
// ErrScanInFlight if one is already running.
func (s *Scanner) Scan(ctx context.Context) (*Outcome, error) {
	if !s.tryStart() {
		return nil, ErrScanInFlight
	}
	defer s.finish()

	return s.run(ctx, uuid.NewString())
}

func (s *Scanner) tryStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scanner) finish() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Scanner) run(ctx context.Context, scanID string) (*Outcome, error) {
	start := time.Now()
	logging.Info("Starting catalog scan %s of %s", scanID, s.mediaDir)

	metrics.ScanRunsTotal.Inc()
	metrics.ScanInProgress.Set(1)
	defer metrics.ScanInProgress.Set(0)

	total, err := s.classifier.CountArtists(s.mediaDir)
	if err != nil {
		s.fail(scanID, err)
		return nil, err
	}

	s.setStatus(Progress{ScanID: scanID, Status: StatusScanning, Total: total})

	var (
		tx      *sql.Tx
		indexed int
		artists int
	)

	// Commit the previous artist's batch before opening the next so each
	// artist lands atomically.
	onArtist := func(artist string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tx != nil {
			if err := s.db.EndBatch(tx, nil); err != nil {
				tx = nil
				return fmt.Errorf("failed to commit artist batch: %w", err)
			}
		}
		var err error
		tx, err = s.db.BeginBatch()
		if err != nil {
			return fmt.Errorf("failed to begin artist batch: %w", err)
		}

		artists++
		metrics.ScanArtistsProcessed.Inc()
		s.setStatus(Progress{
			ScanID:      scanID,
			Status:      StatusScanning,
			Current:     artists,
			Total:       total,
			CurrentItem: artist,
			Indexed:     indexed,
		})
		return nil
	}

	emit := func(e classify.Entry) error {
		asset, err := s.toAsset(e)
		if err != nil {
			return err
		}

		id, err := s.db.UpsertAsset(tx, asset)
		if err != nil {
			return err
		}
		if err := s.db.ReplaceTags(tx, id, e.Tags); err != nil {
			return err
		}
		if err := s.db.ReplacePages(tx, id, asset.Pages); err != nil {
			return err
		}

		indexed++
		metrics.ScanAssetsIndexed.Inc()
		return nil
	}

	walkErr := s.classifier.Walk(s.mediaDir, onArtist, emit)
	if tx != nil {
		if err := s.db.EndBatch(tx, walkErr); err != nil && walkErr == nil {
			walkErr = err
		}
	}
	if walkErr != nil {
		s.fail(scanID, walkErr)
		return nil, walkErr
	}

	duration := time.Since(start)
	s.refreshStats(ctx, duration)

	metrics.ScanLastRunTimestamp.SetToCurrentTime()
	metrics.ScanLastRunDuration.Set(duration.Seconds())

	s.setStatus(Progress{
		ScanID:  scanID,
		Status:  StatusComplete,
		Current: artists,
		Total:   total,
		Indexed: indexed,
	})

	logging.Info("Scan %s complete: %d assets across %d artists in %v",
		scanID, indexed, artists, duration.Round(time.Millisecond))

	return &Outcome{
		ScanID:   scanID,
		Indexed:  indexed,
		Artists:  artists,
		Duration: duration,
	}, nil
}

// toAsset converts a classified entry to its stored form. Paths are stored
// relative to the media directory with forward slashes so they double as
// URL path segments.
func (s *Scanner) toAsset(e classify.Entry) (*database.Asset, error) {
	rel, err := filepath.Rel(s.mediaDir, e.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to relativize %s: %w", e.Path, err)
	}

	asset := &database.Asset{
		Path:   filepath.ToSlash(rel),
		Artist: e.Artist,
		Name:   e.Name,
	}

	switch e.Kind {
	case classify.KindStory:
		asset.Type = database.AssetTypeStory
		asset.Pages = make([]string, len(e.Pages))
		for i, page := range e.Pages {
			relPage, err := filepath.Rel(s.mediaDir, page)
			if err != nil {
				return nil, fmt.Errorf("failed to relativize page %s: %w", page, err)
			}
			asset.Pages[i] = filepath.ToSlash(relPage)
		}
	default:
		asset.Type = database.AssetTypeImage
	}
	return asset, nil
}

func (s *Scanner) refreshStats(ctx context.Context, duration time.Duration) {
	stats, err := s.db.CalculateStats(ctx)
	if err != nil {
		logging.Warn("failed to refresh catalog stats: %v", err)
		return
	}
	stats.LastScanned = time.Now()
	stats.ScanDuration = duration.Round(time.Millisecond).String()
	s.db.UpdateStats(stats)
}

func (s *Scanner) fail(scanID string, err error) {
	metrics.ScanErrors.Inc()
	s.setStatus(Progress{ScanID: scanID, Status: StatusError, Error: err.Error()})
}

func (s *Scanner) setStatus(p Progress) {
	s.statusMu.Lock()
	s.status = p
	s.statusMu.Unlock()
	s.events.publish(p)
}
