package media

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	// Register decoders beyond the stdlib set so imaging.Open handles the
	// formats the classifier accepts.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"media-catalog/internal/database"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

const (
	thumbWidth  = 200
	thumbHeight = 200
	jpegQuality = 80
)

// ThumbnailGenerator produces and caches small JPEG previews of catalog
// assets. Thumbnails are cached on disk keyed by the md5 of the source path,
// so a re-scan that leaves paths unchanged reuses the existing cache.
type ThumbnailGenerator struct {
	mediaDir string
	cacheDir string
	mu       sync.Mutex
}

// NewThumbnailGenerator creates a generator caching under cacheDir. The
// cache directory is created if missing.
func NewThumbnailGenerator(mediaDir, cacheDir string) (*ThumbnailGenerator, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail cache directory: %w", err)
	}
	return &ThumbnailGenerator{mediaDir: mediaDir, cacheDir: cacheDir}, nil
}

// ForAsset returns the thumbnail bytes for an asset. Stories are represented
// by their first page.
func (t *ThumbnailGenerator) ForAsset(a *database.Asset) ([]byte, error) {
	source := a.Path
	if a.Type == database.AssetTypeStory {
		if len(a.Pages) == 0 {
			return nil, fmt.Errorf("story %s has no pages", a.Path)
		}
		source = a.Pages[0]
	}
	return t.Get(source)
}

// Get returns the thumbnail bytes for a media-root-relative source path,
// generating and caching it on first use.
func (t *ThumbnailGenerator) Get(relPath string) ([]byte, error) {
	cachePath := t.cachePath(relPath)

	if data, err := os.ReadFile(cachePath); err == nil {
		metrics.ThumbnailCacheHits.Inc()
		return data, nil
	}
	metrics.ThumbnailCacheMisses.Inc()

	// Serialize generation; a burst of requests for the same cold thumbnail
	// would otherwise decode the image several times over.
	t.mu.Lock()
	defer t.mu.Unlock()

	if data, err := os.ReadFile(cachePath); err == nil {
		return data, nil
	}

	start := time.Now()
	data, err := t.generate(relPath)
	metrics.ThumbnailGenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(cachePath, data, 0o644); err != nil {
		logging.Warn("failed to cache thumbnail for %s: %v", relPath, err)
	}
	return data, nil
}

func (t *ThumbnailGenerator) generate(relPath string) ([]byte, error) {
	sourcePath := filepath.Join(t.mediaDir, filepath.FromSlash(relPath))

	if _, err := os.Stat(sourcePath); err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error_not_found").Inc()
		return nil, fmt.Errorf("source file missing: %w", err)
	}

	img, err := imaging.Open(sourcePath, imaging.AutoOrientation(true))
	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error_decode").Inc()
		return nil, fmt.Errorf("failed to decode %s: %w", relPath, err)
	}

	data, err := encodeThumb(img)
	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.ThumbnailGenerationsTotal.WithLabelValues("success").Inc()
	return data, nil
}

func encodeThumb(img image.Image) ([]byte, error) {
	thumb := imaging.Fit(img, thumbWidth, thumbHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// cachePath maps a source path to its cache file.
func (t *ThumbnailGenerator) cachePath(relPath string) string {
	hash := md5.Sum([]byte(relPath))
	return filepath.Join(t.cacheDir, hex.EncodeToString(hash[:])+".jpg")
}

// ClearCache removes every cached thumbnail. Used by the catalog reset
// operation.
func (t *ThumbnailGenerator) ClearCache() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries, err := os.ReadDir(t.cacheDir)
	if err != nil {
		return fmt.Errorf("failed to read thumbnail cache: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jpg" {
			continue
		}
		if err := os.Remove(filepath.Join(t.cacheDir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove cached thumbnail %s: %w", entry.Name(), err)
		}
	}
	return nil
}
