package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"media-catalog/internal/database"
)

func newTestGenerator(t *testing.T) (*ThumbnailGenerator, string) {
	t.Helper()

	mediaDir := t.TempDir()
	gen, err := NewThumbnailGenerator(mediaDir, filepath.Join(t.TempDir(), "thumbs"))
	if err != nil {
		t.Fatalf("NewThumbnailGenerator() error = %v", err)
	}
	return gen, mediaDir
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
}

func TestGetGeneratesAndBounds(t *testing.T) {
	t.Parallel()
	gen, mediaDir := newTestGenerator(t)

	writePNG(t, filepath.Join(mediaDir, "alice", "big.png"), 800, 600)

	data, err := gen.Get("alice/big.png")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("thumbnail is not valid JPEG: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > 200 || bounds.Dy() > 200 {
		t.Errorf("thumbnail bounds = %v, want within 200x200", bounds)
	}
}

func TestGetUsesCache(t *testing.T) {
	t.Parallel()
	gen, mediaDir := newTestGenerator(t)

	source := filepath.Join(mediaDir, "alice", "pic.png")
	writePNG(t, source, 100, 100)

	first, err := gen.Get("alice/pic.png")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	// Deleting the source must not matter once the thumbnail is cached.
	if err := os.Remove(source); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	second, err := gen.Get("alice/pic.png")
	if err != nil {
		t.Fatalf("cached Get() error = %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("cached thumbnail differs from generated one")
	}
}

func TestGetMissingSource(t *testing.T) {
	t.Parallel()
	gen, _ := newTestGenerator(t)

	if _, err := gen.Get("alice/nope.png"); err == nil {
		t.Error("Get() on missing source did not fail")
	}
}

func TestForAssetStoryUsesFirstPage(t *testing.T) {
	t.Parallel()
	gen, mediaDir := newTestGenerator(t)

	writePNG(t, filepath.Join(mediaDir, "alice", "story", "p1.png"), 64, 64)

	data, err := gen.ForAsset(&database.Asset{
		Path:  "alice/story",
		Type:  database.AssetTypeStory,
		Pages: []string{"alice/story/p1.png", "alice/story/p2.png"},
	})
	if err != nil {
		t.Fatalf("ForAsset() error = %v", err)
	}
	if len(data) == 0 {
		t.Error("ForAsset() returned empty thumbnail")
	}

	if _, err := gen.ForAsset(&database.Asset{Path: "alice/empty", Type: database.AssetTypeStory}); err == nil {
		t.Error("ForAsset() on pageless story did not fail")
	}
}

func TestClearCache(t *testing.T) {
	t.Parallel()
	gen, mediaDir := newTestGenerator(t)

	writePNG(t, filepath.Join(mediaDir, "alice", "pic.png"), 32, 32)
	if _, err := gen.Get("alice/pic.png"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if err := gen.ClearCache(); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}

	entries, err := os.ReadDir(gen.cacheDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("cache not empty after ClearCache: %d entries", len(entries))
	}
}
