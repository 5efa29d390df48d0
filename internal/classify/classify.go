package classify

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"media-catalog/internal/logging"
	"media-catalog/internal/natsort"
)

// StoryTag is the implicit tag applied to every story asset.
const StoryTag = "Story"

// tagDelimiter joins multiple tag tokens in a single directory name,
// e.g. "CG+Monochrome".
const tagDelimiter = "+"

// Kind is the classification assigned to an indexable filesystem entry.
type Kind string

const (
	// KindImage is a standalone image or video file.
	KindImage Kind = "image"
	// KindStory is a directory holding the ordered pages of one story.
	KindStory Kind = "story"
)

// Entry is one classified asset produced by a walk. Tag folders and ignored
// files do not produce entries; they only shape the entries beneath them.
type Entry struct {
	Kind   Kind
	Path   string   // absolute path of the file (image) or directory (story)
	Artist string   // top-level directory under the walk root
	Name   string   // file name for images, directory name for stories
	Tags   []string // accumulated tags in canonical casing; stories include StoryTag
	Pages  []string // naturally sorted page paths, stories only
}

// EmitFunc consumes one classified entry. Returning an error aborts the walk.
type EmitFunc func(Entry) error

// ArtistFunc is invoked once before each artist subtree is walked. Returning
// an error aborts the walk.
type ArtistFunc func(artist string) error

// Config holds the static classification rules.
type Config struct {
	// Tags is the allowlist of valid tag names in their canonical casing.
	Tags []string
	// Extensions is the set of indexable file extensions, lowercase with
	// leading dot (".jpg").
	Extensions []string
}

// Classifier assigns roles to filesystem entries: artist boundary, tag
// folder, story boundary or standalone image. The decision for a directory
// is made once, eagerly, from its name alone and is never revisited.
type Classifier struct {
	tags map[string]string // lowercased tag -> canonical casing
	exts map[string]bool
}

// New creates a Classifier from the given configuration. Tag matching is
// case-insensitive; emitted tags use the allowlist's canonical casing.
func New(cfg Config) *Classifier {
	c := &Classifier{
		tags: make(map[string]string, len(cfg.Tags)),
		exts: make(map[string]bool, len(cfg.Extensions)),
	}
	for _, tag := range cfg.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		c.tags[strings.ToLower(tag)] = tag
	}
	for _, ext := range cfg.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.exts[ext] = true
	}
	return c
}

// IsIndexable reports whether a file name has an allowed extension.
func (c *Classifier) IsIndexable(name string) bool {
	return c.exts[strings.ToLower(filepath.Ext(name))]
}

// CountArtists returns the number of artist subtrees directly under root.
// Hidden directories are not counted.
func (c *Classifier) CountArtists(root string) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, fmt.Errorf("failed to read root directory: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			count++
		}
	}
	return count, nil
}

// Walk classifies the tree rooted at root and streams the resulting entries
// to emit. Every direct subdirectory of root is an artist boundary; files at
// the root are ignored. onArtist, if non-nil, is called before each artist
// subtree so a caller can batch writes or report progress per artist.
//
// Directories that cannot be read are logged and skipped; they never abort
// the walk. Only a root read failure or an error from a callback does.
func (c *Classifier) Walk(root string, onArtist ArtistFunc, emit EmitFunc) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("failed to read root directory %s: %w", root, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		artist := entry.Name()
		if onArtist != nil {
			if err := onArtist(artist); err != nil {
				return err
			}
		}
		if err := c.walkTagged(filepath.Join(root, artist), artist, nil, emit); err != nil {
			return err
		}
	}
	return nil
}

// walkTagged descends a directory that is still in tag-folder territory:
// files here are standalone images, subdirectories are either tag folders
// (recurse with the enlarged tag set) or story boundaries.
func (c *Classifier) walkTagged(dir, artist string, tags []string, emit EmitFunc) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logging.Warn("skipping unreadable directory %s: %v", dir, err)
		return nil
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)

		if !entry.IsDir() {
			if !c.IsIndexable(name) {
				continue
			}
			if err := emit(Entry{
				Kind:   KindImage,
				Path:   path,
				Artist: artist,
				Name:   name,
				Tags:   dedupe(tags),
			}); err != nil {
				return err
			}
			continue
		}

		if canonical, ok := c.tagTokens(name); ok {
			// Every token is a known tag: pure metadata, recurse.
			if err := c.walkTagged(path, artist, append(tags[:len(tags):len(tags)], canonical...), emit); err != nil {
				return err
			}
			continue
		}

		// Any unrecognized token turns the whole subtree into one story.
		pages := c.collectPages(path)
		if len(pages) == 0 {
			logging.Debug("story directory %s has no indexable pages, skipping", path)
			continue
		}
		if err := emit(Entry{
			Kind:   KindStory,
			Path:   path,
			Artist: artist,
			Name:   name,
			Tags:   dedupe(append(tags[:len(tags):len(tags)], StoryTag)),
			Pages:  pages,
		}); err != nil {
			return err
		}
	}
	return nil
}

// tagTokens splits a directory name on the tag delimiter and resolves every
// token against the allowlist. ok is false if any token is unrecognized,
// which reclassifies the directory as a story boundary.
func (c *Classifier) tagTokens(name string) ([]string, bool) {
	parts := strings.Split(name, tagDelimiter)
	canonical := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		tag, ok := c.tags[strings.ToLower(part)]
		if !ok {
			return nil, false
		}
		canonical = append(canonical, tag)
	}
	return canonical, true
}

// collectPages gathers every indexable file beneath a story boundary,
// across all nesting levels, in natural order. Unreadable subdirectories
// and entries are skipped.
func (c *Classifier) collectPages(dir string) []string {
	var pages []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("skipping unreadable entry %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !c.IsIndexable(d.Name()) {
			return nil
		}
		pages = append(pages, path)
		return nil
	})
	if err != nil {
		logging.Warn("error collecting pages under %s: %v", dir, err)
	}
	natsort.Strings(pages)
	return pages
}

// dedupe returns a copy of tags with duplicates removed, preserving the
// first occurrence order.
func dedupe(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
	}
	return out
}
