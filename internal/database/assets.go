package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"media-catalog/internal/logging"
)

// UpsertAsset inserts or replaces an asset keyed by its unique path and
// returns its id. The id is stable across re-scans of the same path. Must be
// called within a transaction from BeginBatch.
func (d *Database) UpsertAsset(tx *sql.Tx, a *Asset) (int64, error) {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO assets (path, type, artist, name, updated_at)
		VALUES (?, ?, ?, ?, strftime('%s', 'now'))
		ON CONFLICT(path) DO UPDATE SET
			type = excluded.type,
			artist = excluded.artist,
			name = excluded.name,
			updated_at = strftime('%s', 'now')
	`, a.Path, a.Type, a.Artist, a.Name)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert asset %s: %w", a.Path, err)
	}

	var id int64
	if err := tx.QueryRowContext(context.Background(),
		"SELECT id FROM assets WHERE path = ?", a.Path,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to resolve asset id for %s: %w", a.Path, err)
	}

	a.ID = id
	return id, nil
}

// ReplacePages replaces the ordered page list of an asset. Stories carry
// their full page sequence; images carry none.
func (d *Database) ReplacePages(tx *sql.Tx, assetID int64, pages []string) error {
	ctx := context.Background()

	if _, err := tx.ExecContext(ctx, "DELETE FROM asset_pages WHERE asset_id = ?", assetID); err != nil {
		return fmt.Errorf("failed to clear pages for asset %d: %w", assetID, err)
	}

	for i, page := range pages {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO asset_pages (asset_id, position, path) VALUES (?, ?, ?)",
			assetID, i, page,
		); err != nil {
			return fmt.Errorf("failed to insert page %d for asset %d: %w", i, assetID, err)
		}
	}
	return nil
}

// ReplaceTags fully replaces the tag set of an asset. No tags from a previous
// scan of the same path survive.
func (d *Database) ReplaceTags(tx *sql.Tx, assetID int64, tags []string) error {
	ctx := context.Background()

	if _, err := tx.ExecContext(ctx, "DELETE FROM asset_tags WHERE asset_id = ?", assetID); err != nil {
		return fmt.Errorf("failed to clear tags for asset %d: %w", assetID, err)
	}

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}

		var tagID int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM tags WHERE name = ?", tag).Scan(&tagID)
		if err != nil {
			result, createErr := tx.ExecContext(ctx, "INSERT INTO tags (name) VALUES (?)", tag)
			if createErr != nil {
				return fmt.Errorf("failed to create tag %q: %w", tag, createErr)
			}
			tagID, _ = result.LastInsertId()
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO asset_tags (asset_id, tag_id) VALUES (?, ?)",
			assetID, tagID,
		); err != nil {
			return fmt.Errorf("failed to tag asset %d with %q: %w", assetID, tag, err)
		}
	}
	return nil
}

// GetAssetByID retrieves a single asset with its tags and pages.
func (d *Database) GetAssetByID(ctx context.Context, id int64) (*Asset, error) {
	done := observeQuery("get_asset_by_id")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	a, err := d.scanAsset(d.db.QueryRowContext(ctx,
		"SELECT id, path, type, artist, name FROM assets WHERE id = ?", id))
	if err != nil {
		done(err)
		return nil, err
	}

	err = d.fillDetails(ctx, a)
	done(err)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetAssetByPath retrieves a single asset by its unique path.
func (d *Database) GetAssetByPath(ctx context.Context, path string) (*Asset, error) {
	done := observeQuery("get_asset_by_path")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	a, err := d.scanAsset(d.db.QueryRowContext(ctx,
		"SELECT id, path, type, artist, name FROM assets WHERE path = ?", path))
	if err != nil {
		done(err)
		return nil, err
	}

	err = d.fillDetails(ctx, a)
	done(err)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// AttachDetails loads tags and pages for a slice of assets, typically the
// single result page about to be returned to a client.
func (d *Database) AttachDetails(ctx context.Context, assets []Asset) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	for i := range assets {
		if err := d.fillDetails(ctx, &assets[i]); err != nil {
			return err
		}
	}
	return nil
}

// fillDetails loads tags and, for stories, pages. Caller must hold at least
// a read lock.
func (d *Database) fillDetails(ctx context.Context, a *Asset) error {
	tags, err := d.tagsForAsset(ctx, a.ID)
	if err != nil {
		return err
	}
	a.Tags = tags

	if a.Type != AssetTypeStory {
		return nil
	}

	rows, err := d.db.QueryContext(ctx,
		"SELECT path FROM asset_pages WHERE asset_id = ? ORDER BY position", a.ID)
	if err != nil {
		return fmt.Errorf("failed to load pages for asset %d: %w", a.ID, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var pages []string
	for rows.Next() {
		var page string
		if err := rows.Scan(&page); err != nil {
			return err
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	a.Pages = pages
	a.PageCount = len(pages)
	return nil
}

// tagsForAsset returns an asset's tags sorted by name. Caller must hold at
// least a read lock.
func (d *Database) tagsForAsset(ctx context.Context, assetID int64) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT t.name
		FROM tags t
		INNER JOIN asset_tags at ON t.id = at.tag_id
		WHERE at.asset_id = ?
		ORDER BY t.name COLLATE NOCASE
	`, assetID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

// TagCounts returns all tags with the number of assets carrying each,
// ordered by name.
func (d *Database) TagCounts(ctx context.Context) ([]TagCount, error) {
	done := observeQuery("tag_counts")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT t.name, COUNT(at.asset_id)
		FROM tags t
		LEFT JOIN asset_tags at ON t.id = at.tag_id
		GROUP BY t.id
		ORDER BY t.name COLLATE NOCASE
	`)
	if err != nil {
		done(err)
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var counts []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			done(err)
			return nil, err
		}
		counts = append(counts, tc)
	}

	err = rows.Err()
	done(err)
	return counts, err
}

// CountAssets returns the total number of indexed assets.
func (d *Database) CountAssets(ctx context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets").Scan(&count)
	return count, err
}

// WipeAll clears assets, pages and tag associations. Users and sessions are
// untouched. Used by the catalog reset operation.
func (d *Database) WipeAll(ctx context.Context) error {
	done := observeQuery("wipe_all")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 30*defaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		done(err)
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logging.Error("rollback failed: %v", rbErr)
			}
		}
	}()

	for _, stmt := range []string{
		"DELETE FROM asset_tags",
		"DELETE FROM asset_pages",
		"DELETE FROM assets",
		"DELETE FROM tags",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			done(err)
			return fmt.Errorf("wipe failed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		done(err)
		return err
	}
	committed = true
	done(nil)
	return nil
}

// scanAsset reads one asset row.
func (d *Database) scanAsset(row *sql.Row) (*Asset, error) {
	var a Asset
	if err := row.Scan(&a.ID, &a.Path, &a.Type, &a.Artist, &a.Name); err != nil {
		return nil, err
	}
	return &a, nil
}
