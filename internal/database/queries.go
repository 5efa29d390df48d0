package database

import (
	"context"
	"fmt"
	"strings"

	"media-catalog/internal/logging"
)

// QueryAssets returns every asset satisfying the predicate and, when text is
// non-empty, whose artist or name contains text as a case-insensitive
// substring. Case folding follows sqlite LIKE, which is ASCII-only; non-ASCII
// letters match case-sensitively. Results carry only the identity columns;
// callers attach tags and pages after ranking and slicing with AttachDetails.
//
// The predicate is translated to SQL in one deterministic pass: AND clauses
// first in slice order, then OR, then NOT, then the text filter. Parameters
// are appended in lockstep with their clauses, never reordered.
func (d *Database) QueryAssets(ctx context.Context, pred Predicate, text string) ([]Asset, error) {
	done := observeQuery("query_assets")

	query, args := buildAssetQuery(pred, text)
	logging.Debug("QueryAssets: %s args=%v", query, args)

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("asset query failed: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var assets []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.Path, &a.Type, &a.Artist, &a.Name); err != nil {
			done(err)
			return nil, fmt.Errorf("asset scan failed: %w", err)
		}
		assets = append(assets, a)
	}

	err = rows.Err()
	done(err)
	if err != nil {
		return nil, fmt.Errorf("asset rows failed: %w", err)
	}
	return assets, nil
}

// buildAssetQuery translates a predicate and text filter into a single SQL
// statement with a matching argument list. The tags table is declared
// COLLATE NOCASE, so tag comparisons are case-insensitive without explicit
// collation clauses.
func buildAssetQuery(pred Predicate, text string) (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}

	sb.WriteString("SELECT a.id, a.path, a.type, a.artist, a.name FROM assets a")

	var conds []string

	// Every AND tag must be present.
	for _, tag := range pred.And {
		conds = append(conds, tagExists("t.name = ?"))
		args = append(args, tag)
	}

	// At least one OR tag must be present; an empty OR set is vacuously true.
	if len(pred.Or) > 0 {
		conds = append(conds, tagExists("t.name IN ("+placeholders(len(pred.Or))+")"))
		for _, tag := range pred.Or {
			args = append(args, tag)
		}
	}

	// No NOT tag may be present.
	if len(pred.Not) > 0 {
		conds = append(conds, "NOT "+tagExists("t.name IN ("+placeholders(len(pred.Not))+")"))
		for _, tag := range pred.Not {
			args = append(args, tag)
		}
	}

	// Free-text filter over artist and display name; LIKE is
	// case-insensitive for ASCII in SQLite.
	if text != "" {
		conds = append(conds, `(a.artist LIKE ? ESCAPE '\' OR a.name LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(text) + "%"
		args = append(args, pattern, pattern)
	}

	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	// Stable base order; final natural ordering happens in the ranker.
	sb.WriteString(" ORDER BY a.id")

	return sb.String(), args
}

// tagExists wraps a tag-name condition in an EXISTS subquery against the
// asset's tag associations.
func tagExists(cond string) string {
	return "EXISTS (SELECT 1 FROM asset_tags at INNER JOIN tags t ON t.id = at.tag_id WHERE at.asset_id = a.id AND " + cond + ")"
}

// placeholders returns n comma-separated SQL placeholders.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// escapeLike escapes LIKE wildcards so user text matches literally. The
// queries using these patterns declare ESCAPE '\'.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
