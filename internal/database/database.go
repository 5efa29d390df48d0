package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database manages all catalog storage for the media catalog.
type Database struct {
	db       *sql.DB
	dbPath   string
	mu       sync.RWMutex
	stats    CatalogStats
	statsMu  sync.RWMutex
	txMu     sync.Mutex
	txStarts map[*sql.Tx]time.Time
}

// New opens (creating if needed) the catalog database at dbPath. The parent
// directory must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	// WAL mode keeps scan writes from blocking search reads; busy_timeout
	// prevents spurious "database is locked" errors.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:       db,
		dbPath:   dbPath,
		txStarts: make(map[*sql.Tx]time.Time),
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	-- Indexed assets: one row per standalone image or story
	CREATE TABLE IF NOT EXISTS assets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		artist TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_assets_artist ON assets(artist COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_assets_name ON assets(name COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_assets_type ON assets(type);

	-- Ordered story pages
	CREATE TABLE IF NOT EXISTS asset_pages (
		asset_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		path TEXT NOT NULL,
		PRIMARY KEY (asset_id, position),
		FOREIGN KEY (asset_id) REFERENCES assets(id) ON DELETE CASCADE
	);

	-- Tags table
	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_tags_name ON tags(name COLLATE NOCASE);

	-- Asset-Tag relationship table
	CREATE TABLE IF NOT EXISTS asset_tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		asset_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		FOREIGN KEY (asset_id) REFERENCES assets(id) ON DELETE CASCADE,
		FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE,
		UNIQUE(asset_id, tag_id)
	);

	CREATE INDEX IF NOT EXISTS idx_asset_tags_asset ON asset_tags(asset_id);
	CREATE INDEX IF NOT EXISTS idx_asset_tags_tag ON asset_tags(tag_id);

	-- Users table (single user, password only)
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		password_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	-- Sessions table
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL UNIQUE,
		expires_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
	`

	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// BeginBatch starts a transaction for batch operations. The caller is
// responsible for calling EndBatch when done.
func (d *Database) BeginBatch() (*sql.Tx, error) {
	d.mu.Lock()
	txStart := time.Now()

	// Background context: the transaction's lifetime is managed by EndBatch,
	// a deferred cancel here would kill it as soon as this function returns.
	tx, err := d.db.BeginTx(context.Background(), nil)
	d.mu.Unlock()

	if err != nil {
		return nil, err
	}

	d.txMu.Lock()
	d.txStarts[tx] = txStart
	d.txMu.Unlock()
	return tx, nil
}

// EndBatch commits or rolls back a transaction depending on err.
func (d *Database) EndBatch(tx *sql.Tx, err error) error {
	d.txMu.Lock()
	txStart, ok := d.txStarts[tx]
	delete(d.txStarts, tx)
	d.txMu.Unlock()
	if !ok {
		txStart = time.Now()
	}
	duration := time.Since(txStart).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		rbErr := tx.Rollback()
		if rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// UpdateStats updates the cached catalog statistics.
func (d *Database) UpdateStats(stats CatalogStats) {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	d.stats = stats
}

// GetStats returns the cached catalog statistics.
func (d *Database) GetStats() CatalogStats {
	d.statsMu.RLock()
	defer d.statsMu.RUnlock()
	return d.stats
}

// CalculateStats queries the current catalog counts.
func (d *Database) CalculateStats(ctx context.Context) (CatalogStats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var stats CatalogStats
	err := d.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN type = ? THEN 1 END),
			COUNT(CASE WHEN type = ? THEN 1 END)
		FROM assets
	`, AssetTypeImage, AssetTypeStory).Scan(&stats.TotalAssets, &stats.TotalImages, &stats.TotalStories)
	if err != nil {
		return stats, fmt.Errorf("failed to count assets: %w", err)
	}

	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tags").Scan(&stats.TotalTags); err != nil {
		return stats, fmt.Errorf("failed to count tags: %w", err)
	}

	return stats, nil
}

// Vacuum optimizes the database.
func (d *Database) Vacuum() error {
	start := time.Now()
	var err error
	defer func() { recordQuery("vacuum", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "VACUUM")
	return err
}

// UpdateDBMetrics updates database connection metrics.
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}

// recordQuery records database query metrics.
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// observeQuery starts a query metric observation; call the returned func with
// the final error when the operation completes.
func observeQuery(operation string) func(error) {
	start := time.Now()
	return func(err error) {
		recordQuery(operation, start, err)
	}
}
