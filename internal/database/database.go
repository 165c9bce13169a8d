package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"prompt-explorer/internal/logging"
	"prompt-explorer/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// PromptRow is one cached extraction result. A row is valid for a given
// file only while both Size and ModTime still match the file on disk.
type PromptRow struct {
	Path    string
	Size    int64
	ModTime int64
	Prompt  string
}

// Database persists extracted prompts so that re-scanning an unchanged
// folder skips PNG decoding entirely.
type Database struct {
	db     *sql.DB
	dbPath string
}

// New opens (or creates) the prompt cache at dbPath. The parent
// directory must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Prompt cache path: %s", dbPath)

	// WAL mode keeps scan-time writes from blocking lookups;
	// busy_timeout prevents "database is locked" errors.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open prompt cache: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close prompt cache after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to prompt cache: %w", err)
	}

	// A single desktop process; a couple of connections is plenty.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close prompt cache after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize prompt cache schema: %w", err)
	}

	logging.Info("Prompt cache initialized at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS prompts (
		path TEXT PRIMARY KEY,
		size INTEGER NOT NULL,
		mod_time INTEGER NOT NULL,
		prompt TEXT NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_prompts_updated_at ON prompts(updated_at);
	`

	initCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(initCtx, schema)
	return err
}

// Close closes the underlying database handle.
func (d *Database) Close() error {
	return d.db.Close()
}

// Lookup returns the cached prompt for path if the stored size and
// modification time still match. The boolean reports whether a valid
// row was found.
func (d *Database) Lookup(ctx context.Context, path string, size, modTime int64) (string, bool) {
	start := time.Now()

	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var prompt string
	err := d.db.QueryRowContext(queryCtx,
		`SELECT prompt FROM prompts WHERE path = ? AND size = ? AND mod_time = ?`,
		path, size, modTime,
	).Scan(&prompt)

	metrics.DBQueryDuration.WithLabelValues("lookup").Observe(time.Since(start).Seconds())
	if err != nil {
		if err != sql.ErrNoRows {
			metrics.DBQueryTotal.WithLabelValues("lookup", "error").Inc()
			logging.Warn("Prompt cache lookup failed for %s: %v", path, err)
		} else {
			metrics.DBQueryTotal.WithLabelValues("lookup", "miss").Inc()
		}
		return "", false
	}

	metrics.DBQueryTotal.WithLabelValues("lookup", "hit").Inc()
	return prompt, true
}

// SaveBatch upserts all rows in a single transaction.
func (d *Database) SaveBatch(ctx context.Context, rows []PromptRow) error {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()

	txCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := d.db.BeginTx(txCtx, nil)
	if err != nil {
		metrics.DBQueryTotal.WithLabelValues("save_batch", "error").Inc()
		return fmt.Errorf("failed to begin prompt cache transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(txCtx, `
		INSERT INTO prompts (path, size, mod_time, prompt, updated_at)
		VALUES (?, ?, ?, ?, strftime('%s', 'now'))
		ON CONFLICT(path) DO UPDATE SET
			size = excluded.size,
			mod_time = excluded.mod_time,
			prompt = excluded.prompt,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		_ = tx.Rollback()
		metrics.DBQueryTotal.WithLabelValues("save_batch", "error").Inc()
		return fmt.Errorf("failed to prepare prompt upsert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(txCtx, row.Path, row.Size, row.ModTime, row.Prompt); err != nil {
			_ = tx.Rollback()
			metrics.DBQueryTotal.WithLabelValues("save_batch", "error").Inc()
			return fmt.Errorf("failed to upsert prompt for %s: %w", row.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.DBQueryTotal.WithLabelValues("save_batch", "error").Inc()
		return fmt.Errorf("failed to commit prompt cache batch: %w", err)
	}

	metrics.DBQueryTotal.WithLabelValues("save_batch", "ok").Inc()
	metrics.DBQueryDuration.WithLabelValues("save_batch").Observe(time.Since(start).Seconds())
	logging.Debug("Prompt cache: saved %d rows in %v", len(rows), time.Since(start))
	return nil
}

// Prune deletes rows that have not been refreshed within maxAge.
// Run at startup to keep the cache from accumulating rows for files
// and folders that no longer exist.
func (d *Database) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	start := time.Now()

	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cutoff := time.Now().Add(-maxAge).Unix()
	res, err := d.db.ExecContext(queryCtx, `DELETE FROM prompts WHERE updated_at < ?`, cutoff)
	metrics.DBQueryDuration.WithLabelValues("prune").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DBQueryTotal.WithLabelValues("prune", "error").Inc()
		return 0, fmt.Errorf("failed to prune prompt cache: %w", err)
	}

	metrics.DBQueryTotal.WithLabelValues("prune", "ok").Inc()
	n, _ := res.RowsAffected()
	if n > 0 {
		logging.Info("Prompt cache: pruned %d stale rows", n)
	}
	return n, nil
}

// Count returns the number of cached prompts.
func (d *Database) Count(ctx context.Context) (int64, error) {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int64
	if err := d.db.QueryRowContext(queryCtx, `SELECT COUNT(*) FROM prompts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count prompt cache rows: %w", err)
	}
	return n, nil
}
