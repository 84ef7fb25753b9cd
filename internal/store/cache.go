package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-json-experiment/json"

	"github.com/theirongolddev/compte/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// DBCache stores cache entries in SQLite, one row per fingerprint.
type DBCache struct {
	db     *sql.DB
	Logger *slog.Logger
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*DBCache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DBCache{db: db}, nil
}

// Close closes the cache database.
func (c *DBCache) Close() error {
	return c.db.Close()
}

func (c *DBCache) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Load returns every cached entry. Rows that fail to decode are dropped,
// so the affected files are simply re-parsed.
func (c *DBCache) Load() map[string][]model.Query {
	result := make(map[string][]model.Query)

	if v, err := c.meta("schema_version"); err != nil || v != strconv.Itoa(schemaVersion) {
		return result
	}

	rows, err := c.db.Query("SELECT fingerprint, queries FROM query_cache")
	if err != nil {
		c.logger().Debug("cache unreadable, starting cold", "err", err)
		return result
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			key  string
			blob []byte
		)
		if err := rows.Scan(&key, &blob); err != nil {
			c.logger().Debug("cache row unreadable", "err", err)
			continue
		}
		var qs []model.Query
		if err := json.Unmarshal(blob, &qs); err != nil {
			c.logger().Debug("cache row corrupt", "fingerprint", key, "err", err)
			continue
		}
		result[key] = qs
	}
	if err := rows.Err(); err != nil {
		c.logger().Debug("cache read interrupted, starting cold", "err", err)
		return make(map[string][]model.Query)
	}
	return result
}

// Store rewrites the table to hold exactly entries. Failures are logged and dropped.
func (c *DBCache) Store(entries map[string][]model.Query) {
	if err := c.replaceAll(entries); err != nil {
		c.logger().Debug("cache write dropped", "err", err)
	}
}

func (c *DBCache) replaceAll(entries map[string][]model.Query) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM query_cache"); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO query_cache (fingerprint, queries) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for key, qs := range entries {
		blob, err := json.Marshal(qs)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		if _, err := stmt.Exec(key, blob); err != nil {
			return fmt.Errorf("inserting %s: %w", key, err)
		}
	}

	for k, v := range map[string]string{
		"schema_version": strconv.Itoa(schemaVersion),
		"written_at":     time.Now().UTC().Format(time.RFC3339),
	} {
		if _, err := tx.Exec("INSERT OR REPLACE INTO cache_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("writing meta: %w", err)
		}
	}

	return tx.Commit()
}

func (c *DBCache) meta(key string) (string, error) {
	var v string
	err := c.db.QueryRow("SELECT value FROM cache_meta WHERE key = ?", key).Scan(&v)
	return v, err
}

// EntryCount returns the number of cached fingerprints.
func (c *DBCache) EntryCount() (int, error) {
	var n int
	err := c.db.QueryRow("SELECT COUNT(*) FROM query_cache").Scan(&n)
	return n, err
}
