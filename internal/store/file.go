package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-json-experiment/json"

	"github.com/theirongolddev/compte/internal/model"
)

// snapshotFile is the on-disk layout of a FileCache.
type snapshotFile struct {
	Version int                      `json:"version"`
	Entries map[string][]model.Query `json:"entries"`
}

// FileCache stores the whole cache as one JSON document, rewritten on every Store.
type FileCache struct {
	Path   string
	Logger *slog.Logger
}

// NewFileCache returns a cache backed by the JSON file at path.
func NewFileCache(path string, logger *slog.Logger) *FileCache {
	return &FileCache{Path: path, Logger: logger}
}

func (c *FileCache) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Load reads the snapshot. Missing, corrupt or version-mismatched files yield an empty map.
func (c *FileCache) Load() map[string][]model.Query {
	empty := map[string][]model.Query{}

	f, err := os.Open(c.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger().Debug("cache unreadable, starting cold", "path", c.Path, "err", err)
		}
		return empty
	}
	defer func() { _ = f.Close() }()

	var snap snapshotFile
	if err := json.UnmarshalRead(f, &snap); err != nil {
		c.logger().Debug("cache corrupt, starting cold", "path", c.Path, "err", err)
		return empty
	}
	if snap.Version != schemaVersion || snap.Entries == nil {
		return empty
	}
	return snap.Entries
}

// Store replaces the snapshot with entries. Failures are logged and dropped.
func (c *FileCache) Store(entries map[string][]model.Query) {
	if err := c.write(entries); err != nil {
		c.logger().Debug("cache write dropped", "path", c.Path, "err", err)
	}
}

// write goes through a temp file and rename so readers never see a partial snapshot.
func (c *FileCache) write(entries map[string][]model.Query) error {
	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".queries-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	snap := snapshotFile{Version: schemaVersion, Entries: entries}
	if err := json.MarshalWrite(tmp, snap, json.Deterministic(true)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encoding cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.Path); err != nil {
		return fmt.Errorf("replacing cache: %w", err)
	}
	return nil
}
