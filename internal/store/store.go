// Package store persists parsed query lists between scans, keyed by file fingerprint.
package store

import (
	"fmt"
	"os"

	"github.com/theirongolddev/compte/internal/model"
)

// QueryCache is the key-value persistence used by the scan pipeline.
//
// Load never fails: a missing or unreadable cache is returned as an empty map.
// Store never fails either: a write that cannot complete is dropped, which
// only costs re-parsing on the next scan.
type QueryCache interface {
	Load() map[string][]model.Query
	Store(entries map[string][]model.Query)
}

// Fingerprint identifies a file's content version by path, mtime and size.
// It returns false when the file cannot be stat'd.
func Fingerprint(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%s:%d:%d", path, info.ModTime().UnixNano(), info.Size()), true
}

// NopCache persists nothing.
type NopCache struct{}

// Load returns an empty map.
func (NopCache) Load() map[string][]model.Query { return map[string][]model.Query{} }

// Store discards entries.
func (NopCache) Store(map[string][]model.Query) {}
