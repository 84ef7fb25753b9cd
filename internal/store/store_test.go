package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/compte/internal/model"
)

func sampleEntries() map[string][]model.Query {
	return map[string][]model.Query{
		"/p/a.jsonl:100:10": {
			{
				MessageID:          "m1",
				UserPrompt:         "hello",
				UserTimestamp:      time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
				AssistantTimestamp: time.Date(2025, 6, 1, 10, 0, 5, 0, time.UTC),
				Model:              "claude-sonnet-4-5",
				InputTokens:        10,
				OutputTokens:       5,
				TotalTokens:        15,
				Cost:               0.000105,
				Tools:              []string{"Read"},
				Thinking:           true,
			},
		},
		"/p/b.jsonl:200:20": {},
	}
}

func TestFingerprint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	fp, ok := Fingerprint(path)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(fp, path+":"))
	assert.True(t, strings.HasSuffix(fp, ":3"))

	// A new mtime with identical content is a new fingerprint.
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	fp2, ok := Fingerprint(path)
	require.True(t, ok)
	assert.NotEqual(t, fp, fp2)

	_, ok = Fingerprint(filepath.Join(t.TempDir(), "gone.jsonl"))
	assert.False(t, ok)
}

func TestFileCache_RoundTrip(t *testing.T) {
	c := NewFileCache(filepath.Join(t.TempDir(), "sub", "queries.json"), nil)
	assert.Empty(t, c.Load(), "missing file loads empty")

	c.Store(sampleEntries())
	got := c.Load()
	require.Len(t, got, 2)

	q := got["/p/a.jsonl:100:10"][0]
	assert.Equal(t, "hello", q.UserPrompt)
	assert.True(t, q.AssistantTimestamp.Equal(time.Date(2025, 6, 1, 10, 0, 5, 0, time.UTC)))
	assert.Equal(t, []string{"Read"}, q.Tools)
	assert.True(t, q.Thinking)
	assert.Empty(t, got["/p/b.jsonl:200:20"])
}

func TestFileCache_StoreIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := NewFileCache(filepath.Join(dir, "a.json"), nil)
	b := NewFileCache(filepath.Join(dir, "b.json"), nil)
	a.Store(sampleEntries())
	b.Store(sampleEntries())

	da, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	db, err := os.ReadFile(b.Path)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestFileCache_CorruptLoadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.json")
	for _, body := range []string{"{not json", `{"version":99,"entries":{"k":[]}}`, ""} {
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		assert.Empty(t, NewFileCache(path, nil).Load(), body)
	}
}

func TestFileCache_StoreFailureIsSilent(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	// The parent "directory" is a regular file, so the write must fail.
	c := NewFileCache(filepath.Join(blocker, "queries.json"), nil)
	assert.NotPanics(t, func() { c.Store(sampleEntries()) })
	assert.Empty(t, c.Load())
}

func TestDBCache_RoundTripAndReplace(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "queries.db"))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.Empty(t, c.Load(), "fresh database loads empty")

	c.Store(sampleEntries())
	got := c.Load()
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got["/p/a.jsonl:100:10"][0].MessageID)

	// Store replaces wholesale: stale fingerprints disappear.
	c.Store(map[string][]model.Query{"/p/c.jsonl:1:1": {{MessageID: "m9"}}})
	got = c.Load()
	require.Len(t, got, 1)
	assert.Contains(t, got, "/p/c.jsonl:1:1")

	n, err := c.EntryCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNopCache(t *testing.T) {
	var c QueryCache = NopCache{}
	c.Store(sampleEntries())
	assert.Empty(t, c.Load())
}
