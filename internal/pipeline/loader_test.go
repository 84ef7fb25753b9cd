package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/compte/internal/model"
	"github.com/theirongolddev/compte/internal/store"
)

func writeJSONL(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
}

func userLine(ts, text string) string {
	return fmt.Sprintf(`{"type":"user","timestamp":%q,"message":{"role":"user","content":%q}}`, ts, text)
}

func assistantLine(ts, id, mdl string, in, out int, tools ...string) string {
	blocks := []string{`{"type":"text","text":"ok"}`}
	for _, name := range tools {
		blocks = append(blocks, fmt.Sprintf(`{"type":"tool_use","name":%q}`, name))
	}
	return fmt.Sprintf(
		`{"type":"assistant","timestamp":%q,"message":{"id":%q,"model":%q,"content":[%s],"usage":{"input_tokens":%d,"output_tokens":%d,"cache_read_input_tokens":%d}}}`,
		ts, id, mdl, strings.Join(blocks, ","), in, out, in*2,
	)
}

// fixture builds a small ~/.claude tree and returns its root.
func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	projects := filepath.Join(root, "projects")

	writeJSONL(t, filepath.Join(projects, "-Users-x-projects-alpha", "s1.jsonl"),
		userLine("2025-06-01T10:00:00Z", "build the parser"),
		assistantLine("2025-06-01T10:00:05Z", "m1", "claude-opus-4-6", 100, 50, "Read", "Edit"),
		assistantLine("2025-06-01T10:00:09Z", "m2", "claude-opus-4-6", 20, 10),
		`{"type":"assistant","message":{"id":`,
	)
	writeJSONL(t, filepath.Join(projects, "-Users-x-projects-alpha", "s2.jsonl"),
		userLine("2025-06-02T08:00:00Z", "write tests"),
		assistantLine("2025-06-02T08:00:03Z", "m3", "claude-sonnet-4-5", 10, 5, "Bash"),
	)
	writeJSONL(t, filepath.Join(projects, "-Users-x-projects-beta", "s3.jsonl"),
		userLine("2025-06-03T12:00:00Z", "hello"),
	)
	writeJSONL(t, filepath.Join(root, "history.jsonl"),
		`{"display":"Parser work from history","sessionId":"s1"}`,
	)
	return root
}

func snapshotJSON(t *testing.T, s *model.Snapshot) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.MarshalWrite(&buf, s, json.Deterministic(true)))
	return buf.Bytes()
}

func TestScan_Basic(t *testing.T) {
	res := Scan(Options{ClaudeDir: fixture(t)})

	assert.Equal(t, 3, res.Stats.Files)
	assert.Equal(t, 2, res.Stats.ProjectCount)
	assert.Equal(t, 3, res.Stats.Reparsed)
	assert.Equal(t, 1, res.Stats.ParseErrors)

	snap := res.Snapshot
	require.Len(t, snap.Sessions, 2, "a session with no responses is omitted")
	assert.Equal(t, "s1", snap.Sessions[0].SessionID)
	assert.Equal(t, "Parser work from history", snap.Sessions[0].FirstPrompt)
	assert.Equal(t, "alpha", snap.Sessions[0].ProjectName)
	assert.Equal(t, "write tests", snap.Sessions[1].FirstPrompt)

	assert.Equal(t, 3, snap.Totals.TotalQueries)
	assert.Equal(t, []model.ToolUsage{
		{Name: "Read", Count: 1},
		{Name: "Edit", Count: 1},
		{Name: "Bash", Count: 1},
	}, snap.ToolStats)
	require.Len(t, snap.Projects, 1)
}

func TestScan_MissingDirectory(t *testing.T) {
	res := Scan(Options{ClaudeDir: filepath.Join(t.TempDir(), "nope")})
	assert.Equal(t, model.EmptySnapshot(), res.Snapshot)
	assert.Zero(t, res.Stats.Files)
}

func TestScan_UnlistableProjectsDegrades(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can list any directory")
	}
	root := fixture(t)
	cache := store.NewFileCache(filepath.Join(t.TempDir(), "queries.json"), nil)
	Scan(Options{ClaudeDir: root, Cache: cache})
	require.Len(t, cache.Load(), 3)

	projects := filepath.Join(root, "projects")
	require.NoError(t, os.Chmod(projects, 0o000))
	t.Cleanup(func() { _ = os.Chmod(projects, 0o750) })

	res := Scan(Options{ClaudeDir: root, Cache: cache})
	assert.NotEmpty(t, res.Stats.ListError)
	assert.Empty(t, res.Snapshot.Sessions)
	assert.Zero(t, res.Snapshot.Totals.TotalSessions)
	assert.Len(t, cache.Load(), 3, "the stored cache survives")
}

func TestScan_SecondRunIsIdempotent(t *testing.T) {
	root := fixture(t)
	cache := store.NewFileCache(filepath.Join(t.TempDir(), "queries.json"), nil)

	first := Scan(Options{ClaudeDir: root, Cache: cache})
	second := Scan(Options{ClaudeDir: root, Cache: cache})

	assert.Zero(t, second.Stats.Reparsed)
	assert.Equal(t, 3, second.Stats.CacheHits, "files without responses are cached too")
	assert.Equal(t, snapshotJSON(t, first.Snapshot), snapshotJSON(t, second.Snapshot))
}

func TestScan_TouchedFileIsReparsed(t *testing.T) {
	root := fixture(t)
	cache := store.NewFileCache(filepath.Join(t.TempDir(), "queries.json"), nil)

	Scan(Options{ClaudeDir: root, Cache: cache})
	before := cache.Load()

	path := filepath.Join(root, "projects", "-Users-x-projects-alpha", "s2.jsonl")
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	res := Scan(Options{ClaudeDir: root, Cache: cache})
	assert.Equal(t, 1, res.Stats.Reparsed)
	assert.Equal(t, 2, res.Stats.CacheHits)

	after := cache.Load()
	assert.Len(t, after, len(before), "stale fingerprints are evicted")
	fp, ok := store.Fingerprint(path)
	require.True(t, ok)
	assert.Contains(t, after, fp)
	assert.NotContains(t, before, fp)
}

func TestScan_RemovedFileLeavesCache(t *testing.T) {
	root := fixture(t)
	cache := store.NewFileCache(filepath.Join(t.TempDir(), "queries.json"), nil)

	Scan(Options{ClaudeDir: root, Cache: cache})
	require.NoError(t, os.Remove(filepath.Join(root, "projects", "-Users-x-projects-beta", "s3.jsonl")))

	res := Scan(Options{ClaudeDir: root, Cache: cache})
	assert.Zero(t, res.Stats.Reparsed)
	assert.Len(t, cache.Load(), 2)
}

func TestScan_ForceRefreshReparsesEverything(t *testing.T) {
	root := fixture(t)
	cache := store.NewFileCache(filepath.Join(t.TempDir(), "queries.json"), nil)

	Scan(Options{ClaudeDir: root, Cache: cache})

	res := Scan(Options{ClaudeDir: root, Cache: cache, ForceRefresh: true})
	assert.Equal(t, 3, res.Stats.Reparsed)
	assert.Len(t, cache.Load(), 3, "the rebuilt cache is still stored")
}

func TestScan_SQLiteCache(t *testing.T) {
	root := fixture(t)
	db, err := store.Open(filepath.Join(t.TempDir(), "queries.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	first := Scan(Options{ClaudeDir: root, Cache: db})
	second := Scan(Options{ClaudeDir: root, Cache: db})

	assert.Zero(t, second.Stats.Reparsed)
	assert.Equal(t, snapshotJSON(t, first.Snapshot), snapshotJSON(t, second.Snapshot))
}

func TestScan_ProgressReachesTotal(t *testing.T) {
	var last, total int
	Scan(Options{
		ClaudeDir: fixture(t),
		Workers:   1,
		Progress: func(current, n int) {
			last, total = current, n
		},
	})
	assert.Equal(t, 3, total)
	assert.Equal(t, 3, last)
}

func TestScan_HistoryOverride(t *testing.T) {
	res := Scan(Options{ClaudeDir: fixture(t), History: map[string]string{"s2": "custom"}})

	prompts := map[string]string{}
	for _, s := range res.Snapshot.Sessions {
		prompts[s.SessionID] = s.FirstPrompt
	}
	assert.Equal(t, "custom", prompts["s2"])
	assert.Equal(t, "build the parser", prompts["s1"], "an explicit index replaces history.jsonl")
}

func TestFilterFiles(t *testing.T) {
	res := Scan(Options{ClaudeDir: fixture(t)})

	byModel := FilterFiles(res.Files, Filter{Model: "SONNET"})
	require.Len(t, byModel, 1)
	assert.Equal(t, "s2", byModel[0].File.SessionID)

	since := FilterFiles(res.Files, Filter{Since: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)})
	require.Len(t, since, 1)

	until := FilterFiles(res.Files, Filter{Until: time.Date(2025, 6, 2, 8, 0, 3, 0, time.UTC)})
	require.Len(t, until, 1, "the bound is exclusive")
	assert.Equal(t, "s1", until[0].File.SessionID)

	byProject := FilterFiles(res.Files, Filter{Project: "beta"})
	assert.Empty(t, byProject, "beta has no queries")

	assert.Len(t, FilterFiles(res.Files, Filter{}), 3)

	snap := Aggregate(FilterFiles(res.Files, Filter{Project: "ALPHA", Model: "opus"}), res.History)
	assert.Equal(t, 2, snap.Totals.TotalQueries)
}

func TestAggregateCostBreakdown(t *testing.T) {
	res := Scan(Options{ClaudeDir: fixture(t)})

	totals, rows := AggregateCostBreakdown(res.Files, nil)
	require.Len(t, rows, 2)
	assert.Equal(t, "claude-opus-4-6", rows[0].Model)
	assert.GreaterOrEqual(t, rows[0].TotalCost, rows[1].TotalCost)
	assert.InDelta(t, res.Snapshot.Totals.TotalCost, totals.TotalCost, 1e-9)
	assert.Positive(t, totals.CacheSavings)
}

func TestAggregateHourly(t *testing.T) {
	res := Scan(Options{ClaudeDir: fixture(t)})

	hours := AggregateHourly(res.Files)
	require.Len(t, hours, 24)
	var n int
	for _, h := range hours {
		n += h.Queries
	}
	assert.Equal(t, 3, n)
}
