package server

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/compte/internal/model"
)

func writeSession(t *testing.T, root, project, session string, responses int) string {
	t.Helper()
	dir := filepath.Join(root, "projects", project)
	require.NoError(t, os.MkdirAll(dir, 0o750))

	var b strings.Builder
	b.WriteString(`{"type":"user","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"do the thing"}}` + "\n")
	for i := 0; i < responses; i++ {
		fmt.Fprintf(&b, `{"type":"assistant","timestamp":"2025-06-01T10:00:%02dZ","message":{"id":"%s-%d","model":"claude-sonnet-4-5","usage":{"input_tokens":100,"output_tokens":10}}}`+"\n", i+1, session, i)
	}
	path := filepath.Join(dir, session+".jsonl")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	root := t.TempDir()
	writeSession(t, root, "-Users-x-projects-demo", "s1", 2)
	return New(Config{ClaudeDir: root}), root
}

func get(t *testing.T, h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDiffSummaries(t *testing.T) {
	prev := Summary{Sessions: 10, Queries: 100, Tokens: 1_000_000, CostUSD: 10.5}
	curr := Summary{Sessions: 12, Queries: 112, Tokens: 1_250_000, CostUSD: 13.1}

	delta := diffSummaries(prev, curr)
	assert.Equal(t, 2, delta.Sessions)
	assert.Equal(t, 12, delta.Queries)
	assert.Equal(t, int64(250_000), delta.Tokens)
	assert.True(t, math.Abs(delta.CostUSD-2.6) < 1e-9)
	assert.False(t, delta.isZero())
	assert.True(t, diffSummaries(curr, curr).isZero())
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{ClaudeDir: ".", EventsBuffer: 2})

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	events := s.recentEvents()
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].ID)
	assert.Equal(t, int64(3), events[1].ID)
}

func TestUsage_FirstRequestScans(t *testing.T) {
	s, _ := newTestService(t)
	rec := get(t, s.Handler(), "/api/usage")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Sessions, 1)
	assert.Equal(t, 2, snap.Totals.TotalQueries)
	assert.NotNil(t, snap.Optimizations)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	for _, key := range []string{"sessions", "dailyUsage", "modelBreakdown", "topPrompts", "projects", "toolStats", "totals", "optimizations"} {
		assert.Contains(t, raw, key)
	}
}

func TestUsage_ServesHeldSnapshotUntilRefresh(t *testing.T) {
	s, root := newTestService(t)
	h := s.Handler()
	require.Equal(t, http.StatusOK, get(t, h, "/api/usage").Code)

	writeSession(t, root, "-Users-x-projects-demo", "s2", 3)

	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(get(t, h, "/api/usage").Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.Totals.TotalSessions, "no rescan without refresh")

	require.NoError(t, json.Unmarshal(get(t, h, "/api/usage?refresh=true").Body.Bytes(), &snap))
	assert.Equal(t, 2, snap.Totals.TotalSessions)
	assert.Equal(t, 5, snap.Totals.TotalQueries)
}

func TestRefresh_EmitsEvents(t *testing.T) {
	s, root := newTestService(t)
	ctx := context.Background()

	_, err := s.Refresh(ctx, false)
	require.NoError(t, err)
	_, err = s.Refresh(ctx, false)
	require.NoError(t, err)

	events := s.recentEvents()
	require.Len(t, events, 1, "an unchanged rescan emits nothing")
	assert.Equal(t, "snapshot", events[0].Type)

	writeSession(t, root, "-Users-x-projects-demo", "s2", 1)
	_, err = s.Refresh(ctx, false)
	require.NoError(t, err)

	events = s.recentEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "usage_delta", events[1].Type)
	assert.Equal(t, 1, events[1].Delta.Sessions)
	assert.Equal(t, 1, events[1].Delta.Queries)

	st := s.Status()
	assert.Equal(t, int64(3), st.ScanCount)
	assert.Equal(t, 2, st.LastScan.Files)
	assert.Empty(t, st.LastError)
}

func TestRefresh_CanceledContext(t *testing.T) {
	s, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Refresh(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRefresh_AppliesFilters(t *testing.T) {
	root := t.TempDir()
	writeSession(t, root, "-Users-x-projects-demo", "s1", 2)
	writeSession(t, root, "-Users-x-projects-other", "s2", 1)

	s := New(Config{ClaudeDir: root, ProjectFilter: "other"})
	snap, err := s.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Totals.TotalSessions)
	assert.Equal(t, "other", snap.Sessions[0].ProjectName)
}

func TestHandler_Routes(t *testing.T) {
	s, _ := newTestService(t)
	h := s.Handler()

	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	rec = get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/usage")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/nope").Code)

	req := httptest.NewRequest(http.MethodPost, "/api/usage", nil)
	post := httptest.NewRecorder()
	h.ServeHTTP(post, req)
	assert.Equal(t, http.StatusMethodNotAllowed, post.Code)

	_ = get(t, h, "/api/usage")
	rec = get(t, h, "/api/status")
	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 1, st.Summary.Sessions)

	rec = get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "compte_sessions 1")
	assert.Contains(t, body, `compte_model_tokens{model="claude-sonnet-4-5",type="input"} 200`)
	assert.Contains(t, body, `compte_scans_total{result="ok"} 1`)
}

func TestHandler_StaticDir(t *testing.T) {
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>dash</h1>"), 0o600))
	s := New(Config{ClaudeDir: t.TempDir(), StaticDir: static})

	rec := get(t, s.Handler(), "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dash")
}

func TestHandler_CORS(t *testing.T) {
	s, _ := newTestService(t)
	h := s.Handler()

	tests := []struct {
		origin string
		allow  bool
	}{
		{"http://localhost:5173", true},
		{"https://127.0.0.1", true},
		{"http://localhost.evil.com", false},
		{"https://example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			rec := get(t, h, "/healthz", "Origin", tt.origin)
			if tt.allow {
				assert.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/usage", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestStream_SendsCurrentSummary(t *testing.T) {
	s, _ := newTestService(t)
	_, err := s.Refresh(context.Background(), false)
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: snapshot\n", line)
	line, err = r.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"sessions":1`)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s := New(Config{ClaudeDir: t.TempDir(), Addr: "127.0.0.1:0"})
	ln, err := s.Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
