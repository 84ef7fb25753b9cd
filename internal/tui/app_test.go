package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/compte/internal/config"
	"github.com/theirongolddev/compte/internal/model"
	"github.com/theirongolddev/compte/internal/pipeline"
	"github.com/theirongolddev/compte/internal/source"
)

func testData() *Data {
	ts := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	q := func(id, prompt, mdl string, in, out int64) model.Query {
		return model.Query{
			MessageID: id, UserPrompt: prompt, AssistantTimestamp: ts, Model: mdl,
			InputTokens: in, OutputTokens: out, TotalTokens: in + out,
			Cost: float64(in+out) / 1000, Tools: []string{"Read"},
		}
	}
	files := []pipeline.FileQueries{
		{
			File:    source.DiscoveredFile{SessionID: "aaaaaaaa-1111", Project: "alpha", ProjectDir: "-home-u-alpha"},
			Queries: []model.Query{q("m1", "fix the parser", "claude-sonnet-4-5", 100, 50)},
		},
		{
			File:    source.DiscoveredFile{SessionID: "bbbbbbbb-2222", Project: "beta", ProjectDir: "-home-u-beta"},
			Queries: []model.Query{q("m2", "write docs", "claude-opus-4-6", 500, 200)},
		},
	}
	snap := pipeline.Aggregate(files, nil)
	return &Data{
		Snapshot: snap,
		Stats:    pipeline.ScanStats{Files: 2},
		Hourly:   pipeline.AggregateHourly(files),
	}
}

func newLoadedApp(t *testing.T) App {
	t.Helper()
	app := NewApp(Options{
		Load:      func(bool, pipeline.ProgressFunc) (*Data, error) { return testData(), nil },
		ClaudeDir: "/tmp/claude",
	})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = m.Update(DataLoadedMsg{Data: testData()})
	return m.(App)
}

func press(t *testing.T, m tea.Model, keys ...string) App {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ = m.Update(msg)
	}
	return m.(App)
}

func TestLoadDataCmd_StreamsProgressThenResult(t *testing.T) {
	sub := make(chan tea.Msg, 16)
	load := func(force bool, progress pipeline.ProgressFunc) (*Data, error) {
		assert.True(t, force)
		progress(1, 2)
		return testData(), nil
	}

	msg := loadDataCmd(load, true, sub)()
	require.IsType(t, ProgressMsg{}, msg)
	assert.Equal(t, ProgressMsg{Current: 1, Total: 2}, msg)

	final := waitForLoadMsg(sub)()
	require.IsType(t, DataLoadedMsg{}, final)
	assert.NoError(t, final.(DataLoadedMsg).Err)
}

func TestApp_LoadingView(t *testing.T) {
	app := NewApp(Options{Load: func(bool, pipeline.ProgressFunc) (*Data, error) { return nil, nil }})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.Contains(t, m.View(), "Discovering sessions")

	m, _ = m.Update(ProgressMsg{Current: 3, Total: 10})
	assert.Contains(t, m.View(), "3/10 files")
}

func TestApp_TabNavigation(t *testing.T) {
	app := newLoadedApp(t)
	assert.Equal(t, tabOverview, app.activeTab)
	assert.Contains(t, app.View(), "Daily tokens")

	app = press(t, app, "b")
	assert.Equal(t, tabBreakdown, app.activeTab)
	assert.Contains(t, app.View(), "Projects")

	app = press(t, app, "p")
	assert.Equal(t, tabPrompts, app.activeTab)
	assert.Contains(t, app.View(), "write docs")

	m, _ := app.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, tabBreakdown, m.(App).activeTab)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, tabTips, m.(App).activeTab)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, tabOverview, m.(App).activeTab, "wraps around")
}

func TestApp_SessionsSearch(t *testing.T) {
	app := press(t, newLoadedApp(t), "s")
	require.Equal(t, tabSessions, app.activeTab)
	assert.Len(t, app.visibleSessions(), 2)

	app = press(t, app, "/")
	require.True(t, app.sessState.searching)
	app = press(t, app, "b", "e", "t", "a", "enter")
	assert.False(t, app.sessState.searching)
	assert.Equal(t, "beta", app.sessState.searchQuery)
	require.Len(t, app.visibleSessions(), 1)
	assert.Contains(t, app.View(), "bbbbbbbb")

	// Keys typed while searching never switch tabs.
	assert.Equal(t, tabSessions, app.activeTab)

	app = press(t, app, "esc")
	assert.Empty(t, app.sessState.searchQuery)
	assert.Len(t, app.visibleSessions(), 2)
}

func TestApp_SessionCursorClamps(t *testing.T) {
	app := press(t, newLoadedApp(t), "s", "down", "down", "down")
	assert.Equal(t, 1, app.sessState.cursor)

	app = press(t, app, "enter")
	assert.True(t, app.sessState.detail)
	app = press(t, app, "esc")
	assert.False(t, app.sessState.detail)
}

func TestApp_HelpToggle(t *testing.T) {
	app := press(t, newLoadedApp(t), "?")
	assert.True(t, app.showHelp)
	assert.Contains(t, app.View(), "Keyboard shortcuts")

	app = press(t, app, "x")
	assert.False(t, app.showHelp)
}

func TestApp_RefreshForcesRescan(t *testing.T) {
	app := newLoadedApp(t)
	m, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	assert.True(t, m.(App).refreshing)

	// A second press while rescanning is ignored.
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Nil(t, cmd)

	m, _ = m.Update(DataLoadedMsg{Err: errors.New("boom")})
	got := m.(App)
	assert.False(t, got.refreshing)
	assert.NotNil(t, got.data, "failed refresh keeps the previous data")
	assert.Contains(t, got.View(), "refresh failed: boom")
}

func TestApp_EmptyData(t *testing.T) {
	app := NewApp(Options{ClaudeDir: "/nowhere"})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = m.Update(DataLoadedMsg{Data: &Data{Snapshot: model.EmptySnapshot()}})
	assert.Contains(t, m.View(), "No Claude Code sessions found in /nowhere")
}

func TestApp_TooNarrow(t *testing.T) {
	app := newLoadedApp(t)
	m, _ := app.Update(tea.WindowSizeMsg{Width: 40, Height: 30})
	assert.Contains(t, m.View(), "Terminal too narrow")
}

func TestApp_MouseClickSelectsTab(t *testing.T) {
	app := newLoadedApp(t)
	m, _ := app.Update(tea.MouseMsg{X: 12, Y: 0, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	assert.Equal(t, tabSessions, m.(App).activeTab)
}

func TestApp_SetupFormAfterLoad(t *testing.T) {
	app := NewApp(Options{
		ClaudeDir: "/tmp/claude",
		NeedSetup: true,
		Config:    config.DefaultConfig(),
	})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m, cmd := m.Update(DataLoadedMsg{Data: testData()})
	got := m.(App)
	require.NotNil(t, got.setupForm)
	assert.NotNil(t, cmd)
	assert.Equal(t, huh.StateNormal, got.setupForm.State)

	// Tab keys go to the form, not the dashboard.
	got = press(t, got, "b")
	assert.Equal(t, tabOverview, got.activeTab)
}

func TestSetupValues_Apply(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Appearance.Theme = "no-such-theme"
	v := newSetupValues(cfg)
	assert.Equal(t, "flexoki-dark", v.theme)
	assert.Equal(t, config.CacheJSON, v.cache)

	v.days = 30
	v.theme = "tokyo-night"
	v.cache = config.CacheSQLite
	out := v.apply(cfg)
	assert.Equal(t, 30, out.General.DefaultDays)
	assert.Equal(t, "tokyo-night", out.Appearance.Theme)
	assert.Equal(t, config.CacheSQLite, out.Cache.Backend)
	assert.Equal(t, cfg.Server, out.Server)
}

func TestFilterSessions(t *testing.T) {
	sessions := testData().Snapshot.Sessions
	assert.Len(t, filterSessions(sessions, ""), 2)
	assert.Len(t, filterSessions(sessions, "OPUS"), 1)
	assert.Len(t, filterSessions(sessions, "parser"), 1)
	assert.Empty(t, filterSessions(sessions, "zzz"))
}

func TestListState(t *testing.T) {
	var l listState
	assert.True(t, l.move("G", 10, 20))
	assert.Equal(t, 9, l.cursor)
	assert.True(t, l.move("j", 10, 20))
	assert.Equal(t, 9, l.cursor)
	assert.False(t, l.move("x", 10, 20))

	start, end := l.window(10, 4)
	assert.Equal(t, 6, start)
	assert.Equal(t, 10, end)
}
