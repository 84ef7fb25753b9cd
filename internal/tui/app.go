// Package tui implements the interactive compte dashboard.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/compte/internal/cli"
	"github.com/theirongolddev/compte/internal/config"
	"github.com/theirongolddev/compte/internal/model"
	"github.com/theirongolddev/compte/internal/pipeline"
	"github.com/theirongolddev/compte/internal/tui/components"
	"github.com/theirongolddev/compte/internal/tui/theme"
)

// Data is everything the dashboard renders from one scan.
type Data struct {
	Snapshot *model.Snapshot
	Stats    pipeline.ScanStats
	Costs    pipeline.TokenTypeCosts
	Hourly   []pipeline.HourlyActivity
}

// Loader runs a scan. force bypasses the query cache; progress may be nil.
type Loader func(force bool, progress pipeline.ProgressFunc) (*Data, error)

// Options configures the dashboard.
type Options struct {
	Load      Loader
	ClaudeDir string
	// Window describes the active time filter, e.g. "Last 30d".
	Window string
	// NeedSetup shows the first-run form after the initial load.
	NeedSetup bool
	Config    config.Config
	// SaveConfig persists the setup form; nil uses config.Save.
	SaveConfig func(config.Config) error
}

// ProgressMsg reports file parsing progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// DataLoadedMsg carries the result of a load or refresh.
type DataLoadedMsg struct {
	Data *Data
	Err  error
}

// Tab indices.
const (
	tabOverview = iota
	tabSessions
	tabPrompts
	tabBreakdown
	tabTips
)

const (
	minTerminalWidth = 60
	maxContentWidth  = 160
	// chromeHeight is the tab bar, its spacer, and the status bar.
	chromeHeight = 4
)

// App is the root Bubble Tea model.
type App struct {
	opts Options

	data    *Data
	loaded  bool
	loadErr error

	width     int
	height    int
	activeTab int
	showHelp  bool
	scroll    int

	sessState   sessionsState
	promptState listState

	setupForm *huh.Form
	setupVals setupValues
	needSetup bool
	setupErr  error

	spinner     spinner.Model
	bar         progress.Model
	progress    int
	progressMax int
	refreshing  bool
	loadSub     chan tea.Msg
}

// NewApp creates the dashboard model.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	if opts.SaveConfig == nil {
		opts.SaveConfig = config.Save
	}
	if opts.Window == "" {
		opts.Window = "All time"
	}

	return App{
		opts:      opts,
		needSetup: opts.NeedSetup,
		setupVals: newSetupValues(opts.Config),
		spinner:   sp,
		bar:       components.NewParseProgress(40),
		loadSub:   make(chan tea.Msg, 16),
	}
}

// Init starts the initial load.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.opts.Load, false, a.loadSub),
		a.spinner.Tick,
	)
}

// Update handles messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		return a.updateMouse(msg)

	case tea.KeyMsg:
		return a.updateKey(msg)

	case ProgressMsg:
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case DataLoadedMsg:
		a.refreshing = false
		a.loaded = true
		a.loadErr = msg.Err
		if msg.Err == nil {
			a.data = msg.Data
			a.sessState.clamp(len(a.visibleSessions()))
			a.promptState.clamp(len(a.data.Snapshot.TopPrompts))
		}
		if a.needSetup && a.setupForm == nil {
			a.setupForm = newSetupForm(a.sessionFileCount(), a.opts.ClaudeDir, &a.setupVals)
			if a.width > 0 {
				a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
			}
			return a, a.setupForm.Init()
		}
		return a, nil

	case spinner.TickMsg:
		if !a.loaded || a.refreshing {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if !a.loaded {
		if key == "q" {
			return a, tea.Quit
		}
		return a, nil
	}
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.activeTab == tabSessions && a.sessState.searching {
		return a.updateSessionsSearch(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if a.refreshing {
			return a, nil
		}
		a.refreshing = true
		a.progress, a.progressMax = 0, 0
		return a, tea.Batch(loadDataCmd(a.opts.Load, true, a.loadSub), a.spinner.Tick)
	case "left", "shift+tab":
		a.switchTab((a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs))
		return a, nil
	case "right", "tab":
		a.switchTab((a.activeTab + 1) % len(components.Tabs))
		return a, nil
	}

	if a.data != nil {
		switch a.activeTab {
		case tabSessions:
			if handled, cmd := a.updateSessionsKey(key); handled {
				return a, cmd
			}
		case tabPrompts:
			if a.promptState.move(key, len(a.data.Snapshot.TopPrompts), a.pageSize()) {
				return a, nil
			}
		default:
			if a.updateScroll(key) {
				return a, nil
			}
		}
	}

	if len(key) == 1 {
		if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
			a.switchTab(idx)
		}
	}
	return a, nil
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !a.loaded || a.showHelp || a.setupForm != nil || a.data == nil {
		return a, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return a.updateKey(tea.KeyMsg{Type: tea.KeyUp})
	case tea.MouseButtonWheelDown:
		return a.updateKey(tea.KeyMsg{Type: tea.KeyDown})
	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := components.TabAtX(msg.X - a.leftMargin()); tab >= 0 {
				a.switchTab(tab)
			}
		}
	}
	return a, nil
}

func (a *App) switchTab(idx int) {
	if idx != a.activeTab {
		a.activeTab = idx
		a.scroll = 0
	}
}

// updateScroll handles line scrolling on the free-form tabs.
func (a *App) updateScroll(key string) bool {
	switch key {
	case "j", "down":
		a.scroll++
	case "k", "up":
		a.scroll = max(a.scroll-1, 0)
	case "ctrl+d":
		a.scroll += max(a.pageSize()/2, 1)
	case "ctrl+u":
		a.scroll = max(a.scroll-max(a.pageSize()/2, 1), 0)
	case "g":
		a.scroll = 0
	default:
		return false
	}
	return true
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		cfg := a.setupVals.apply(a.opts.Config)
		a.setupErr = a.opts.SaveConfig(cfg)
		a.opts.Config = cfg
		theme.SetActive(cfg.Appearance.Theme)
		a.bar = components.NewParseProgress(40)
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

func (a App) sessionFileCount() int {
	if a.data == nil {
		return 0
	}
	return a.data.Stats.Files
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) leftMargin() int {
	return (a.width - a.contentWidth()) / 2
}

// pageSize is the number of content rows visible under the chrome.
func (a App) pageSize() int {
	return max(a.height-chromeHeight, 5)
}

// View renders the current screen.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return fmt.Sprintf("\n  Terminal too narrow (%d cols, need %d).\n", a.width, minTerminalWidth)
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewLoading() string {
	t := theme.Active

	title := lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Render("◈ compte")
	subtitle := lipgloss.NewStyle().Foreground(t.TextMuted).Render(" · Claude Code usage")

	var b strings.Builder
	b.WriteString(title + subtitle + "\n\n")
	b.WriteString(a.spinner.View())
	if a.progressMax > 0 {
		b.WriteString(" Parsing sessions\n\n")
		b.WriteString(components.ParseProgress(a.bar, a.progress, a.progressMax))
	} else {
		b.WriteString(" Discovering sessions...")
	}

	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(1, 3).
		Render(b.String())
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card)
}

func (a App) viewHelp() string {
	t := theme.Active
	section := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	key := lipgloss.NewStyle().Foreground(t.Highlight).Bold(true)
	desc := lipgloss.NewStyle().Foreground(t.TextMuted)

	bindings := []struct {
		group string
		keys  [][2]string
	}{
		{"Navigation", [][2]string{
			{"o s p b t", "Jump to tab"},
			{"← → tab", "Previous / next tab"},
			{"j k", "Move / scroll"},
			{"^d ^u", "Half-page scroll"},
			{"g G", "Top / bottom"},
		}},
		{"Actions", [][2]string{
			{"/", "Search sessions"},
			{"enter", "Session details"},
			{"esc", "Back / clear search"},
			{"r", "Rescan, ignoring the cache"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(section.Render("◈ Keyboard shortcuts"))
	b.WriteString("\n")
	for _, g := range bindings {
		b.WriteString("\n" + section.Render(g.group) + "\n")
		for _, k := range g.keys {
			fmt.Fprintf(&b, "  %s  %s\n", key.Render(fmt.Sprintf("%-10s", k[0])), desc.Render(k[1]))
		}
	}
	b.WriteString("\n" + lipgloss.NewStyle().Foreground(t.TextDim).Render("Press any key to close"))

	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(1, 3).
		Render(b.String())
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card)
}

func (a App) viewMain() string {
	cw := a.contentWidth()
	h := a.pageSize()

	var content string
	switch {
	case a.loadErr != nil && a.data == nil:
		content = components.ContentCard("Error",
			lipgloss.NewStyle().Foreground(theme.Active.Bad).Render(a.loadErr.Error()), cw)
	case a.data == nil || a.data.Snapshot.Totals.TotalSessions == 0:
		content = components.ContentCard("No data",
			fmt.Sprintf("No Claude Code sessions found in %s.", a.opts.ClaudeDir), cw)
	default:
		switch a.activeTab {
		case tabOverview:
			content = scrollLines(a.renderOverviewTab(cw), a.scroll, h)
		case tabSessions:
			content = a.renderSessionsTab(cw, h)
		case tabPrompts:
			content = a.renderPromptsTab(cw, h)
		case tabBreakdown:
			content = scrollLines(a.renderBreakdownTab(cw), a.scroll, h)
		case tabTips:
			content = scrollLines(a.renderTipsTab(cw), a.scroll, h)
		}
	}

	var b strings.Builder
	b.WriteString(components.RenderTabBar(a.activeTab, cw))
	b.WriteString("\n\n")
	b.WriteString(padHeight(truncateHeight(content, h), h))
	b.WriteString("\n")
	b.WriteString(components.RenderStatusBar(cw, a.statusHints(), a.statusInfo()))

	out := b.String()
	if margin := a.leftMargin(); margin > 0 {
		pad := strings.Repeat(" ", margin)
		out = pad + strings.ReplaceAll(out, "\n", "\n"+pad)
	}
	return out
}

func (a App) statusHints() string {
	if a.activeTab == tabSessions && a.sessState.searching {
		return "[enter]apply  [esc]cancel"
	}
	return "[?]help  [r]efresh  [q]uit"
}

func (a App) statusInfo() string {
	var parts []string
	if a.refreshing {
		parts = append(parts, a.spinner.View()+" rescanning")
	}
	if a.loadErr != nil && a.data != nil {
		parts = append(parts, "refresh failed: "+a.loadErr.Error())
	}
	if a.setupErr != nil {
		parts = append(parts, "config not saved")
	}
	if a.data != nil {
		st := a.data.Stats
		parts = append(parts, fmt.Sprintf("%s · %s files · %s",
			a.opts.Window, cli.FormatNumber(int64(st.Files)), cli.FormatElapsed(st.Duration)))
	}
	return strings.Join(parts, "  ")
}

// loadDataCmd runs the loader in a goroutine, streaming ProgressMsg updates
// and a final DataLoadedMsg through sub.
func loadDataCmd(load Loader, force bool, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			// Progress is best-effort; a full channel drops the update.
			progressFn := func(current, total int) {
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}
			data, err := load(force, progressFn)
			sub <- DataLoadedMsg{Data: data, Err: err}
		}()
		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// scrollLines drops the first offset lines, clamped so the last page stays full.
func scrollLines(s string, offset, h int) string {
	lines := strings.Split(s, "\n")
	offset = max(0, min(offset, len(lines)-h))
	return strings.Join(lines[offset:], "\n")
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Count(s, "\n") + 1
	if lines >= h {
		return s
	}
	return s + strings.Repeat("\n", h-lines)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// dataAge formats how long ago t was, for detail panes.
func dataAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return cli.FormatElapsed(time.Since(t)) + " ago"
}
