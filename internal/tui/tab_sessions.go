package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/compte/internal/cli"
	"github.com/theirongolddev/compte/internal/model"
	"github.com/theirongolddev/compte/internal/tui/components"
	"github.com/theirongolddev/compte/internal/tui/theme"
)

// listState is a cursor over a scrolling list.
type listState struct {
	cursor int
	offset int
}

// move handles list navigation keys and reports whether key was one.
func (l *listState) move(key string, n, page int) bool {
	switch key {
	case "j", "down":
		l.cursor++
	case "k", "up":
		l.cursor--
	case "ctrl+d":
		l.cursor += max(page/2, 1)
	case "ctrl+u":
		l.cursor -= max(page/2, 1)
	case "g", "home":
		l.cursor = 0
	case "G", "end":
		l.cursor = n - 1
	default:
		return false
	}
	l.clamp(n)
	return true
}

func (l *listState) clamp(n int) {
	l.cursor = max(0, min(l.cursor, n-1))
}

// window returns the [start, end) range of a list of n rows showing visible rows
// around the cursor, and remembers the scroll offset.
func (l *listState) window(n, visible int) (int, int) {
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+visible {
		l.offset = l.cursor - visible + 1
	}
	l.offset = max(0, min(l.offset, n-visible))
	return l.offset, min(l.offset+visible, n)
}

// sessionsState holds the sessions tab state.
type sessionsState struct {
	listState
	detail      bool
	searching   bool
	searchInput textinput.Model
	searchQuery string
}

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "project, model, prompt or session id"
	ti.CharLimit = 120
	ti.Width = 40
	return ti
}

// filterSessions returns sessions whose project, model, prompt or id contain query.
func filterSessions(sessions []model.Session, query string) []model.Session {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return sessions
	}
	var out []model.Session
	for _, s := range sessions {
		for _, field := range []string{s.ProjectName, s.Model, s.FirstPrompt, s.SessionID} {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

func (a App) visibleSessions() []model.Session {
	if a.data == nil {
		return nil
	}
	return filterSessions(a.data.Snapshot.Sessions, a.sessState.searchQuery)
}

// updateSessionsKey handles sessions-tab keys and reports whether key was consumed.
func (a *App) updateSessionsKey(key string) (bool, tea.Cmd) {
	switch key {
	case "/":
		a.sessState.searching = true
		a.sessState.searchInput = newSearchInput()
		a.sessState.searchInput.SetValue(a.sessState.searchQuery)
		return true, a.sessState.searchInput.Focus()
	case "enter":
		a.sessState.detail = !a.sessState.detail
		return true, nil
	case "esc":
		switch {
		case a.sessState.detail:
			a.sessState.detail = false
		case a.sessState.searchQuery != "":
			a.sessState.searchQuery = ""
			a.sessState.listState = listState{}
		}
		return true, nil
	}
	return a.sessState.move(key, len(a.visibleSessions()), a.pageSize()), nil
}

// updateSessionsSearch handles key events while the search box is open.
func (a App) updateSessionsSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.sessState.searchQuery = strings.TrimSpace(a.sessState.searchInput.Value())
		a.sessState.searching = false
		a.sessState.listState = listState{}
		return a, nil
	case "esc":
		a.sessState.searching = false
		return a, nil
	}

	var cmd tea.Cmd
	a.sessState.searchInput, cmd = a.sessState.searchInput.Update(msg)
	return a, cmd
}

func (a App) renderSessionsTab(cw, h int) string {
	t := theme.Active
	sessions := a.visibleSessions()
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)

	var top string
	switch {
	case a.sessState.searching:
		top = a.sessState.searchInput.View() + "\n"
	case a.sessState.searchQuery != "":
		top = muted.Render(fmt.Sprintf("Filter %q: %d of %d sessions (esc clears)",
			a.sessState.searchQuery, len(sessions), len(a.data.Snapshot.Sessions))) + "\n"
	}
	listH := h - lipgloss.Height(top)
	if top == "" {
		listH = h
	}

	if len(sessions) == 0 {
		return top + components.ContentCard("Sessions", muted.Render("No matching sessions"), cw)
	}

	st := a.sessState.listState
	sel := sessions[min(st.cursor, len(sessions)-1)]
	if a.sessState.detail {
		return top + components.ContentCard("Session "+shortID(sel.SessionID), sessionDetail(sel, components.CardInnerWidth(cw)), cw)
	}

	leftW := max(cw*3/5, 40)
	rightW := cw - leftW
	inner := components.CardInnerWidth(leftW)

	visible := max(listH-4, 3)
	start, end := st.window(len(sessions), visible)

	row := lipgloss.NewStyle().Foreground(t.Text)
	selected := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	header := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)

	promptW := max(inner-12-16-9-2, 8)
	var body strings.Builder
	body.WriteString(header.Render(fmt.Sprintf("%-11s %-16s %8s  %s", "Started", "Project", "Tokens", "First prompt")))
	for i := start; i < end; i++ {
		s := sessions[i]
		started := "-"
		if !s.Timestamp.IsZero() {
			started = s.Timestamp.Local().Format("01-02 15:04")
		}
		line := fmt.Sprintf("%-11s %-16s %8s  %s", started,
			cli.Truncate(s.ProjectName, 16), cli.FormatTokens(s.TotalTokens), cli.Truncate(s.FirstPrompt, promptW))
		body.WriteString("\n")
		if i == st.cursor {
			body.WriteString(selected.Render(line))
		} else {
			body.WriteString(row.Render(line))
		}
	}

	title := fmt.Sprintf("Sessions %d-%d of %d", start+1, end, len(sessions))
	left := components.ContentCard(title, body.String(), leftW)
	right := components.ContentCard("Session "+shortID(sel.SessionID), sessionDetail(sel, components.CardInnerWidth(rightW)), rightW)
	return top + components.CardRow([]string{left, right})
}

// sessionDetail renders one session's fields as label/value lines.
func sessionDetail(s model.Session, width int) string {
	t := theme.Active
	label := lipgloss.NewStyle().Foreground(t.TextMuted).Width(14)
	value := lipgloss.NewStyle().Foreground(t.Text)

	started := "-"
	if !s.Timestamp.IsZero() {
		started = s.Timestamp.Local().Format("2006-01-02 15:04") + " (" + dataAge(s.Timestamp) + ")"
	}

	pairs := [][2]string{
		{"Project", s.ProjectName},
		{"Session", s.SessionID},
		{"Started", started},
		{"Model", s.Model},
		{"Queries", cli.FormatNumber(int64(s.QueryCount))},
		{"Input", cli.FormatTokens(s.InputTokens)},
		{"Output", cli.FormatTokens(s.OutputTokens)},
		{"Cache write", cli.FormatTokens(s.CacheCreationTokens)},
		{"Cache read", cli.FormatTokens(s.CacheReadTokens)},
		{"Total", cli.FormatTokens(s.TotalTokens)},
		{"Cost", cli.FormatCost(s.Cost)},
		{"Thinking", cli.FormatNumber(int64(s.ThinkingTurns)) + " turns"},
		{"Tool calls", fmt.Sprintf("%d (%.1f/query)", s.TotalToolCalls, s.ToolDensity)},
	}

	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(label.Render(p[0]) + value.Render(cli.Truncate(p[1], max(width-14, 8))) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Width(width).Render(s.FirstPrompt))
	return b.String()
}
