package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/compte/internal/tui/theme"
)

// Tab is one dashboard tab. KeyPos is the index of the shortcut key in Name.
type Tab struct {
	Name   string
	Key    rune
	KeyPos int
}

// Tabs lists the dashboard tabs in display order.
var Tabs = []Tab{
	{Name: "Overview", Key: 'o', KeyPos: 0},
	{Name: "Sessions", Key: 's', KeyPos: 0},
	{Name: "Prompts", Key: 'p', KeyPos: 0},
	{Name: "Breakdown", Key: 'b', KeyPos: 0},
	{Name: "Tips", Key: 't', KeyPos: 0},
}

const tabGap = "  "

// tabLabel renders a tab name with its shortcut key highlighted.
func tabLabel(tab Tab, active bool) string {
	t := theme.Active
	if active {
		return lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Underline(true).Render(tab.Name)
	}

	name := lipgloss.NewStyle().Foreground(t.TextMuted)
	key := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	if tab.KeyPos < 0 || tab.KeyPos >= len(tab.Name) {
		return name.Render(tab.Name)
	}
	return name.Render(tab.Name[:tab.KeyPos]) +
		key.Render(tab.Name[tab.KeyPos:tab.KeyPos+1]) +
		name.Render(tab.Name[tab.KeyPos+1:])
}

// RenderTabBar renders the tab bar with the given active index.
func RenderTabBar(activeIdx, width int) string {
	parts := make([]string, len(Tabs))
	for i, tab := range Tabs {
		parts[i] = tabLabel(tab, i == activeIdx)
	}
	bar := " " + strings.Join(parts, tabGap)
	return lipgloss.NewStyle().MaxWidth(width).Render(bar)
}

// TabAtX returns the tab under column x of the tab bar, or -1.
func TabAtX(x int) int {
	pos := 1
	for i, tab := range Tabs {
		w := len(tab.Name)
		if x >= pos && x < pos+w {
			return i
		}
		pos += w + len(tabGap)
	}
	return -1
}

// TabIdxByKey returns the tab index for a shortcut key, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
