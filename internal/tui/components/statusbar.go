package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/compte/internal/tui/theme"
)

// RenderStatusBar renders the bottom bar: key hints on the left, info on the right.
func RenderStatusBar(width int, hints, info string) string {
	t := theme.Active

	left := " " + hints
	right := info + " "
	pad := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)

	return lipgloss.NewStyle().
		Foreground(t.TextMuted).
		MaxWidth(width).
		Render(left + strings.Repeat(" ", pad) + right)
}
