package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/compte/internal/tui/theme"
)

// NewParseProgress returns a progress bar styled for the loading screen.
func NewParseProgress(width int) progress.Model {
	t := theme.Active
	bar := progress.New(
		progress.WithGradient(string(t.AccentDim), string(t.Accent)),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.Border)
	return bar
}

// ParseProgress renders "bar  current/total" for a parse in progress.
func ParseProgress(bar progress.Model, current, total int) string {
	pct := 0.0
	if total > 0 {
		pct = float64(current) / float64(total)
	}
	pct = max(0, min(pct, 1))

	count := lipgloss.NewStyle().Foreground(theme.Active.TextMuted).
		Render(fmt.Sprintf("%d/%d files", current, total))
	return bar.ViewAs(pct) + "  " + count
}
