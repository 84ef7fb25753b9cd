package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/compte/internal/tui/components"
	"github.com/theirongolddev/compte/internal/tui/theme"
)

func (a App) renderTipsTab(cw int) string {
	t := theme.Active
	tips := a.data.Snapshot.Optimizations
	if len(tips) == 0 {
		return components.ContentCard("Tips",
			lipgloss.NewStyle().Foreground(t.TextMuted).Render("Nothing stands out. Your usage looks efficient."), cw)
	}

	inner := components.CardInnerWidth(cw)
	body := lipgloss.NewStyle().Foreground(t.Text).Width(inner)

	cards := make([]string, 0, len(tips))
	for _, tip := range tips {
		badge := lipgloss.NewStyle().Foreground(t.ImpactColor(tip.Impact)).Bold(true).
			Render(strings.ToUpper(tip.Impact))
		cards = append(cards, components.ContentCard(tip.Icon+" "+tip.Title,
			badge+"\n"+body.Render(tip.Description), cw))
	}
	return strings.Join(cards, "\n")
}
