package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/compte/internal/cli"
	"github.com/theirongolddev/compte/internal/tui/components"
	"github.com/theirongolddev/compte/internal/tui/theme"
)

func (a App) renderPromptsTab(cw, h int) string {
	t := theme.Active
	prompts := a.data.Snapshot.TopPrompts
	if len(prompts) == 0 {
		return components.ContentCard("Top prompts",
			lipgloss.NewStyle().Foreground(t.TextMuted).Render("No prompts recorded"), cw)
	}

	st := a.promptState
	visible := max(h-10, 3)
	start, end := st.window(len(prompts), visible)
	inner := components.CardInnerWidth(cw)

	row := lipgloss.NewStyle().Foreground(t.Text)
	selected := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	header := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)

	promptW := max(inner-4-9-10-7, 10)
	var list strings.Builder
	list.WriteString(header.Render(fmt.Sprintf("%3s %-*s %8s %9s", "#", promptW, "Prompt", "Tokens", "Cost")))
	for i := start; i < end; i++ {
		p := prompts[i]
		line := fmt.Sprintf("%3d %-*s %8s %9s", i+1, promptW, cli.Truncate(p.Prompt, promptW),
			cli.FormatTokens(p.TotalTokens), cli.FormatCost(p.Cost))
		list.WriteString("\n")
		if i == st.cursor {
			list.WriteString(selected.Render(line))
		} else {
			list.WriteString(row.Render(line))
		}
	}

	sel := prompts[min(st.cursor, len(prompts)-1)]
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)
	detail := muted.Render(fmt.Sprintf("%s · %s · session %s · in %s / out %s / cache %s",
		sel.Date, cli.ShortModel(sel.Model), shortID(sel.SessionID),
		cli.FormatTokens(sel.InputTokens), cli.FormatTokens(sel.OutputTokens),
		cli.FormatTokens(sel.CacheReadTokens+sel.CacheCreationTokens))) +
		"\n\n" + lipgloss.NewStyle().Foreground(t.Text).Width(inner).Render(sel.Prompt)

	return components.ContentCard(fmt.Sprintf("Top prompts %d-%d of %d", start+1, end, len(prompts)), list.String(), cw) +
		"\n" + components.ContentCard(fmt.Sprintf("#%d", st.cursor+1), truncateHeight(detail, 6), cw)
}
