package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/compte/internal/cli"
	"github.com/theirongolddev/compte/internal/tui/components"
	"github.com/theirongolddev/compte/internal/tui/theme"
)

func (a App) renderBreakdownTab(cw int) string {
	t := theme.Active
	snap := a.data.Snapshot
	inner := components.CardInnerWidth(cw)

	var b strings.Builder

	modelRows := make([][]string, 0, len(snap.ModelBreakdown))
	for _, m := range snap.ModelBreakdown {
		modelRows = append(modelRows, []string{
			cli.ShortModel(m.Model),
			cli.FormatNumber(int64(m.QueryCount)),
			cli.FormatTokens(m.InputTokens),
			cli.FormatTokens(m.OutputTokens),
			cli.FormatTokens(m.CacheReadTokens),
			cli.FormatCost(m.Cost),
		})
	}
	b.WriteString(components.ContentCard("Models",
		columns([]string{"Model", "Queries", "Input", "Output", "Cache read", "Cost"}, modelRows, inner), cw))
	b.WriteString("\n")

	projRows := make([][]string, 0, len(snap.Projects))
	for _, p := range snap.Projects {
		projRows = append(projRows, []string{
			p.ProjectName,
			cli.FormatNumber(int64(p.SessionCount)),
			cli.FormatNumber(int64(p.QueryCount)),
			cli.FormatTokens(p.TotalTokens),
			cli.FormatCost(p.Cost),
		})
	}
	b.WriteString(components.ContentCard("Projects",
		columns([]string{"Project", "Sessions", "Queries", "Tokens", "Cost"}, projRows, inner), cw))
	b.WriteString("\n")

	widths := components.LayoutRow(cw, 2)
	tools := snap.ToolStats
	if len(tools) > 12 {
		tools = tools[:12]
	}
	toolBars := make([]components.HBar, 0, len(tools))
	for _, tu := range tools {
		toolBars = append(toolBars, components.HBar{
			Label: tu.Name,
			Value: float64(tu.Count),
			Text:  cli.FormatNumber(int64(tu.Count)),
		})
	}
	toolBody := components.HBarChart(toolBars, t.Tokens, components.CardInnerWidth(widths[0]))
	if toolBody == "" {
		toolBody = lipgloss.NewStyle().Foreground(t.TextMuted).Render("No tool calls")
	}

	c := a.data.Costs
	costBars := []components.HBar{
		{Label: "Output", Value: c.OutputCost, Text: cli.FormatCost(c.OutputCost)},
		{Label: "Cache write", Value: c.CacheWriteCost, Text: cli.FormatCost(c.CacheWriteCost)},
		{Label: "Input", Value: c.InputCost, Text: cli.FormatCost(c.InputCost)},
		{Label: "Cache read", Value: c.CacheReadCost, Text: cli.FormatCost(c.CacheReadCost)},
	}
	costBody := components.HBarChart(costBars, t.Cost, components.CardInnerWidth(widths[1])) +
		"\n\n" + lipgloss.NewStyle().Foreground(t.TextMuted).Render(
		fmt.Sprintf("Cache saved %s", cli.FormatCost(c.CacheSavings)))

	b.WriteString(components.CardRow([]string{
		components.ContentCard("Tools", toolBody, widths[0]),
		components.ContentCard("Cost by token type", costBody, widths[1]),
	}))
	return b.String()
}

// columns lays out a plain-text table: the first column left-aligned and
// truncated to fit, the rest right-aligned.
func columns(headers []string, rows [][]string, width int) string {
	t := theme.Active
	if len(rows) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Render("Nothing recorded")
	}

	n := len(headers)
	w := make([]int, n)
	for i, h := range headers {
		w[i] = lipgloss.Width(h)
	}
	for _, r := range rows {
		for i := 1; i < n && i < len(r); i++ {
			w[i] = max(w[i], lipgloss.Width(r[i]))
		}
	}
	fixed := 0
	for i := 1; i < n; i++ {
		fixed += w[i] + 2
	}
	w[0] = max(width-fixed, 8)

	format := func(cells []string) string {
		var b strings.Builder
		for i := 0; i < n; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if i == 0 {
				cell = cli.Truncate(cell, w[0])
				b.WriteString(cell + strings.Repeat(" ", max(w[0]-lipgloss.Width(cell), 0)))
				continue
			}
			b.WriteString("  " + strings.Repeat(" ", max(w[i]-lipgloss.Width(cell), 0)) + cell)
		}
		return b.String()
	}

	header := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	row := lipgloss.NewStyle().Foreground(t.Text)

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, header.Render(format(headers)))
	for _, r := range rows {
		lines = append(lines, row.Render(format(r)))
	}
	return strings.Join(lines, "\n")
}
