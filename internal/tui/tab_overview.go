package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/compte/internal/cli"
	"github.com/theirongolddev/compte/internal/model"
	"github.com/theirongolddev/compte/internal/tui/components"
	"github.com/theirongolddev/compte/internal/tui/theme"
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	snap := a.data.Snapshot
	tot := snap.Totals

	days := 0
	for _, d := range snap.DailyUsage {
		if d.Date != model.UnknownDate {
			days++
		}
	}
	perDay := ""
	if days > 0 {
		perDay = cli.FormatCost(tot.TotalCost/float64(days)) + "/day"
	}

	var b strings.Builder
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Tokens", Value: cli.FormatTokens(tot.TotalTokens), Detail: cli.FormatTokens(tot.AvgTokensPerQuery) + "/query", Color: t.Tokens},
		{Label: "Sessions", Value: cli.FormatNumber(int64(tot.TotalSessions)), Detail: cli.FormatNumber(int64(tot.TotalQueries)) + " queries"},
		{Label: "Cost", Value: cli.FormatCost(tot.TotalCost), Detail: perDay, Color: t.Cost},
		{Label: "Cache hits", Value: cli.FormatPercent(tot.CacheHitRate), Detail: "saved " + cli.FormatCost(a.data.Costs.CacheSavings)},
	}, cw))
	b.WriteString("\n")

	if len(snap.DailyUsage) > 0 {
		values := make([]float64, 0, len(snap.DailyUsage))
		labels := make([]string, 0, len(snap.DailyUsage))
		for _, d := range snap.DailyUsage {
			if d.Date == model.UnknownDate {
				continue
			}
			values = append(values, float64(d.TotalTokens))
			labels = append(labels, shortDate(d.Date))
		}
		inner := components.CardInnerWidth(cw)
		chart := components.ColumnChart(values, labels, t.Tokens, inner, 8)
		b.WriteString(components.ContentCard("Daily tokens", chart, cw))
		b.WriteString("\n")
	}

	widths := components.LayoutRow(cw, 2)
	b.WriteString(components.CardRow([]string{
		components.ContentCard("Top models", a.topModelsBody(components.CardInnerWidth(widths[0])), widths[0]),
		components.ContentCard("Activity by hour", a.hourlyBody(), widths[1]),
	}))
	return b.String()
}

func (a App) topModelsBody(width int) string {
	models := a.data.Snapshot.ModelBreakdown
	if len(models) > 5 {
		models = models[:5]
	}
	rows := make([]components.HBar, 0, len(models))
	for _, m := range models {
		rows = append(rows, components.HBar{
			Label: cli.ShortModel(m.Model),
			Value: float64(m.TotalTokens),
			Text:  fmt.Sprintf("%s %s", cli.FormatTokens(m.TotalTokens), cli.FormatCost(m.Cost)),
		})
	}
	return components.HBarChart(rows, theme.Active.Accent, width)
}

func (a App) hourlyBody() string {
	t := theme.Active
	hours := a.data.Hourly
	if len(hours) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Render("No timestamps")
	}

	values := make([]float64, len(hours))
	peak := hours[0]
	for i, h := range hours {
		values[i] = float64(h.Tokens)
		if h.Tokens > peak.Tokens {
			peak = h
		}
	}

	muted := lipgloss.NewStyle().Foreground(t.TextDim)
	return components.Sparkline(values, t.Highlight) + "\n" +
		muted.Render("0h          12h        23h") + "\n\n" +
		lipgloss.NewStyle().Foreground(t.TextMuted).Render(
			fmt.Sprintf("Busiest hour %02d:00 (%s tokens)", peak.Hour, cli.FormatTokens(peak.Tokens)))
}

// shortDate turns 2025-06-01 into 06-01.
func shortDate(date string) string {
	if len(date) == len("2006-01-02") {
		return date[5:]
	}
	return date
}
