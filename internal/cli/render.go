package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/theirongolddev/compte/internal/tui/theme"
)

// Table is a titled table for CLI output. Columns after the first are right-aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Footer is rendered below a separator, for totals.
	Footer []string
}

func headerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(theme.Active.Accent)
}

func mutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(theme.Active.TextMuted)
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	t := theme.Active
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)

	return box.Render(lipgloss.NewStyle().Bold(true).Foreground(t.Text).Render(title))
}

// RenderTable renders a rounded-border table with headers and rows.
func RenderTable(tb Table) string {
	if len(tb.Rows) == 0 && len(tb.Headers) == 0 {
		return ""
	}
	t := theme.Active

	rows := tb.Rows
	footerAt := -1
	if len(tb.Footer) > 0 {
		footerAt = len(rows)
		rows = append(append([][]string{}, rows...), tb.Footer)
	}

	cell := lipgloss.NewStyle().Padding(0, 1).Foreground(t.Text)
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(t.TextDim)).
		Headers(tb.Headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := cell
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(t.Accent)
			}
			if col > 0 {
				s = s.Align(lipgloss.Right)
			}
			if row == footerAt {
				s = s.Bold(true)
			}
			return s
		})

	var b strings.Builder
	if tb.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle().Render(tb.Title))
		b.WriteString("\n")
	}
	b.WriteString(tbl.Render())
	b.WriteString("\n")
	return b.String()
}

// RenderKeyValues renders aligned "label  value" lines.
func RenderKeyValues(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		if w := lipgloss.Width(p[0]); w > width {
			width = w
		}
	}

	value := lipgloss.NewStyle().Foreground(theme.Active.Text)
	var b strings.Builder
	for _, p := range pairs {
		label := p[0] + strings.Repeat(" ", width-lipgloss.Width(p[0]))
		fmt.Fprintf(&b, "  %s  %s\n", mutedStyle().Render(label), value.Render(p[1]))
	}
	return b.String()
}

// RenderProgress writes a one-line parse progress indicator, meant for stderr.
func RenderProgress(current, total int) string {
	return fmt.Sprintf("\r  Parsing [%d/%d]", current, total)
}

// RenderSparkline generates a unicode block sparkline from a series of values.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := values[0]
	for _, v := range values[1:] {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		peak = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int(v / peak * float64(len(blocks)-1))
		idx = max(0, min(idx, len(blocks)-1))
		b.WriteRune(blocks[idx])
	}

	return b.String()
}

// RenderBar renders a proportional horizontal bar of at most width cells.
func RenderBar(value, maxValue float64, width int) string {
	if maxValue <= 0 || width <= 0 {
		return ""
	}
	n := int(value / maxValue * float64(width))
	n = max(0, min(n, width))
	return lipgloss.NewStyle().Foreground(theme.Active.Tokens).Render(strings.Repeat("█", n))
}
