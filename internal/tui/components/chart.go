package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/compte/internal/tui/theme"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a one-line unicode sparkline.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}

	peak := 0.0
	for _, v := range values {
		peak = math.Max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int(v / peak * float64(len(sparkBlocks)-1))
		b.WriteRune(sparkBlocks[max(0, min(idx, len(sparkBlocks)-1))])
	}
	return lipgloss.NewStyle().Foreground(color).Render(b.String())
}

// ColumnChart renders vertical bars with a labelled y-axis. Series wider
// than the chart keep only their most recent values.
func ColumnChart(values []float64, labels []string, color lipgloss.Color, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}
	t := theme.Active

	peak := 0.0
	for _, v := range values {
		peak = math.Max(peak, v)
	}
	ceiling := niceCeiling(peak)

	yLabelW := max(len(ChartLabel(ceiling))+1, 4)
	plotW := width - yLabelW - 1

	barW := 2
	if fit := plotW / (barW + 1); len(values) > fit {
		values = values[len(values)-fit:]
		if len(labels) > fit {
			labels = labels[len(labels)-fit:]
		}
	} else if len(values) > 0 {
		barW = min(max((plotW+1)/len(values)-1, 1), 5)
	}

	axis := lipgloss.NewStyle().Foreground(t.TextDim)
	bar := lipgloss.NewStyle().Foreground(color)
	eighths := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	var b strings.Builder
	for row := height; row >= 1; row-- {
		top := ceiling * float64(row) / float64(height)
		bottom := ceiling * float64(row-1) / float64(height)

		label := ""
		if row == height {
			label = ChartLabel(ceiling)
		} else if row == (height+1)/2 {
			label = ChartLabel(ceiling / 2)
		}
		b.WriteString(axis.Render(fmt.Sprintf("%*s│", yLabelW, label)))

		for i, v := range values {
			if i > 0 {
				b.WriteByte(' ')
			}
			switch {
			case v >= top:
				b.WriteString(bar.Render(strings.Repeat("█", barW)))
			case v > bottom:
				idx := int((v - bottom) / (top - bottom) * 8)
				idx = max(1, min(idx, 8))
				b.WriteString(bar.Render(strings.Repeat(string(eighths[idx]), barW)))
			default:
				b.WriteString(strings.Repeat(" ", barW))
			}
		}
		b.WriteByte('\n')
	}

	axisLen := len(values)*(barW+1) - 1
	b.WriteString(axis.Render(fmt.Sprintf("%*s└%s", yLabelW, "0", strings.Repeat("─", axisLen))))

	if len(labels) == len(values) && len(labels) > 0 {
		first, last := labels[0], labels[len(labels)-1]
		gap := axisLen - len(first) - len(last)
		line := first
		if gap > 1 && len(labels) > 1 {
			line += strings.Repeat(" ", gap) + last
		}
		b.WriteByte('\n')
		b.WriteString(strings.Repeat(" ", yLabelW+1))
		b.WriteString(axis.Render(line))
	}
	return b.String()
}

// HBar is one row of a horizontal bar chart.
type HBar struct {
	Label string
	Value float64
	// Text is shown after the bar; empty shows nothing.
	Text string
}

// HBarChart renders labelled horizontal bars scaled to the largest value.
func HBarChart(rows []HBar, color lipgloss.Color, width int) string {
	if len(rows) == 0 {
		return ""
	}
	t := theme.Active

	labelW, textW, peak := 0, 0, 0.0
	for _, r := range rows {
		labelW = max(labelW, lipgloss.Width(r.Label))
		textW = max(textW, lipgloss.Width(r.Text))
		peak = math.Max(peak, r.Value)
	}
	labelW = min(labelW, width/3)
	barMax := max(width-labelW-textW-2, 1)

	label := lipgloss.NewStyle().Foreground(t.TextMuted).Width(labelW).MaxWidth(labelW)
	bar := lipgloss.NewStyle().Foreground(color)
	text := lipgloss.NewStyle().Foreground(t.Text)

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		n := 0
		if peak > 0 {
			n = int(math.Round(r.Value / peak * float64(barMax)))
		}
		if n == 0 && r.Value > 0 {
			n = 1
		}
		lines = append(lines, label.Render(r.Label)+" "+
			bar.Render(strings.Repeat("█", n))+strings.Repeat(" ", barMax-n)+" "+
			text.Render(r.Text))
	}
	return strings.Join(lines, "\n")
}

// niceCeiling rounds v up to 1, 2, or 5 times a power of ten.
func niceCeiling(v float64) float64 {
	if v <= 0 {
		return 1
	}
	base := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if v <= m*base {
			return m * base
		}
	}
	return 10 * base
}

// ChartLabel formats an axis value compactly, e.g. 1.5M or 200k.
func ChartLabel(v float64) string {
	trim := func(f float64, suffix string) string {
		if f == math.Trunc(f) {
			return fmt.Sprintf("%.0f%s", f, suffix)
		}
		return fmt.Sprintf("%.1f%s", f, suffix)
	}
	switch {
	case v >= 1e9:
		return trim(v/1e9, "B")
	case v >= 1e6:
		return trim(v/1e6, "M")
	case v >= 1e3:
		return trim(v/1e3, "k")
	case v >= 1:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
