package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/compte/internal/tui/theme"
)

func TestLayoutRow(t *testing.T) {
	assert.Equal(t, []int{34, 33, 33}, LayoutRow(100, 3))
	assert.Equal(t, []int{5, 5}, LayoutRow(10, 2))
	assert.Nil(t, LayoutRow(10, 0))
}

func TestCardRow_MatchesTallestCard(t *testing.T) {
	theme.SetActive("flexoki-dark")

	short := ContentCard("Short", "Content", 22)
	tall := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)
	require.Less(t, lipgloss.Height(short), lipgloss.Height(tall))

	joined := CardRow([]string{tall, short})
	assert.Equal(t, lipgloss.Height(tall), lipgloss.Height(joined))

	// Every line spans both cards, including the padding under the short one.
	for i, line := range strings.Split(joined, "\n") {
		assert.Equal(t, 44, lipgloss.Width(line), "line %d", i)
	}
}

func TestMetricCardRow_Width(t *testing.T) {
	theme.SetActive("flexoki-dark")

	row := MetricCardRow([]Metric{
		{Label: "Tokens", Value: "1.2M"},
		{Label: "Cost", Value: "$3.40", Detail: "est", Color: theme.Active.Cost},
		{Label: "Sessions", Value: "12"},
	}, 90)

	assert.Equal(t, 90, lipgloss.Width(row))
	assert.Contains(t, row, "1.2M")
	assert.Contains(t, row, "est")
	assert.Empty(t, MetricCardRow(nil, 90))
}
