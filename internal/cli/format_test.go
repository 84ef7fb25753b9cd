package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTokens(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1234, "1.2K"},
		{1_234_567, "1.2M"},
		{1_234_567_890, "1.2B"},
		{-2500, "-2.5K"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTokens(tt.in))
	}
}

func TestFormatCost(t *testing.T) {
	assert.Equal(t, "$0.00", FormatCost(0))
	assert.Equal(t, "<$0.01", FormatCost(0.004))
	assert.Equal(t, "$3.25", FormatCost(3.25))
	assert.Equal(t, "$12.3", FormatCost(12.34))
	assert.Equal(t, "$123", FormatCost(123.4))
	assert.Equal(t, "$1,235", FormatCost(1234.6))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "12", FormatNumber(12))
	assert.Equal(t, "1,234,567", FormatNumber(1234567))
	assert.Equal(t, "-1,000", FormatNumber(-1000))
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "<1ms", FormatElapsed(10*time.Microsecond))
	assert.Equal(t, "250ms", FormatElapsed(250*time.Millisecond))
	assert.Equal(t, "1.5s", FormatElapsed(1500*time.Millisecond))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "héll…", Truncate("héllo world", 5))
	assert.Equal(t, "a b", Truncate("a\n  b", 10))
	assert.Equal(t, "…", Truncate("abc", 1))
}

func TestShortModel(t *testing.T) {
	assert.Equal(t, "sonnet-4-5", ShortModel("claude-sonnet-4-5-20250929"))
	assert.Equal(t, "opus-4-6", ShortModel("claude-opus-4-6"))
	assert.Equal(t, "unknown", ShortModel("unknown"))
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Title:   "Models",
		Headers: []string{"Model", "Tokens"},
		Rows:    [][]string{{"opus", "1.2M"}},
		Footer:  []string{"Total", "1.2M"},
	})
	assert.Contains(t, out, "Models")
	assert.Contains(t, out, "opus")
	assert.Contains(t, out, "Total")
	assert.Empty(t, RenderTable(Table{}))
}

func TestRenderSparkline(t *testing.T) {
	assert.Equal(t, "▁█", RenderSparkline([]float64{0, 10}))
	assert.Equal(t, "", RenderSparkline(nil))
	assert.Equal(t, 3, len([]rune(RenderSparkline([]float64{1, 2, 3}))))
	assert.True(t, strings.HasPrefix(RenderProgress(1, 3), "\r"))
}
