package optimizer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/compte/internal/model"
)

func ids(tips []model.Tip) []string {
	out := []string{}
	for _, t := range tips {
		out = append(out, t.ID)
	}
	return out
}

func sessions(n, queries int, density float64) []model.Session {
	out := make([]model.Session, n)
	for i := range out {
		out[i] = model.Session{SessionID: fmt.Sprint(i), QueryCount: queries, ToolDensity: density}
	}
	return out
}

func TestGenerate_EmptySnapshot(t *testing.T) {
	assert.Empty(t, Generate(model.EmptySnapshot()))
	assert.NotNil(t, Generate(nil))
}

func TestGenerate_CacheRules(t *testing.T) {
	tests := []struct {
		name     string
		sessions int
		rate     float64
		want     []string
	}{
		{"low", 4, 0.2, []string{"low-cache-hit"}},
		{"great", 4, 0.8, []string{"great-cache"}},
		{"middling", 4, 0.6, []string{}},
		{"too few sessions", 3, 0.1, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := model.EmptySnapshot()
			s.Sessions = sessions(tt.sessions, 10, 0)
			s.Totals = model.Totals{TotalSessions: tt.sessions, CacheHitRate: tt.rate}
			assert.Equal(t, tt.want, ids(Generate(s)))
		})
	}
}

func TestGenerate_ShortSessions(t *testing.T) {
	s := model.EmptySnapshot()
	s.Sessions = append(sessions(4, 2, 0), sessions(2, 20, 0)...)
	s.Totals = model.Totals{TotalSessions: 6, CacheHitRate: 0.6}

	tips := Generate(s)
	require.Equal(t, []string{"many-short-sessions"}, ids(tips))
	assert.Contains(t, tips[0].Description, "4 of your 6 sessions")
	assert.Equal(t, model.ImpactMedium, tips[0].Impact)
}

func TestGenerate_ToolDensityAndThinking(t *testing.T) {
	s := model.EmptySnapshot()
	s.Sessions = sessions(2, 10, 4.5)
	s.Totals = model.Totals{TotalSessions: 2, TotalQueries: 20, TotalThinkingTurns: 10}

	tips := Generate(s)
	require.Equal(t, []string{"high-tool-density", "heavy-thinking"}, ids(tips))
	assert.Contains(t, tips[0].Description, "4.5 tool calls")
	assert.Contains(t, tips[1].Description, "50%")
}

func TestGenerate_TokenShareRules(t *testing.T) {
	s := model.EmptySnapshot()
	s.Sessions = sessions(1, 10, 0)
	s.ModelBreakdown = []model.ModelUsage{
		{Model: "claude-opus-4-6", TokenCounts: model.TokenCounts{TotalTokens: 900}},
		{Model: "claude-sonnet-4-5", TokenCounts: model.TokenCounts{TotalTokens: 100}},
	}
	s.Projects = []model.ProjectUsage{
		{Project: "-a-projects-web", ProjectName: "web", TokenCounts: model.TokenCounts{TotalTokens: 800}},
		{Project: "-a-projects-cli", ProjectName: "cli", TokenCounts: model.TokenCounts{TotalTokens: 200}},
	}
	s.Totals = model.Totals{
		TotalSessions:  1,
		TotalTokens:    1000,
		TotalInput:     100,
		TotalCacheRead: 850,
		TotalOutput:    40,
	}

	tips := Generate(s)
	require.Equal(t, []string{"opus-heavy", "project-concentration", "high-input-ratio"}, ids(tips))
	assert.Contains(t, tips[0].Description, "90%")
	assert.Contains(t, tips[1].Description, `"web"`)
	assert.Contains(t, tips[2].Description, "24x")
}

func TestGenerate_UsageSpike(t *testing.T) {
	s := model.EmptySnapshot()
	s.Sessions = sessions(1, 10, 0)
	s.Totals = model.Totals{TotalSessions: 1}
	for i := 1; i <= 8; i++ {
		s.DailyUsage = append(s.DailyUsage, model.DailyUsage{
			Date:        fmt.Sprintf("2025-06-%02d", i),
			TokenCounts: model.TokenCounts{TotalTokens: 100},
		})
	}
	s.DailyUsage[7].TotalTokens = 2_000_000

	tips := Generate(s)
	require.Equal(t, []string{"usage-spike"}, ids(tips))
	assert.Contains(t, tips[0].Description, "2025-06-08 used 2.0M tokens")

	// Seven dated days plus an unknown bucket is not enough history.
	s.DailyUsage = append(s.DailyUsage[1:], model.DailyUsage{Date: model.UnknownDate})
	assert.Empty(t, Generate(s))
}

func TestFormatTokens(t *testing.T) {
	assert.Equal(t, "999", FormatTokens(999))
	assert.Equal(t, "1.5K", FormatTokens(1500))
	assert.Equal(t, "2.3M", FormatTokens(2_250_001))
}
