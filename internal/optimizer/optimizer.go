// Package optimizer derives usage advice from an analytics snapshot.
package optimizer

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/theirongolddev/compte/internal/model"
)

// Rule thresholds.
const (
	lowCacheHitRate   = 0.5
	greatCacheHitRate = 0.8
	minCacheSessions  = 3

	shortSessionQueries = 3
	shortSessionShare   = 0.5
	minShortSessions    = 5

	highToolDensity     = 3.0
	minToolDensityTurns = 10

	heavyThinkingShare = 0.3
	opusHeavyShare     = 0.5
	projectFocusShare  = 0.7
	highInputRatio     = 20.0

	spikeWindow = 7
	spikeFactor = 3.0
)

// rule inspects a snapshot and returns a tip when it applies.
type rule func(s *model.Snapshot) (model.Tip, bool)

var rules = []rule{
	cacheReuse,
	shortSessions,
	toolDensity,
	heavyThinking,
	opusHeavy,
	projectConcentration,
	inputRatio,
	usageSpike,
}

// Generate evaluates every rule in a fixed order. It never returns nil.
func Generate(s *model.Snapshot) []model.Tip {
	tips := []model.Tip{}
	if s == nil || s.Totals.TotalSessions == 0 {
		return tips
	}
	for _, r := range rules {
		if tip, ok := r(s); ok {
			tips = append(tips, tip)
		}
	}
	return tips
}

func cacheReuse(s *model.Snapshot) (model.Tip, bool) {
	t := s.Totals
	if t.TotalSessions <= minCacheSessions {
		return model.Tip{}, false
	}
	pct := t.CacheHitRate * 100
	switch {
	case t.CacheHitRate < lowCacheHitRate:
		return model.Tip{
			ID:    "low-cache-hit",
			Icon:  "cache",
			Title: "Low cache hit rate",
			Description: fmt.Sprintf("Your cache hit rate is %.0f%%. "+
				"Try keeping sessions open longer instead of starting new ones frequently. "+
				"Claude Code caches your conversation context, so reusing a session means less re-reading.", pct),
			Impact: model.ImpactHigh,
		}, true
	case t.CacheHitRate >= greatCacheHitRate:
		return model.Tip{
			ID:    "great-cache",
			Icon:  "check",
			Title: "Great cache reuse",
			Description: fmt.Sprintf("Your cache hit rate is %.0f%%. "+
				"You're efficiently reusing conversation context. Keep it up!", pct),
			Impact: model.ImpactPositive,
		}, true
	}
	return model.Tip{}, false
}

func shortSessions(s *model.Snapshot) (model.Tip, bool) {
	n := len(s.Sessions)
	short := lo.CountBy(s.Sessions, func(x model.Session) bool { return x.QueryCount <= shortSessionQueries })
	if n <= minShortSessions || float64(short) <= float64(n)*shortSessionShare {
		return model.Tip{}, false
	}
	return model.Tip{
		ID:    "many-short-sessions",
		Icon:  "session",
		Title: "Many short sessions",
		Description: fmt.Sprintf("%d of your %d sessions have 3 or fewer turns. "+
			"Each new session requires Claude to re-read your project context. "+
			"Try staying in one session for related tasks.", short, n),
		Impact: model.ImpactMedium,
	}, true
}

func toolDensity(s *model.Snapshot) (model.Tip, bool) {
	if len(s.Sessions) == 0 || s.Totals.TotalQueries <= minToolDensityTurns {
		return model.Tip{}, false
	}
	avg := lo.SumBy(s.Sessions, func(x model.Session) float64 { return x.ToolDensity }) / float64(len(s.Sessions))
	if avg <= highToolDensity {
		return model.Tip{}, false
	}
	return model.Tip{
		ID:    "high-tool-density",
		Icon:  "tool",
		Title: "High tool usage per turn",
		Description: fmt.Sprintf("Claude averages %.1f tool calls per response. "+
			"Providing more context upfront (paste relevant code, describe file locations) "+
			"can help Claude work with fewer tool calls.", avg),
		Impact: model.ImpactMedium,
	}, true
}

func heavyThinking(s *model.Snapshot) (model.Tip, bool) {
	t := s.Totals
	if t.TotalThinkingTurns == 0 || t.TotalQueries == 0 {
		return model.Tip{}, false
	}
	ratio := float64(t.TotalThinkingTurns) / float64(t.TotalQueries)
	if ratio <= heavyThinkingShare {
		return model.Tip{}, false
	}
	return model.Tip{
		ID:    "heavy-thinking",
		Icon:  "think",
		Title: "Extended thinking is active often",
		Description: fmt.Sprintf("%.0f%% of responses use extended thinking. "+
			"For simpler tasks (renaming, small edits), try using /fast mode to skip "+
			"extended thinking and get faster responses.", ratio*100),
		Impact: model.ImpactLow,
	}, true
}

func opusHeavy(s *model.Snapshot) (model.Tip, bool) {
	total := s.Totals.TotalTokens
	if total <= 0 {
		return model.Tip{}, false
	}
	opus := lo.SumBy(s.ModelBreakdown, func(m model.ModelUsage) int64 {
		if strings.Contains(strings.ToLower(m.Model), "opus") {
			return m.TotalTokens
		}
		return 0
	})
	if float64(opus) <= float64(total)*opusHeavyShare {
		return model.Tip{}, false
	}
	return model.Tip{
		ID:    "opus-heavy",
		Icon:  "model",
		Title: "Heavy Opus usage",
		Description: fmt.Sprintf("%.0f%% of your tokens go to Opus models. "+
			"Sonnet handles most coding tasks well and uses fewer tokens per turn. "+
			"Consider reserving Opus for complex architecture decisions.", float64(opus)/float64(total)*100),
		Impact: model.ImpactMedium,
	}, true
}

func projectConcentration(s *model.Snapshot) (model.Tip, bool) {
	total := s.Totals.TotalTokens
	if len(s.Projects) <= 1 || total <= 0 {
		return model.Tip{}, false
	}
	top := s.Projects[0]
	ratio := float64(top.TotalTokens) / float64(total)
	if ratio <= projectFocusShare {
		return model.Tip{}, false
	}
	name := top.ProjectName
	if name == "" {
		name = top.Project
	}
	return model.Tip{
		ID:    "project-concentration",
		Icon:  "project",
		Title: "Concentrated on one project",
		Description: fmt.Sprintf("%.0f%% of your tokens go to %q. "+
			"This is typical for focused work; just be aware this project drives most of your usage.", ratio*100, name),
		Impact: model.ImpactInfo,
	}, true
}

func inputRatio(s *model.Snapshot) (model.Tip, bool) {
	t := s.Totals
	if t.TotalOutput <= 0 || t.TotalInput <= 0 {
		return model.Tip{}, false
	}
	ratio := float64(t.TotalInput+t.TotalCacheCreation+t.TotalCacheRead) / float64(t.TotalOutput)
	if ratio <= highInputRatio {
		return model.Tip{}, false
	}
	return model.Tip{
		ID:    "high-input-ratio",
		Icon:  "input",
		Title: "Very high input-to-output ratio",
		Description: fmt.Sprintf("Claude is reading %.0fx more tokens than it outputs. "+
			"This often means large codebases being re-scanned. Try using /compact to reduce "+
			"context size, or use more specific file references in your prompts.", ratio),
		Impact: model.ImpactMedium,
	}, true
}

// usageSpike compares the busiest of the last seven dated days with their mean.
func usageSpike(s *model.Snapshot) (model.Tip, bool) {
	days := lo.Filter(s.DailyUsage, func(d model.DailyUsage, _ int) bool { return d.Date != model.UnknownDate })
	if len(days) <= spikeWindow {
		return model.Tip{}, false
	}
	recent := days[len(days)-spikeWindow:]
	avg := float64(lo.SumBy(recent, func(d model.DailyUsage) int64 { return d.TotalTokens })) / spikeWindow
	peak := lo.MaxBy(recent, func(a, b model.DailyUsage) bool { return a.TotalTokens > b.TotalTokens })
	if avg <= 0 || float64(peak.TotalTokens) <= avg*spikeFactor {
		return model.Tip{}, false
	}
	return model.Tip{
		ID:    "usage-spike",
		Icon:  "spike",
		Title: "Usage spike detected",
		Description: fmt.Sprintf("%s used %s tokens, %.1fx your 7-day average. "+
			"Heavy days are normal during complex tasks, but if this was unintentional, "+
			"review that day's sessions.", peak.Date, FormatTokens(peak.TotalTokens), float64(peak.TotalTokens)/avg),
		Impact: model.ImpactInfo,
	}, true
}

// FormatTokens renders a token count with an M or K suffix.
func FormatTokens(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1e6)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1e3)
	}
	return fmt.Sprintf("%d", n)
}
