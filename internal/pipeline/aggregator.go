// Package pipeline orchestrates session scanning, caching, and metric aggregation.
package pipeline

import (
	"math"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/theirongolddev/compte/internal/model"
	"github.com/theirongolddev/compte/internal/source"
)

// Display limits for prompt text.
const (
	SessionPromptLimit = 200
	RollupPromptLimit  = 300
	TopPromptLimit     = 50
)

// FileQueries is the extracted query list of one session file.
type FileQueries struct {
	File    source.DiscoveredFile
	Queries []model.Query
}

// Aggregate folds per-file query lists into the full analytics snapshot.
// history maps session id to a preferred title and may be nil.
// Files with no queries produce no session.
func Aggregate(files []FileQueries, history map[string]string) *model.Snapshot {
	snap := model.EmptySnapshot()

	daily := newBuckets[model.DailyUsage]()
	models := newBuckets[model.ModelUsage]()
	tools := newBuckets[model.ToolUsage]()
	var prompts []model.PromptUsage

	for _, fq := range files {
		if len(fq.Queries) == 0 {
			continue
		}

		s := buildSession(fq, history)
		snap.Sessions = append(snap.Sessions, s)
		prompts = append(prompts, promptRuns(fq.Queries, s)...)

		d := daily.get(s.Date, func() model.DailyUsage { return model.DailyUsage{Date: s.Date} })
		d.TokenCounts.Add(s.TokenCounts)
		d.Sessions++
		d.Queries += s.QueryCount

		for _, q := range fq.Queries {
			m := models.get(q.Model, func() model.ModelUsage { return model.ModelUsage{Model: q.Model} })
			m.TokenCounts.AddQuery(q)
			m.QueryCount++

			for _, name := range q.Tools {
				tu := tools.get(name, func() model.ToolUsage { return model.ToolUsage{Name: name} })
				tu.Count++
			}
		}
	}

	sort.SliceStable(snap.Sessions, func(i, j int) bool {
		return snap.Sessions[i].TotalTokens > snap.Sessions[j].TotalTokens
	})

	snap.DailyUsage = daily.values()
	sort.SliceStable(snap.DailyUsage, func(i, j int) bool {
		return snap.DailyUsage[i].Date < snap.DailyUsage[j].Date
	})

	snap.ModelBreakdown = models.values()
	sort.SliceStable(snap.ModelBreakdown, func(i, j int) bool {
		return snap.ModelBreakdown[i].TotalTokens > snap.ModelBreakdown[j].TotalTokens
	})

	sort.SliceStable(prompts, func(i, j int) bool {
		return prompts[i].TotalTokens > prompts[j].TotalTokens
	})
	if len(prompts) > TopPromptLimit {
		prompts = prompts[:TopPromptLimit]
	}
	if prompts != nil {
		snap.TopPrompts = prompts
	}

	snap.Projects = aggregateProjects(snap.Sessions)

	snap.ToolStats = tools.values()
	sort.SliceStable(snap.ToolStats, func(i, j int) bool {
		return snap.ToolStats[i].Count > snap.ToolStats[j].Count
	})

	snap.Totals = computeTotals(snap.Sessions)
	return snap
}

// buildSession summarises one file's queries.
func buildSession(fq FileQueries, history map[string]string) model.Session {
	qs := fq.Queries
	s := model.Session{
		SessionID:   fq.File.SessionID,
		Project:     fq.File.ProjectDir,
		ProjectName: fq.File.Project,
		QueryCount:  len(qs),
	}

	for _, q := range qs {
		s.TokenCounts.AddQuery(q)
		if q.Thinking {
			s.ThinkingTurns++
		}
		s.TotalToolCalls += len(q.Tools)
	}
	s.TotalTokens = s.InputTokens + s.CacheCreationTokens + s.CacheReadTokens + s.OutputTokens
	s.ToolDensity = float64(s.TotalToolCalls) / float64(len(qs))

	s.Timestamp = firstTimestamp(qs)
	s.Date = model.UnknownDate
	if !s.Timestamp.IsZero() {
		s.Date = s.Timestamp.Format("2006-01-02")
	}

	s.Model = primaryModel(qs)
	s.FirstPrompt = truncateRunes(firstPrompt(fq.File.SessionID, qs, history), SessionPromptLimit)
	return s
}

// firstTimestamp prefers the first known response time, then the first known prompt time.
func firstTimestamp(qs []model.Query) time.Time {
	for _, q := range qs {
		if !q.AssistantTimestamp.IsZero() {
			return q.AssistantTimestamp
		}
	}
	for _, q := range qs {
		if !q.UserTimestamp.IsZero() {
			return q.UserTimestamp
		}
	}
	return time.Time{}
}

// primaryModel returns the most frequent model. Ties go to the model seen first.
func primaryModel(qs []model.Query) string {
	counts := make(map[string]int)
	var order []string
	for _, q := range qs {
		if _, ok := counts[q.Model]; !ok {
			order = append(order, q.Model)
		}
		counts[q.Model]++
	}

	best, bestCount := model.UnknownModel, 0
	for _, m := range order {
		if counts[m] > bestCount {
			best, bestCount = m, counts[m]
		}
	}
	return best
}

func firstPrompt(sessionID string, qs []model.Query, history map[string]string) string {
	if p := history[sessionID]; p != "" {
		return p
	}
	for _, q := range qs {
		if q.UserPrompt != "" {
			return q.UserPrompt
		}
	}
	return model.NoPrompt
}

// promptRuns groups consecutive queries answering the same prompt.
// A query with no prompt extends the current run.
func promptRuns(qs []model.Query, s model.Session) []model.PromptUsage {
	var (
		runs    []model.PromptUsage
		current string
		acc     model.TokenCounts
	)

	flush := func() {
		total := acc.InputTokens + acc.OutputTokens + acc.CacheCreationTokens + acc.CacheReadTokens
		if current == "" || total <= 0 {
			return
		}
		acc.TotalTokens = total
		runs = append(runs, model.PromptUsage{
			Prompt:      truncateRunes(current, RollupPromptLimit),
			TokenCounts: acc,
			Date:        s.Date,
			SessionID:   s.SessionID,
			Model:       s.Model,
		})
	}

	for _, q := range qs {
		if q.UserPrompt != "" && q.UserPrompt != current {
			flush()
			current = q.UserPrompt
			acc = model.TokenCounts{}
		}
		acc.AddQuery(q)
	}
	flush()

	return runs
}

// aggregateProjects groups sessions by project directory, in session order.
func aggregateProjects(sessions []model.Session) []model.ProjectUsage {
	projects := newBuckets[model.ProjectUsage]()
	for _, s := range sessions {
		p := projects.get(s.Project, func() model.ProjectUsage {
			return model.ProjectUsage{Project: s.Project, ProjectName: s.ProjectName}
		})
		p.TokenCounts.Add(s.TokenCounts)
		p.SessionCount++
		p.QueryCount += s.QueryCount
	}

	out := projects.values()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalTokens > out[j].TotalTokens
	})
	return out
}

// computeTotals sums session-level fields; it never revisits queries.
func computeTotals(sessions []model.Session) model.Totals {
	t := model.Totals{
		TotalInput:         lo.SumBy(sessions, func(s model.Session) int64 { return s.InputTokens }),
		TotalOutput:        lo.SumBy(sessions, func(s model.Session) int64 { return s.OutputTokens }),
		TotalCacheCreation: lo.SumBy(sessions, func(s model.Session) int64 { return s.CacheCreationTokens }),
		TotalCacheRead:     lo.SumBy(sessions, func(s model.Session) int64 { return s.CacheReadTokens }),
		TotalCost:          lo.SumBy(sessions, func(s model.Session) float64 { return s.Cost }),
		TotalSessions:      len(sessions),
		TotalQueries:       lo.SumBy(sessions, func(s model.Session) int { return s.QueryCount }),
		TotalThinkingTurns: lo.SumBy(sessions, func(s model.Session) int { return s.ThinkingTurns }),
	}
	t.TotalTokens = t.TotalInput + t.TotalOutput + t.TotalCacheCreation + t.TotalCacheRead

	if denom := t.TotalCacheRead + t.TotalCacheCreation + t.TotalInput; denom > 0 {
		t.CacheHitRate = float64(t.TotalCacheRead) / float64(denom)
	}
	if t.TotalSessions > 0 {
		t.AvgTokensPerSession = int64(math.RoundToEven(float64(t.TotalTokens) / float64(t.TotalSessions)))
	}
	if t.TotalQueries > 0 {
		t.AvgTokensPerQuery = int64(math.RoundToEven(float64(t.TotalTokens) / float64(t.TotalQueries)))
	}
	return t
}

// buckets is an insertion-ordered accumulator map.
type buckets[T any] struct {
	index map[string]int
	items []T
}

func newBuckets[T any]() *buckets[T] {
	return &buckets[T]{index: make(map[string]int)}
}

// get returns the bucket for key, creating it with init on first use.
// The pointer is only valid until the next get.
func (b *buckets[T]) get(key string, init func() T) *T {
	i, ok := b.index[key]
	if !ok {
		i = len(b.items)
		b.index[key] = i
		b.items = append(b.items, init())
	}
	return &b.items[i]
}

func (b *buckets[T]) values() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
