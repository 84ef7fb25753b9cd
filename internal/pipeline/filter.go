package pipeline

import (
	"strings"
	"time"

	"github.com/theirongolddev/compte/internal/model"
)

// Filter narrows the queries fed to Aggregate. Zero fields match everything.
type Filter struct {
	Since   time.Time
	Until   time.Time
	Project string // case-insensitive substring of the project name or directory
	Model   string // case-insensitive substring of the model id
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Since.IsZero() && f.Until.IsZero() && f.Project == "" && f.Model == ""
}

// FilterFiles returns copies of files holding only the matching queries.
// A time bound drops queries whose time is unknown.
func FilterFiles(files []FileQueries, f Filter) []FileQueries {
	if f.IsZero() {
		return files
	}

	out := make([]FileQueries, 0, len(files))
	for _, fq := range files {
		if f.Project != "" &&
			!containsIgnoreCase(fq.File.Project, f.Project) &&
			!containsIgnoreCase(fq.File.ProjectDir, f.Project) {
			continue
		}

		var kept []model.Query
		for _, q := range fq.Queries {
			if f.Model != "" && !containsIgnoreCase(q.Model, f.Model) {
				continue
			}
			if !f.inRange(queryTime(q)) {
				continue
			}
			kept = append(kept, q)
		}
		if len(kept) > 0 {
			out = append(out, FileQueries{File: fq.File, Queries: kept})
		}
	}
	return out
}

func (f Filter) inRange(ts time.Time) bool {
	if f.Since.IsZero() && f.Until.IsZero() {
		return true
	}
	if ts.IsZero() {
		return false
	}
	if !f.Since.IsZero() && ts.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !ts.Before(f.Until) {
		return false
	}
	return true
}

// queryTime is the response time, falling back to the prompt time.
func queryTime(q model.Query) time.Time {
	if !q.AssistantTimestamp.IsZero() {
		return q.AssistantTimestamp
	}
	return q.UserTimestamp
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// HourlyActivity holds query and token counts for one hour of the day.
type HourlyActivity struct {
	Hour    int
	Queries int
	Tokens  int64
}

// AggregateHourly buckets queries by local hour of day. Queries with unknown time are skipped.
func AggregateHourly(files []FileQueries) []HourlyActivity {
	hours := make([]HourlyActivity, 24)
	for i := range hours {
		hours[i].Hour = i
	}
	for _, fq := range files {
		for _, q := range fq.Queries {
			ts := queryTime(q)
			if ts.IsZero() {
				continue
			}
			h := ts.Local().Hour()
			hours[h].Queries++
			hours[h].Tokens += q.TotalTokens
		}
	}
	return hours
}
