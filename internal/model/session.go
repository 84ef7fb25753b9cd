// Package model defines domain types for compte usage analytics.
package model

import "time"

// Model identifiers with special meaning.
const (
	SyntheticModel = "<synthetic>"
	UnknownModel   = "unknown"
	UnknownDate    = "unknown"
	NoPrompt       = "(no prompt)"
)

// Query is one assistant response paired with the user prompt that preceded it.
// UserPrompt is empty when no eligible prompt preceded the response.
type Query struct {
	MessageID           string    `json:"messageId"`
	UserPrompt          string    `json:"userPrompt,omitempty"`
	UserTimestamp       time.Time `json:"userTimestamp,omitzero"`
	AssistantTimestamp  time.Time `json:"assistantTimestamp,omitzero"`
	Model               string    `json:"model"`
	InputTokens         int64     `json:"inputTokens"`
	CacheCreationTokens int64     `json:"cacheCreationTokens"`
	CacheReadTokens     int64     `json:"cacheReadTokens"`
	OutputTokens        int64     `json:"outputTokens"`
	TotalTokens         int64     `json:"totalTokens"`
	Cost                float64   `json:"cost"`
	Tools               []string  `json:"tools"`
	Thinking            bool      `json:"hasThinking"`
}

// TokenCounts holds the four billed token categories.
type TokenCounts struct {
	InputTokens         int64   `json:"inputTokens"`
	OutputTokens        int64   `json:"outputTokens"`
	CacheCreationTokens int64   `json:"cacheCreationTokens"`
	CacheReadTokens     int64   `json:"cacheReadTokens"`
	TotalTokens         int64   `json:"totalTokens"`
	Cost                float64 `json:"cost"`
}

// AddQuery accumulates one query's tokens and cost.
func (t *TokenCounts) AddQuery(q Query) {
	t.InputTokens += q.InputTokens
	t.OutputTokens += q.OutputTokens
	t.CacheCreationTokens += q.CacheCreationTokens
	t.CacheReadTokens += q.CacheReadTokens
	t.TotalTokens += q.TotalTokens
	t.Cost += q.Cost
}

// Add accumulates another set of counts.
func (t *TokenCounts) Add(o TokenCounts) {
	t.InputTokens += o.InputTokens
	t.OutputTokens += o.OutputTokens
	t.CacheCreationTokens += o.CacheCreationTokens
	t.CacheReadTokens += o.CacheReadTokens
	t.TotalTokens += o.TotalTokens
	t.Cost += o.Cost
}

// Session summarises the queries of one session log file.
type Session struct {
	SessionID   string    `json:"sessionId"`
	Project     string    `json:"project"`
	ProjectName string    `json:"projectName"`
	Date        string    `json:"date"`
	Timestamp   time.Time `json:"timestamp,omitzero"`
	FirstPrompt string    `json:"firstPrompt"`
	Model       string    `json:"model"`
	QueryCount  int       `json:"queryCount"`
	TokenCounts `json:",inline"`

	ThinkingTurns  int     `json:"thinkingTurns"`
	TotalToolCalls int     `json:"totalToolCalls"`
	ToolDensity    float64 `json:"toolDensity"`
}
