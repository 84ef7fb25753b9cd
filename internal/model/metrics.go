package model

// DailyUsage aggregates sessions by their representative date.
type DailyUsage struct {
	Date        string `json:"date"`
	TokenCounts `json:",inline"`

	Sessions int `json:"sessions"`
	Queries  int `json:"queries"`
}

// ModelUsage aggregates queries by model identifier.
type ModelUsage struct {
	Model       string `json:"model"`
	TokenCounts `json:",inline"`

	QueryCount int `json:"queryCount"`
}

// ProjectUsage aggregates sessions by project directory.
type ProjectUsage struct {
	Project     string `json:"project"`
	ProjectName string `json:"projectName"`
	TokenCounts `json:",inline"`

	SessionCount int `json:"sessionCount"`
	QueryCount   int `json:"queryCount"`
}

// PromptUsage is one contiguous run of queries answering the same prompt.
type PromptUsage struct {
	Prompt      string `json:"prompt"`
	TokenCounts `json:",inline"`

	Date      string `json:"date"`
	SessionID string `json:"sessionId"`
	Model     string `json:"model"`
}

// ToolUsage counts invocations of one tool.
type ToolUsage struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Totals holds global sums and derived ratios for one scan.
type Totals struct {
	TotalTokens         int64   `json:"totalTokens"`
	TotalInput          int64   `json:"totalInput"`
	TotalOutput         int64   `json:"totalOutput"`
	TotalCacheCreation  int64   `json:"totalCacheCreation"`
	TotalCacheRead      int64   `json:"totalCacheRead"`
	TotalCost           float64 `json:"totalCost"`
	TotalSessions       int     `json:"totalSessions"`
	TotalQueries        int     `json:"totalQueries"`
	TotalThinkingTurns  int     `json:"totalThinkingTurns"`
	CacheHitRate        float64 `json:"cacheHitRate"`
	AvgTokensPerSession int64   `json:"avgTokensPerSession"`
	AvgTokensPerQuery   int64   `json:"avgTokensPerQuery"`
}

// Snapshot is the complete analytics result of one scan.
// It is treated as immutable once built.
type Snapshot struct {
	Sessions       []Session      `json:"sessions"`
	DailyUsage     []DailyUsage   `json:"dailyUsage"`
	ModelBreakdown []ModelUsage   `json:"modelBreakdown"`
	TopPrompts     []PromptUsage  `json:"topPrompts"`
	Projects       []ProjectUsage `json:"projects"`
	ToolStats      []ToolUsage    `json:"toolStats"`
	Totals         Totals         `json:"totals"`
	Optimizations  []Tip          `json:"optimizations"`
}

// EmptySnapshot returns a snapshot with every collection empty and all totals zero.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Sessions:       []Session{},
		DailyUsage:     []DailyUsage{},
		ModelBreakdown: []ModelUsage{},
		TopPrompts:     []PromptUsage{},
		Projects:       []ProjectUsage{},
		ToolStats:      []ToolUsage{},
	}
}
