package source

import "github.com/go-json-experiment/json/jsontext"

// RawEntry represents a single line in a Claude Code JSONL session file.
// Only the fields the pipeline reads are declared; everything else is ignored.
type RawEntry struct {
	Type        string      `json:"type"`
	Timestamp   string      `json:"timestamp,omitempty"`
	IsSidechain bool        `json:"isSidechain,omitzero"`
	IsMeta      bool        `json:"isMeta,omitzero"`
	Message     *RawMessage `json:"message,omitempty"`
}

// RawMessage is the message envelope shared by user and assistant records.
// Content is either a JSON string or an array of content blocks, so it is
// kept raw and decoded on demand.
type RawMessage struct {
	ID      string         `json:"id,omitempty"`
	Role    string         `json:"role,omitempty"`
	Model   string         `json:"model,omitempty"`
	Usage   jsontext.Value `json:"usage,omitzero"`
	Content jsontext.Value `json:"content,omitzero"`
}

// RawUsage holds token counts from the API response.
type RawUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
}

// ContentBlock is one element of an array-valued message content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Name string `json:"name,omitempty"`
}

// HistoryEntry is one line of ~/.claude/history.jsonl.
type HistoryEntry struct {
	Display   string `json:"display"`
	SessionID string `json:"sessionId"`
}

// DiscoveredFile represents a JSONL file found during directory scanning.
type DiscoveredFile struct {
	Path       string
	Project    string // decoded display name (e.g., "gitlore")
	ProjectDir string // raw directory name
	SessionID  string // extracted from filename
}
