package source

import (
	"bytes"
	"strings"
	"time"

	"github.com/go-json-experiment/json"

	"github.com/theirongolddev/compte/internal/config"
	"github.com/theirongolddev/compte/internal/model"
)

// Prefixes of user content produced by slash commands rather than typed by the user.
var commandPrefixes = []string{"<local-command", "<command-name"}

// userTurn is a user message eligible to be paired with a response.
type userTurn struct {
	text string
	ts   time.Time
}

// Extract pairs each assistant record with the most recent preceding user
// prompt and computes per-response token counts and cost.
//
// Both slices must be in file order. Records without usage data and
// synthetic responses produce no Query.
func Extract(assistant, user []RawEntry, pricing *config.PricingTable) []model.Query {
	timeline := userTimeline(user)

	queries := make([]model.Query, 0, len(assistant))
	cursor := 0

	for _, entry := range assistant {
		msg := entry.Message
		if msg == nil {
			continue
		}
		usage, ok := decodeUsage(msg.Usage)
		if !ok {
			continue
		}

		modelID := msg.Model
		if modelID == "" {
			modelID = model.UnknownModel
		}
		if modelID == model.SyntheticModel {
			continue
		}

		ts := parseTimestamp(entry.Timestamp)

		// The cursor only moves forward: advance while the next prompt is
		// known to be no later than this response. Equal timestamps advance.
		for cursor < len(timeline)-1 &&
			!timeline[cursor+1].ts.IsZero() &&
			!ts.IsZero() &&
			!timeline[cursor+1].ts.After(ts) {
			cursor++
		}

		q := model.Query{
			MessageID:           msg.ID,
			AssistantTimestamp:  ts,
			Model:               modelID,
			InputTokens:         usage.InputTokens,
			CacheCreationTokens: usage.CacheCreationInputTokens,
			CacheReadTokens:     usage.CacheReadInputTokens,
			OutputTokens:        usage.OutputTokens,
		}
		if cursor < len(timeline) {
			q.UserPrompt = timeline[cursor].text
			q.UserTimestamp = timeline[cursor].ts
		}
		q.TotalTokens = q.InputTokens + q.CacheCreationTokens + q.CacheReadTokens + q.OutputTokens
		q.Cost = pricing.Cost(modelID, q.InputTokens, q.CacheCreationTokens, q.CacheReadTokens, q.OutputTokens)
		q.Tools, q.Thinking = scanBlocks(msg.Content)

		queries = append(queries, q)
	}

	return queries
}

// userTimeline filters user records down to displayable prompts.
func userTimeline(user []RawEntry) []userTurn {
	timeline := make([]userTurn, 0, len(user))
	for _, e := range user {
		if e.IsMeta || e.Message == nil {
			continue
		}
		text, isCommand := userText(e.Message.Content)
		if isCommand {
			continue
		}
		timeline = append(timeline, userTurn{
			text: text,
			ts:   parseTimestamp(e.Timestamp),
		})
	}
	return timeline
}

// userText flattens message content into prompt text.
// A string is used verbatim; an array contributes its text blocks joined by
// newlines and trimmed. isCommand reports slash-command output.
func userText(content []byte) (text string, isCommand bool) {
	switch firstByte(content) {
	case '"':
		var s string
		if err := json.Unmarshal(content, &s); err != nil {
			return "", false
		}
		for _, p := range commandPrefixes {
			if strings.HasPrefix(s, p) {
				return "", true
			}
		}
		return s, false
	case '[':
		var blocks []ContentBlock
		if err := json.Unmarshal(content, &blocks, decodeOpts); err != nil {
			return "", false
		}
		parts := make([]string, 0, len(blocks))
		for _, b := range blocks {
			if b.Type == "text" {
				parts = append(parts, b.Text)
			}
		}
		return strings.TrimSpace(strings.Join(parts, "\n")), false
	}
	return "", false
}

// scanBlocks collects tool invocation names and detects thinking blocks.
func scanBlocks(content []byte) (tools []string, thinking bool) {
	tools = []string{}
	if firstByte(content) != '[' {
		return tools, false
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(content, &blocks, decodeOpts); err != nil {
		return tools, false
	}
	for _, b := range blocks {
		switch b.Type {
		case "tool_use":
			if b.Name != "" {
				tools = append(tools, b.Name)
			}
		case "thinking":
			thinking = true
		}
	}
	return tools, thinking
}

// decodeUsage reports false for absent, null or empty usage objects.
func decodeUsage(raw []byte) (RawUsage, bool) {
	if firstByte(raw) != '{' {
		return RawUsage{}, false
	}
	if inner := bytes.TrimSpace(raw[1:]); len(inner) > 0 && inner[0] == '}' {
		return RawUsage{}, false
	}
	var u RawUsage
	if err := json.Unmarshal(raw, &u, decodeOpts); err != nil {
		return RawUsage{}, false
	}
	return u, true
}

func firstByte(raw []byte) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}

// parseTimestamp returns the zero time for missing or unparseable values.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}
